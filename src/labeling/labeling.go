// Package labeling finds connected foreground regions in thresholded masks.
package labeling

import (
	"github.com/pkg/errors"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

// Labeler assigns a distinct label to every connected region of pixels
// whose value is strictly greater than cutoff.
type Labeler interface {
	Label(mask datastructures.ProbabilityMask, cutoff float32) (datastructures.LabeledMask, error)
}

// TwoPass is a union-find labeler. Connectivity is 4 or 8; labels are
// numbered in row-major order of each region's first pixel.
type TwoPass struct {
	Connectivity int
}

func NewTwoPass(connectivity int) *TwoPass {
	return &TwoPass{Connectivity: connectivity}
}

var backends = map[string]func(connectivity int) Labeler{
	"twopass": func(connectivity int) Labeler { return NewTwoPass(connectivity) },
}

// New returns the labeler registered under backend.
func New(backend string, connectivity int) (Labeler, error) {
	newLabeler, ok := backends[backend]
	if !ok {
		return nil, errors.Errorf("unknown labeler backend %q", backend)
	}
	if connectivity != 4 && connectivity != 8 {
		return nil, errors.Errorf("unsupported connectivity %d (use 4 or 8)", connectivity)
	}
	return newLabeler(connectivity), nil
}

func checkMask(mask datastructures.ProbabilityMask, connectivity int) error {
	if connectivity != 4 && connectivity != 8 {
		return errors.Errorf("unsupported connectivity %d (use 4 or 8)", connectivity)
	}
	if mask.Height < 0 || mask.Width < 0 || len(mask.Pix) != mask.Height*mask.Width {
		return errors.Errorf("mask has %d values, expected %dx%d", len(mask.Pix), mask.Height, mask.Width)
	}
	return nil
}

func find(parent []int32, x int32) int32 {
	for parent[x] != x {
		parent[x] = parent[parent[x]]
		x = parent[x]
	}
	return x
}

func union(parent []int32, a int32, b int32) int32 {
	ra, rb := find(parent, a), find(parent, b)
	if ra == rb {
		return ra
	}
	if ra < rb {
		parent[rb] = ra
		return ra
	}
	parent[ra] = rb
	return rb
}

func (l *TwoPass) Label(mask datastructures.ProbabilityMask, cutoff float32) (datastructures.LabeledMask, error) {
	if err := checkMask(mask, l.Connectivity); err != nil {
		return datastructures.LabeledMask{}, err
	}

	h, w := mask.Height, mask.Width
	bin := mask.Threshold(cutoff)
	provisional := make([]int32, h*w)
	// parent[0] is the background slot
	parent := []int32{0}

	offsets := [][2]int{{0, -1}, {-1, 0}}
	if l.Connectivity == 8 {
		offsets = append(offsets, [2]int{-1, -1}, [2]int{-1, 1})
	}

	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if bin.Pix[r*w+c] == 0 {
				continue
			}
			var current int32
			for _, off := range offsets {
				nr, nc := r+off[0], c+off[1]
				if nr < 0 || nc < 0 || nc >= w {
					continue
				}
				neighbour := provisional[nr*w+nc]
				if neighbour == 0 {
					continue
				}
				if current == 0 {
					current = find(parent, neighbour)
				} else {
					current = union(parent, current, neighbour)
				}
			}
			if current == 0 {
				current = int32(len(parent))
				parent = append(parent, current)
			}
			provisional[r*w+c] = current
		}
	}

	out := datastructures.LabeledMask{Height: h, Width: w, Pix: make([]int32, h*w)}
	final := make([]int32, len(parent))
	for i, p := range provisional {
		if p == 0 {
			continue
		}
		root := find(parent, p)
		if final[root] == 0 {
			out.Count++
			final[root] = int32(out.Count)
		}
		out.Pix[i] = final[root]
	}
	return out, nil
}
