//go:build gocv
// +build gocv

package labeling

import (
	"gocv.io/x/gocv"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

// OpenCV labels masks with cv::connectedComponents. Only built with the
// gocv tag since it needs OpenCV installed.
type OpenCV struct {
	Connectivity int
}

func init() {
	backends["opencv"] = func(connectivity int) Labeler { return NewOpenCV(connectivity) }
}

func NewOpenCV(connectivity int) *OpenCV {
	return &OpenCV{Connectivity: connectivity}
}

func (l *OpenCV) Label(mask datastructures.ProbabilityMask, cutoff float32) (datastructures.LabeledMask, error) {
	if err := checkMask(mask, l.Connectivity); err != nil {
		return datastructures.LabeledMask{}, err
	}

	h, w := mask.Height, mask.Width
	out := datastructures.LabeledMask{Height: h, Width: w, Pix: make([]int32, h*w)}
	if h == 0 || w == 0 {
		return out, nil
	}

	src := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	defer src.Close()
	bin := mask.Threshold(cutoff)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			src.SetUCharAt(r, c, bin.Pix[r*w+c])
		}
	}

	labels := gocv.NewMat()
	defer labels.Close()
	n := gocv.ConnectedComponentsWithParams(src, &labels, l.Connectivity, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	// OpenCV numbers regions in scan order already; remap anyway so the
	// output matches TwoPass exactly whatever algorithm OpenCV picks.
	final := make(map[int32]int32, n)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			v := labels.GetIntAt(r, c)
			if v == 0 {
				continue
			}
			id, seen := final[v]
			if !seen {
				out.Count++
				id = int32(out.Count)
				final[v] = id
			}
			out.Pix[r*w+c] = id
		}
	}
	return out, nil
}
