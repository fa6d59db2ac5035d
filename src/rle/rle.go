// Package rle converts binary masks to and from the run-length encoding used
// by the submission format. Pixels are numbered down each column first, then
// across columns, starting at 1.
package rle

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

// Encode returns the runs of foreground pixels of mask in column-major order.
func Encode(mask datastructures.BinaryMask) datastructures.RunLengthEncoding {
	var runs datastructures.RunLengthEncoding
	prev := -2
	idx := 0
	for col := 0; col < mask.Width; col++ {
		for row := 0; row < mask.Height; row++ {
			if mask.At(row, col) == 1 {
				if idx > prev+1 {
					runs = append(runs, datastructures.Run{Start: idx + 1})
				}
				runs[len(runs)-1].Length++
				prev = idx
			}
			idx++
		}
	}
	return runs
}

// Decode paints enc onto a new height x width mask.
func Decode(enc datastructures.RunLengthEncoding, height int, width int) (datastructures.BinaryMask, error) {
	mask := datastructures.NewBinaryMask(height, width)
	total := height * width
	for _, r := range enc {
		if r.Start < 1 || r.Length < 1 || r.Start-1+r.Length > total {
			return mask, errors.Errorf("run %d+%d out of range for %dx%d mask", r.Start, r.Length, height, width)
		}
		for i := r.Start - 1; i < r.Start-1+r.Length; i++ {
			mask.Pix[(i%height)*width+i/height] = 1
		}
	}
	return mask, nil
}

// Parse reads a space separated start/length list.
func Parse(s string) (datastructures.RunLengthEncoding, error) {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil, errors.Errorf("odd number of values (%d)", len(fields))
	}

	var enc datastructures.RunLengthEncoding
	end := 0
	for i := 0; i < len(fields); i += 2 {
		start, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, errors.Wrapf(err, "bad start at position %d", i)
		}
		length, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, errors.Wrapf(err, "bad length at position %d", i+1)
		}
		if start < 1 || length < 1 {
			return nil, errors.Errorf("run %d %d must be positive", start, length)
		}
		if start <= end {
			return nil, errors.Errorf("run starting at %d overlaps or precedes previous run", start)
		}
		enc = append(enc, datastructures.Run{Start: start, Length: length})
		end = start + length - 1
	}
	return enc, nil
}
