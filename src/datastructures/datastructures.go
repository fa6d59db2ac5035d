package datastructures

import (
	"strconv"
	"strings"
)

// ProbabilityMask holds one per-pixel foreground probability in [0,1],
// stored row-major.
type ProbabilityMask struct {
	Height int       `json:"height"`
	Width  int       `json:"width"`
	Pix    []float32 `json:"pix"`
}

func NewProbabilityMask(height int, width int) ProbabilityMask {
	return ProbabilityMask{Height: height, Width: width, Pix: make([]float32, height*width)}
}

func (m ProbabilityMask) At(row int, col int) float32 {
	return m.Pix[row*m.Width+col]
}

// BinaryMask is a {0,1} mask, stored row-major.
type BinaryMask struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	Pix    []uint8 `json:"pix"`
}

func NewBinaryMask(height int, width int) BinaryMask {
	return BinaryMask{Height: height, Width: width, Pix: make([]uint8, height*width)}
}

func (m BinaryMask) At(row int, col int) uint8 {
	return m.Pix[row*m.Width+col]
}

// Threshold returns a new mask with 1 wherever the probability is strictly
// greater than cutoff.
func (m ProbabilityMask) Threshold(cutoff float32) BinaryMask {
	b := NewBinaryMask(m.Height, m.Width)
	for i, p := range m.Pix {
		if p > cutoff {
			b.Pix[i] = 1
		}
	}
	return b
}

// LabeledMask assigns each foreground pixel the label of its connected
// component. 0 is background, labels run from 1 to Count.
type LabeledMask struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	Pix    []int32 `json:"pix"`
	Count  int     `json:"count"`
}

// Component extracts the pixels equal to label as a new BinaryMask.
func (m LabeledMask) Component(label int32) BinaryMask {
	b := NewBinaryMask(m.Height, m.Width)
	for i, l := range m.Pix {
		if l == label {
			b.Pix[i] = 1
		}
	}
	return b
}

// Run is a single foreground run. Start is a 1-based offset into the
// column-major flattened mask.
type Run struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

type RunLengthEncoding []Run

// Flat returns the alternating start/length sequence.
func (e RunLengthEncoding) Flat() []int {
	flat := make([]int, 0, 2*len(e))
	for _, r := range e {
		flat = append(flat, r.Start, r.Length)
	}
	return flat
}

func (e RunLengthEncoding) String() string {
	parts := make([]string, 0, 2*len(e))
	for _, v := range e.Flat() {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, " ")
}

// Pixels is the number of foreground pixels covered by the encoding.
func (e RunLengthEncoding) Pixels() int {
	total := 0
	for _, r := range e {
		total += r.Length
	}
	return total
}

type SubmissionRow struct {
	ImageId       string `json:"image_id"`
	EncodedPixels string `json:"encoded_pixels"`
}

// ImageTensor is a height x width x channel image scaled to [0,1].
type ImageTensor [][][]float32

type Prediction struct {
	ImageId string
	Mask    ProbabilityMask
}

type ModelInfo struct {
	Build     int32    `json:"build"`
	Created   string   `json:"created"`
	TrainedOn []string `json:"trained_on"`
	BasedOn   string   `json:"based_on"`
	Step      string   `json:"step"`
}

type SegmentationRequest struct {
	Uuid     string `json:"uuid"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

type SegmentationResult struct {
	Uuid      string          `json:"uuid"`
	ImageId   string          `json:"image_id"`
	Rows      []SubmissionRow `json:"rows"`
	ModelInfo ModelInfo       `json:"model_info"`
	Error     string          `json:"error"`
}
