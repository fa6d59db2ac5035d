// Package submission turns predicted probability masks into run-length
// encoded submission rows and writes them out as CSV.
package submission

import (
	"github.com/pkg/errors"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
	"github.com/tony32769/2018-Data-Science-Bowl/src/labeling"
	"github.com/tony32769/2018-Data-Science-Bowl/src/rle"
)

const DefaultCutoff float32 = 0.5

type Pipeline struct {
	labeler labeling.Labeler
	cutoff  float32
}

func NewPipeline(labeler labeling.Labeler, cutoff float32) *Pipeline {
	return &Pipeline{labeler: labeler, cutoff: cutoff}
}

// Encode emits one row per connected component of mask, in label order.
// A mask with no foreground yields no rows.
func (p *Pipeline) Encode(imageId string, mask datastructures.ProbabilityMask) ([]datastructures.SubmissionRow, error) {
	labeled, err := p.labeler.Label(mask, p.cutoff)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't label mask of %s", imageId)
	}

	rows := make([]datastructures.SubmissionRow, 0, labeled.Count)
	for i := 1; i <= labeled.Count; i++ {
		enc := rle.Encode(labeled.Component(int32(i)))
		rows = append(rows, datastructures.SubmissionRow{
			ImageId:       imageId,
			EncodedPixels: enc.String(),
		})
	}
	return rows, nil
}

// Stats summarises one EncodeAll call.
type Stats struct {
	Images     int
	Rows       int
	Dropped    int
	Components []int
}

// EncodeAll encodes predictions in order; rows stay grouped per image.
func (p *Pipeline) EncodeAll(predictions []datastructures.Prediction) ([]datastructures.SubmissionRow, Stats, error) {
	var rows []datastructures.SubmissionRow
	stats := Stats{Components: make([]int, 0, len(predictions))}
	for _, pred := range predictions {
		imageRows, err := p.Encode(pred.ImageId, pred.Mask)
		if err != nil {
			return nil, stats, err
		}
		stats.Images++
		stats.Components = append(stats.Components, len(imageRows))
		if len(imageRows) == 0 {
			stats.Dropped++
		}
		rows = append(rows, imageRows...)
	}
	stats.Rows = len(rows)
	return rows, stats, nil
}
