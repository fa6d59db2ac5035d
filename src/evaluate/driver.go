// Package evaluate runs a saved model over a whole test set and writes the
// run-length encoded submission.
//
// A run moves through the states Uninitialized, Loaded, Iterating,
// Encoding, Writing and Done, in that order. Any error stops the run in
// the Failed state without writing a submission; batches are processed one
// at a time and nothing is retried.
package evaluate

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tony32769/2018-Data-Science-Bowl/src/checkpoint"
	"github.com/tony32769/2018-Data-Science-Bowl/src/commons"
	"github.com/tony32769/2018-Data-Science-Bowl/src/dataset"
	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
	"github.com/tony32769/2018-Data-Science-Bowl/src/submission"
)

type State int

const (
	Uninitialized State = iota
	Loaded
	Iterating
	Encoding
	Writing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loaded:
		return "loaded"
	case Iterating:
		return "iterating"
	case Encoding:
		return "encoding"
	case Writing:
		return "writing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// BatchCount is the number of batches needed to cover size examples.
func BatchCount(size int, batchSize int) int {
	if batchSize < 1 || size <= 0 {
		return 0
	}
	return (size + batchSize - 1) / batchSize
}

// Options configures a Driver. Dataset opens the test set once the model
// is loaded.
type Options struct {
	CheckpointDir  string
	ResultDir      string
	BatchSize      int
	ResizeToSource bool
	Report         bool
	Store          checkpoint.Store
	Loader         commons.ModelLoader
	Dataset        func() (dataset.Iterator, error)
	Pipeline       *submission.Pipeline
}

type Result struct {
	Step       string
	Path       string
	ReportPath string
	Rows       []datastructures.SubmissionRow
	Stats      submission.Stats
}

type Driver struct {
	opts  Options
	state State
}

func NewDriver(opts Options) *Driver {
	return &Driver{opts: opts}
}

func (d *Driver) State() State {
	return d.state
}

func (d *Driver) enter(s State) {
	log.Debug("[Driver] ", d.state, " -> ", s)
	d.state = s
}

func (d *Driver) fail(err error) (*Result, error) {
	d.enter(Failed)
	return nil, err
}

// Run performs one full evaluation pass.
func (d *Driver) Run() (*Result, error) {
	if d.state != Uninitialized {
		return nil, errors.Errorf("driver already used (state %s)", d.state)
	}

	ckpt, err := d.opts.Store.LoadLatest(d.opts.CheckpointDir)
	if err != nil {
		return d.fail(err)
	}
	model, err := d.opts.Loader(ckpt)
	if err != nil {
		return d.fail(errors.Wrap(err, "couldn't load model"))
	}
	defer model.Close()
	log.Info("[Driver] Successfully loaded model from ", ckpt.Path, " at step=", ckpt.Step)
	d.enter(Loaded)

	data, err := d.opts.Dataset()
	if err != nil {
		return d.fail(errors.Wrap(err, "couldn't open dataset"))
	}

	d.enter(Iterating)
	start := time.Now()
	log.Info("[Driver] Start test: ", start.Format(time.RFC3339))
	predictions, err := d.predictAll(model, data)
	if err != nil {
		return d.fail(err)
	}
	log.WithFields(log.Fields{
		"images":  len(predictions),
		"elapsed": time.Since(start).String(),
	}).Info("[Driver] End prediction")

	d.enter(Encoding)
	rows, stats, err := d.opts.Pipeline.EncodeAll(predictions)
	if err != nil {
		return d.fail(err)
	}
	log.WithFields(log.Fields{
		"rows":    stats.Rows,
		"dropped": stats.Dropped,
	}).Info("[Driver] Encoded predictions")

	d.enter(Writing)
	path, err := submission.WriteFile(d.opts.ResultDir, ckpt.Step, rows)
	if err != nil {
		return d.fail(err)
	}
	result := &Result{Step: ckpt.Step, Path: path, Rows: rows, Stats: stats}
	if d.opts.Report {
		result.ReportPath, err = WriteReport(d.opts.ResultDir, ckpt.Step, stats)
		if err != nil {
			return d.fail(err)
		}
	}

	d.enter(Done)
	log.Info("[Driver] Wrote submission to ", path)
	return result, nil
}

// predictAll pulls exactly BatchCount batches and pairs every mask with the
// identifier at the same position.
func (d *Driver) predictAll(model commons.Model, data dataset.Iterator) ([]datastructures.Prediction, error) {
	size := data.Len()
	batches := BatchCount(size, d.opts.BatchSize)
	predictions := make([]datastructures.Prediction, 0, size)

	for i := 0; i < batches; i++ {
		batch, err := data.Next()
		if err == io.EOF {
			return nil, errors.Errorf("dataset ended after %d of %d batches", i, batches)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't read batch %d", i)
		}
		if batch.Len() == 0 || len(batch.Images) != batch.Len() {
			return nil, errors.Errorf("batch %d has %d images and %d identifiers", i, len(batch.Images), batch.Len())
		}

		masks, err := model.Predict(batch.Images)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't predict batch %d", i)
		}
		if len(masks) != batch.Len() {
			return nil, errors.Errorf("model returned %d masks for %d images in batch %d", len(masks), batch.Len(), i)
		}

		for n, raw := range batch.Ids {
			id, err := dataset.DecodeId(raw)
			if err != nil {
				return nil, err
			}
			mask := masks[n]
			if d.opts.ResizeToSource && n < len(batch.Sizes) {
				mask = dataset.ResizeMask(mask, batch.Sizes[n].Y, batch.Sizes[n].X)
			}
			predictions = append(predictions, datastructures.Prediction{ImageId: id, Mask: mask})
		}
		log.Debug("[Driver] Batch ", i+1, "/", batches, ": ", batch.Len(), " images")
	}

	if len(predictions) != size {
		return nil, errors.Errorf("dataset yielded %d images, expected %d", len(predictions), size)
	}
	log.Info("[Driver] ", len(predictions), " completed")
	return predictions, nil
}
