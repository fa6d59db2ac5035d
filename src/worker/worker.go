// Package worker runs on-demand segmentation jobs. A Dispatcher hands jobs
// to a pool of Workers; every Worker owns its own Model.
package worker

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tony32769/2018-Data-Science-Bowl/src/checkpoint"
	"github.com/tony32769/2018-Data-Science-Bowl/src/commons"
	"github.com/tony32769/2018-Data-Science-Bowl/src/dataset"
	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
	"github.com/tony32769/2018-Data-Science-Bowl/src/submission"
)

// Job holds the attributes needed to perform unit of work.
type Job struct {
	Request datastructures.SegmentationRequest
}

type ResultStore interface {
	StoreResult(res datastructures.SegmentationResult) error
}

type Source interface {
	Pop() (*datastructures.SegmentationRequest, error)
}

// Settings is what every worker needs besides its job queue.
type Settings struct {
	Checkpoint     *checkpoint.Checkpoint
	Loader         commons.ModelLoader
	Pipeline       *submission.Pipeline
	Store          ResultStore
	Height         int
	Width          int
	ResizeToSource bool
}

// NewWorker takes a numeric id and a channel w/ worker pool.
func NewWorker(id int, workerPool chan chan Job, settings Settings) *Worker {
	return &Worker{
		id:         id,
		jobQueue:   make(chan Job),
		workerPool: workerPool,
		quitChan:   make(chan bool),
		settings:   settings,
	}
}

type Worker struct {
	id         int
	jobQueue   chan Job
	workerPool chan chan Job
	quitChan   chan bool
	settings   Settings
	model      commons.Model
}

func (w *Worker) start() error {
	log.Debug("[Worker] Worker ", w.id, " starting")
	model, err := w.settings.Loader(w.settings.Checkpoint)
	if err != nil {
		return err
	}
	w.model = model

	go func() {
		defer w.model.Close()
		for {
			// Add my jobQueue to the worker pool.
			w.workerPool <- w.jobQueue

			select {
			case job := <-w.jobQueue:
				// Dispatcher has added a job to my jobQueue.
				w.process(job)

			case <-w.quitChan:
				// We have been asked to stop.
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}
		}
	}()
	return nil
}

func (w *Worker) segment(req datastructures.SegmentationRequest) ([]datastructures.SubmissionRow, error) {
	tensor, size, err := dataset.LoadImage(req.Filename, w.settings.Height, w.settings.Width)
	if err != nil {
		return nil, err
	}
	masks, err := w.model.Predict([]datastructures.ImageTensor{tensor})
	if err != nil {
		return nil, err
	}
	mask := masks[0]
	if w.settings.ResizeToSource {
		mask = dataset.ResizeMask(mask, size.Y, size.X)
	}
	return w.settings.Pipeline.Encode(req.Uuid, mask)
}

func (w *Worker) process(job Job) {
	result := datastructures.SegmentationResult{
		Uuid:      job.Request.Uuid,
		ImageId:   job.Request.Uuid,
		ModelInfo: w.settings.Checkpoint.ModelInfo,
	}

	rows, err := w.segment(job.Request)
	if err != nil {
		log.Debug("[Worker] Couldn't segment: ", err.Error())
		result.Error = "Couldn't process request"
	} else {
		result.Rows = rows
	}

	if err := w.settings.Store.StoreResult(result); err != nil {
		log.Debug("[Worker] Couldn't store result: ", err.Error())
		return
	}

	if result.Error == "" { //successfully segmented, remove file
		if err := os.Remove(job.Request.Filename); err != nil {
			log.Debug("[Worker] Couldn't remove file ", err.Error())
		}
	}
}

func (w *Worker) stop() {
	go func() {
		w.quitChan <- true
	}()
}

// NewDispatcher creates, and returns a new Dispatcher object.
func NewDispatcher(jobQueue chan Job, maxWorkers int, settings Settings) *Dispatcher {
	workerPool := make(chan chan Job, maxWorkers)

	return &Dispatcher{
		jobQueue:   jobQueue,
		maxWorkers: maxWorkers,
		workerPool: workerPool,
		settings:   settings,
		quit:       make(chan struct{}),
	}
}

type Dispatcher struct {
	workerPool chan chan Job
	maxWorkers int
	jobQueue   chan Job
	settings   Settings
	workers    []*Worker
	quit       chan struct{}
}

// Run starts the workers. It fails if any of them can't load its model.
func (d *Dispatcher) Run() error {
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(i+1, d.workerPool, d.settings)
		if err := worker.start(); err != nil {
			d.Stop()
			return err
		}
		d.workers = append(d.workers, worker)
	}

	go d.dispatch()
	return nil
}

func (d *Dispatcher) Stop() {
	for _, w := range d.workers {
		w.stop()
	}
	close(d.quit)
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			go func() {
				workerJobQueue := <-d.workerPool
				workerJobQueue <- job
			}()
		case <-d.quit:
			return
		}
	}
}

// Poll moves requests from src onto jobQueue until quit is closed, sleeping
// for idle whenever src is empty.
func Poll(src Source, jobQueue chan<- Job, idle time.Duration, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}

		req, err := src.Pop()
		if err != nil {
			log.Debug("[Worker] Couldn't get request: ", err.Error())
		}
		if req == nil {
			select {
			case <-quit:
				return
			case <-time.After(idle): //nothing in queue
			}
			continue
		}

		log.Debug("[Worker] Got a new request to process")
		select {
		case jobQueue <- Job{Request: *req}:
		case <-quit:
			return
		}
	}
}
