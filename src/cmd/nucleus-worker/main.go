// Command nucleus-worker takes segmentation requests off the Redis queue,
// runs them through the model and stores the encoded rows.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tony32769/2018-Data-Science-Bowl/src/checkpoint"
	"github.com/tony32769/2018-Data-Science-Bowl/src/commons"
	"github.com/tony32769/2018-Data-Science-Bowl/src/config"
	"github.com/tony32769/2018-Data-Science-Bowl/src/labeling"
	"github.com/tony32769/2018-Data-Science-Bowl/src/predict"
	"github.com/tony32769/2018-Data-Science-Bowl/src/queue"
	"github.com/tony32769/2018-Data-Science-Bowl/src/submission"
	"github.com/tony32769/2018-Data-Science-Bowl/src/worker"
)

func main() {
	cfg, err := config.Parse("nucleus-worker", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "nucleus-worker: %v\n", err)
		os.Exit(2)
	}

	commons.SetupLogging(cfg.LogLevel)
	if err := commons.SetupSentry(cfg.SentryDSN); err != nil {
		log.Warn("[Main] Couldn't set up sentry: ", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		log.Error("[Main] ", err.Error())
		os.Exit(1)
	}

	log.Debug("[Main] Starting Segmentation Worker...")

	ckpt, err := checkpoint.NewFileStore().LoadLatest(cfg.CheckpointDir)
	if err != nil {
		commons.ReportError(err, map[string]string{"command": "nucleus-worker"})
		os.Exit(1)
	}

	labeler, err := labeling.New(cfg.Labeler, cfg.Connectivity)
	if err != nil {
		log.Error("[Main] ", err.Error())
		os.Exit(1)
	}

	redisPool := queue.NewPool(cfg.Redis.Address, cfg.Redis.MaxConnections)
	defer redisPool.Close()
	q := queue.NewRedisQueue(redisPool, cfg.Worker.ResultTTL)

	log.Debug("[Main] Starting Dispatcher...")

	jobQueue := make(chan worker.Job, cfg.Worker.QueueSize)
	dispatcher := worker.NewDispatcher(jobQueue, cfg.Worker.MaxWorkers, worker.Settings{
		Checkpoint: ckpt,
		Loader: predict.Loader(predict.Options{
			InputOp:  cfg.Model.InputOp,
			ModeOp:   cfg.Model.ModeOp,
			OutputOp: cfg.Model.OutputOp,
		}),
		Pipeline:       submission.NewPipeline(labeler, cfg.Cutoff),
		Store:          q,
		Height:         cfg.Model.Height,
		Width:          cfg.Model.Width,
		ResizeToSource: cfg.ResizeToSource,
	})
	if err := dispatcher.Run(); err != nil {
		commons.ReportError(err, map[string]string{"command": "nucleus-worker"})
		os.Exit(1)
	}

	quit := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		log.Info("[Main] Shutting down")
		close(quit)
	}()

	worker.Poll(q, jobQueue, time.Second, quit)
	dispatcher.Stop()
}
