// Command nucleus-eval runs the latest checkpoint over a test set and
// writes the run-length encoded submission file.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tony32769/2018-Data-Science-Bowl/src/checkpoint"
	"github.com/tony32769/2018-Data-Science-Bowl/src/commons"
	"github.com/tony32769/2018-Data-Science-Bowl/src/config"
	"github.com/tony32769/2018-Data-Science-Bowl/src/dataset"
	"github.com/tony32769/2018-Data-Science-Bowl/src/evaluate"
	"github.com/tony32769/2018-Data-Science-Bowl/src/labeling"
	"github.com/tony32769/2018-Data-Science-Bowl/src/predict"
	"github.com/tony32769/2018-Data-Science-Bowl/src/submission"
)

func main() {
	cfg, err := config.Parse("nucleus-eval", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "nucleus-eval: %v\n", err)
		os.Exit(2)
	}

	commons.SetupLogging(cfg.LogLevel)
	if err := commons.SetupSentry(cfg.SentryDSN); err != nil {
		log.Warn("[Main] Couldn't set up sentry: ", err.Error())
	}

	if err := cfg.ValidateEvaluation(); err != nil {
		log.Error("[Main] ", err.Error())
		os.Exit(1)
	}

	labeler, err := labeling.New(cfg.Labeler, cfg.Connectivity)
	if err != nil {
		log.Error("[Main] ", err.Error())
		os.Exit(1)
	}

	driver := evaluate.NewDriver(evaluate.Options{
		CheckpointDir:  cfg.CheckpointDir,
		ResultDir:      cfg.ResultDir,
		BatchSize:      cfg.BatchSize,
		ResizeToSource: cfg.ResizeToSource,
		Report:         cfg.Report,
		Store:          checkpoint.NewFileStore(),
		Loader: predict.Loader(predict.Options{
			InputOp:  cfg.Model.InputOp,
			ModeOp:   cfg.Model.ModeOp,
			OutputOp: cfg.Model.OutputOp,
		}),
		Dataset: func() (dataset.Iterator, error) {
			d, err := dataset.NewImageDir(cfg.DataDir, cfg.BatchSize, cfg.Model.Height, cfg.Model.Width)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		Pipeline: submission.NewPipeline(labeler, cfg.Cutoff),
	})

	log.Debug("[Main] Starting evaluation...")
	res, err := driver.Run()
	if err != nil {
		if errors.Cause(err) == checkpoint.ErrNoCheckpoint {
			log.Error("[Main] No checkpoint file found at ", cfg.CheckpointDir)
		}
		commons.ReportError(err, map[string]string{"command": "nucleus-eval", "state": driver.State().String()})
		os.Exit(1)
	}

	log.WithFields(log.Fields{
		"step":    res.Step,
		"images":  res.Stats.Images,
		"rows":    res.Stats.Rows,
		"dropped": res.Stats.Dropped,
	}).Info("[Main] Submission written to ", res.Path)
}
