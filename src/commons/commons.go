// Package commons holds the pieces shared by the evaluation command, the
// segmentation worker and the web api.
package commons

import (
	"github.com/getsentry/raven-go"
	log "github.com/sirupsen/logrus"

	"github.com/tony32769/2018-Data-Science-Bowl/src/checkpoint"
	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

// Model predicts one probability mask per input image, in input order.
type Model interface {
	Predict(images []datastructures.ImageTensor) ([]datastructures.ProbabilityMask, error)
	Close() error
}

// ModelLoader builds a Model from a checkpoint.
type ModelLoader func(ckpt *checkpoint.Checkpoint) (Model, error)

// SetupLogging sets the logrus level; unknown levels fall back to debug.
func SetupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.DebugLevel)
		log.Warn("[Main] Unknown log level ", level, ", using debug")
		return
	}
	log.SetLevel(lvl)
}

var sentryEnabled bool

// SetupSentry enables error reporting when dsn is set.
func SetupSentry(dsn string) error {
	if dsn == "" {
		return nil
	}
	if err := raven.SetDSN(dsn); err != nil {
		return err
	}
	sentryEnabled = true
	return nil
}

// ReportError logs err and, if Sentry is set up, sends it there.
func ReportError(err error, tags map[string]string) {
	log.WithFields(log.Fields{"tags": tags}).Error(err.Error())
	if sentryEnabled {
		raven.CaptureErrorAndWait(err, tags)
	}
}
