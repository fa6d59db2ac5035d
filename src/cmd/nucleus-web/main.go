// Command nucleus-web accepts images over HTTP and serves the encoded rows
// once a worker has processed them.
package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tony32769/2018-Data-Science-Bowl/src/api"
	"github.com/tony32769/2018-Data-Science-Bowl/src/commons"
	"github.com/tony32769/2018-Data-Science-Bowl/src/config"
	"github.com/tony32769/2018-Data-Science-Bowl/src/queue"
)

func main() {
	cfg, err := config.Parse("nucleus-web", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "nucleus-web: %v\n", err)
		os.Exit(2)
	}

	commons.SetupLogging(cfg.LogLevel)
	if err := commons.SetupSentry(cfg.SentryDSN); err != nil {
		log.Warn("[Main] Couldn't set up sentry: ", err.Error())
	}

	if cfg.Server.Release {
		log.Info("[Main] Starting gin in release mode!")
		gin.SetMode(gin.ReleaseMode)
	}

	if err := api.EnsureDir(cfg.Server.UploadDir); err != nil {
		log.Error("[Main] Couldn't create directory: ", err.Error())
		os.Exit(1)
	}

	redisPool := queue.NewPool(cfg.Redis.Address, cfg.Redis.MaxConnections)
	defer redisPool.Close()

	router := api.NewRouter(queue.NewRedisQueue(redisPool, cfg.Worker.ResultTTL), cfg.Server.UploadDir)
	if err := router.Run(cfg.Server.Address); err != nil {
		commons.ReportError(err, map[string]string{"command": "nucleus-web"})
		os.Exit(1)
	}
}
