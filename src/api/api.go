// Package api is the web front of the segmentation service. Uploaded
// images are queued for the workers; clients poll for the encoded rows.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

type Queue interface {
	Push(req datastructures.SegmentationRequest) error
	Result(uuid string) (*datastructures.SegmentationResult, error)
}

func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, X-PINGOTHER, X-File-Name, Cache-Control")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
}

// EnsureDir creates the upload directory if it doesn't exist yet. Uploads
// are temporary, so the directory may vanish (e.g. on reboot when in /tmp).
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Debug("[Main] Creating directory for uploads as it doesn't exist")
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func NewRouter(queue Queue, uploadDir string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.OPTIONS("/v1/segment", func(c *gin.Context) {
		setCorsHeaders(c)
		c.JSON(http.StatusOK, struct{}{})
	})

	router.POST("/v1/segment", func(c *gin.Context) {
		setCorsHeaders(c)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location")

		_, header, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Picture is missing"})
			return
		}

		id, err := uuid.NewV4()
		if err != nil {
			log.Debug("[Segmenting] Couldn't create uuid: ", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}
		filename := filepath.Join(uploadDir, id.String())
		if err := c.SaveUploadedFile(header, filename); err != nil {
			log.Debug("[Segmenting] Couldn't save upload: ", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		//add a segmentation request to the 'segmentme' queue
		req := datastructures.SegmentationRequest{
			Uuid:     id.String(),
			Filename: filename,
			Created:  time.Now().Unix(),
		}
		if err := queue.Push(req); err != nil {
			log.Debug("[Segmenting] Couldn't accept request: ", err.Error())
			os.Remove(filename)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		c.Writer.Header().Set("Location", id.String())
		c.JSON(http.StatusAccepted, gin.H{})
	})

	router.GET("/v1/segment/:uuid", func(c *gin.Context) {
		setCorsHeaders(c)

		res, err := queue.Result(c.Param("uuid"))
		if err != nil {
			log.Debug("[Segmenting] Couldn't get status of request: ", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't get status of request - please try again later"})
			return
		}

		if res == nil { //either the uuid is wrong or processing isn't finished.
			c.JSON(http.StatusOK, gin.H{})
			return
		}

		rows := res.Rows
		if rows == nil {
			rows = []datastructures.SubmissionRow{}
		}
		c.JSON(http.StatusOK, gin.H{
			"image_id":   res.ImageId,
			"rows":       rows,
			"model_info": res.ModelInfo,
			"error":      res.Error,
		})
	})

	return router
}
