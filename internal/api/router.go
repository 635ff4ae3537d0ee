/**
 * HTTP API.
 *
 * Thin gin layer over the processor, model manager, and job facility. The
 * processing endpoint returns HTTP 200 even for failed runs; only malformed
 * requests get 4xx.
 */

package api

import (
	"context"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/jobs"
	"github.com/doclab/doclab/internal/modelcache"
	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/pipeline"
	"github.com/doclab/doclab/internal/processor"
	"github.com/doclab/doclab/internal/result"
	"github.com/doclab/doclab/internal/storage"
)

// DocumentProcessor is the processing dependency of the API.
type DocumentProcessor interface {
	Process(ctx context.Context, src processor.Source, opts options.ProcessingOptions) *result.ProcessingResult
}

// Deps wires the API to the rest of the service. Enqueuer and Store may be
// nil when the job facility is disabled.
type Deps struct {
	Processor     DocumentProcessor
	Engine        *engine.Client
	Models        *modelcache.Manager
	Sessions      *pipeline.SessionCache
	Enqueuer      *jobs.Enqueuer
	Store         *storage.JobStore
	Logger        *zap.Logger
	MaxUploadSize int64
	Version       string
}

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Logger.Named("http")))
	r.Use(CORS())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.MaxMultipartMemory = deps.MaxUploadSize

	h := &handlers{deps: deps}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", h.health)
		apiGroup.GET("/config", h.config)
		apiGroup.POST("/process", h.process)

		models := apiGroup.Group("/models")
		{
			models.GET("", h.listModels)
			models.POST("/:id/download", h.downloadModel)
			models.POST("/download-required", h.downloadRequired)
			models.POST("/download-all", h.downloadAll)
			models.DELETE("/cache", h.clearCache)
			models.GET("/disk-usage", h.diskUsage)
			models.POST("/offline", h.setOffline)
		}

		jobsGroup := apiGroup.Group("/jobs")
		{
			jobsGroup.POST("", h.createJob)
			jobsGroup.GET("/stats", h.jobStats)
			jobsGroup.GET("/:id", h.getJob)
		}
	}

	return r
}
