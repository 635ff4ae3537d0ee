package api

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/jobs"
	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/processor"
	"github.com/doclab/doclab/internal/storage"
)

type handlers struct {
	deps Deps
}

// detail mirrors the error body shape clients already parse.
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func (h *handlers) health(c *gin.Context) {
	engineStatus := "ok"
	if h.deps.Engine != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Engine.HealthCheck(ctx); err != nil {
			engineStatus = "unreachable"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"engine":       engineStatus,
		"version":      h.deps.Version,
		"offline_mode": h.deps.Models.Offline(),
	})
}

// config reports the option vocabulary so clients can build their forms
// without hardcoding enums.
func (h *handlers) config(c *gin.Context) {
	languages := make(map[string][]string, 3)
	defaults := make(map[string]string, 3)
	for _, lib := range options.Libraries() {
		languages[string(lib)] = options.LanguagesFor(lib)
		defaults[string(lib)] = options.DefaultLanguageFor(lib)
	}

	c.JSON(http.StatusOK, gin.H{
		"pipelines": []gin.H{
			{"value": "standard", "label": "Standard"},
			{"value": "vlm", "label": "VLM"},
		},
		"accelerators": []gin.H{
			{"value": "auto", "label": "Auto"},
			{"value": "cpu", "label": "CPU"},
			{"value": "cuda", "label": "CUDA"},
			{"value": "mps", "label": "MPS"},
		},
		"ocr_libraries": []gin.H{
			{"value": "rapidocr", "label": "RapidOCR"},
			{"value": "easyocr", "label": "EasyOCR"},
			{"value": "tesseract", "label": "Tesseract"},
		},
		"output_formats": []gin.H{
			{"value": "markdown", "label": "Markdown"},
			{"value": "json", "label": "JSON"},
			{"value": "summary", "label": "Summary"},
		},
		"ocr_languages":         languages,
		"default_languages":     defaults,
		"supported_extensions":  options.SupportedExtensions(),
		"chunk_token_range":     []int{options.MinChunkTokens, options.MaxChunkTokens},
		"defaults":              options.Defaults(),
	})
}

// parseProcessForm extracts the source and options from a multipart request.
// The boolean reports whether parsing succeeded; on failure the response has
// already been written.
func (h *handlers) parseProcessForm(c *gin.Context) (processor.Source, options.ProcessingOptions, bool) {
	var src processor.Source

	opts, err := options.Decode([]byte(c.PostForm("options")))
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return src, opts, false
	}
	if err := opts.Validate(); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return src, opts, false
	}

	if url := c.PostForm("url"); url != "" {
		src.URL = url
		return src, opts, true
	}

	fh, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, "either file or url is required")
		return src, opts, false
	}
	if fh.Size > h.deps.MaxUploadSize {
		detail(c, http.StatusRequestEntityTooLarge, "file exceeds maximum size")
		return src, opts, false
	}

	f, err := fh.Open()
	if err != nil {
		detail(c, http.StatusBadRequest, "failed to read upload")
		return src, opts, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.deps.MaxUploadSize+1))
	if err != nil || int64(len(data)) > h.deps.MaxUploadSize {
		detail(c, http.StatusRequestEntityTooLarge, "file exceeds maximum size")
		return src, opts, false
	}

	src.Filename = fh.Filename
	src.Data = data
	return src, opts, true
}

func (h *handlers) process(c *gin.Context) {
	src, opts, ok := h.parseProcessForm(c)
	if !ok {
		return
	}
	// Failed runs are results, not HTTP errors.
	c.JSON(http.StatusOK, h.deps.Processor.Process(c.Request.Context(), src, opts))
}

func (h *handlers) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.deps.Models.Status()})
}

func (h *handlers) downloadModel(c *gin.Context) {
	if err := h.deps.Models.Download(c.Request.Context(), c.Param("id")); err != nil {
		detail(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "downloaded"})
}

func (h *handlers) downloadRequired(c *gin.Context) {
	if err := h.deps.Models.DownloadRequired(c.Request.Context()); err != nil {
		detail(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "downloaded"})
}

func (h *handlers) downloadAll(c *gin.Context) {
	if err := h.deps.Models.DownloadAll(c.Request.Context()); err != nil {
		detail(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "downloaded"})
}

func (h *handlers) clearCache(c *gin.Context) {
	if err := h.deps.Models.Clear(); err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	// Cached sessions reference models that just vanished.
	h.deps.Sessions.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *handlers) diskUsage(c *gin.Context) {
	usage, err := h.deps.Models.Usage()
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *handlers) setOffline(c *gin.Context) {
	var body struct {
		Offline bool `json:"offline"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusBadRequest, "invalid body")
		return
	}
	h.deps.Models.SetOffline(body.Offline)
	c.JSON(http.StatusOK, gin.H{"offline_mode": body.Offline})
}

func (h *handlers) createJob(c *gin.Context) {
	if h.deps.Enqueuer == nil || h.deps.Store == nil {
		detail(c, http.StatusServiceUnavailable, "job facility is not configured")
		return
	}

	src, _, ok := h.parseProcessForm(c)
	if !ok {
		return
	}

	payload := &jobs.ProcessPayload{
		JobID:    uuid.NewString(),
		Filename: src.Filename,
		URL:      src.URL,
		Options:  []byte(optionsFormOrDefault(c)),
	}
	if len(src.Data) > 0 {
		payload.FileData = base64.StdEncoding.EncodeToString(src.Data)
	}

	ctx := c.Request.Context()
	if err := h.deps.Store.CreateJob(ctx, payload.JobID, src.Filename); err != nil {
		h.deps.Logger.Error("failed to create job record", zap.Error(err))
		detail(c, http.StatusInternalServerError, "failed to create job")
		return
	}
	if err := h.deps.Enqueuer.Enqueue(ctx, payload); err != nil {
		h.deps.Logger.Error("failed to enqueue job", zap.Error(err))
		_ = h.deps.Store.Fail(ctx, payload.JobID, "failed to enqueue")
		detail(c, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": payload.JobID, "status": storage.StatusPending})
}

func (h *handlers) getJob(c *gin.Context) {
	if h.deps.Store == nil {
		detail(c, http.StatusServiceUnavailable, "job facility is not configured")
		return
	}
	rec, err := h.deps.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrJobNotFound) {
		detail(c, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.deps.Logger.Error("failed to load job", zap.Error(err))
		detail(c, http.StatusInternalServerError, "failed to load job")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) jobStats(c *gin.Context) {
	if h.deps.Enqueuer == nil {
		detail(c, http.StatusServiceUnavailable, "job facility is not configured")
		return
	}
	stats, err := h.deps.Enqueuer.Stats(c.Request.Context())
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

// optionsFormOrDefault returns the raw options form field, or "{}" so the
// worker decodes defaults.
func optionsFormOrDefault(c *gin.Context) string {
	if raw := c.PostForm("options"); raw != "" {
		return raw
	}
	return "{}"
}
