/**
 * Document processor.
 *
 * Orchestrates one run: option validation, source acquisition, engine
 * conversion through a cached session, and result shaping with per-stage
 * timing. Failures never escape as Go errors; every outcome is a
 * ProcessingResult.
 */

package processor

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/doclab/doclab/internal/errors"
	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/format"
	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/pipeline"
	"github.com/doclab/doclab/internal/result"
)

// Stage timing fractions applied to the convert wall time when the engine
// does not report its own stage breakdown. Values match the reference
// pipeline's observed proportions.
const (
	ocrFraction         = 0.40
	layoutFractionOCR   = 0.35
	layoutFractionNoOCR = 0.60
	tableFraction       = 0.15
)

// Config holds processor tunables.
type Config struct {
	TempDir         string
	MaxFileSize     int64
	DownloadTimeout time.Duration
}

// Source identifies one input document: uploaded bytes or a URL.
type Source struct {
	Filename string
	Data     []byte
	URL      string
}

// Processor runs documents through the conversion engine.
type Processor struct {
	sessions  *pipeline.SessionCache
	formatter *format.Formatter
	logger    *zap.Logger
	cfg       Config
}

// New creates a Processor.
func New(sessions *pipeline.SessionCache, cfg Config, logger *zap.Logger) *Processor {
	return &Processor{
		sessions:  sessions,
		formatter: format.New(),
		logger:    logger.Named("processor"),
		cfg:       cfg,
	}
}

// Process runs one document. It always returns a result: failures carry
// Success=false and a classified message, with raw causes only logged.
func (p *Processor) Process(ctx context.Context, src Source, opts options.ProcessingOptions) *result.ProcessingResult {
	start := time.Now()

	if err := opts.Validate(); err != nil {
		p.logger.Warn("rejected options", zap.Error(err))
		return result.Failure(err.Error())
	}

	ext, err := p.resolveExtension(src)
	if err != nil {
		p.logger.Warn("rejected source", zap.String("filename", src.Filename), zap.Error(err))
		return result.Failure(err.Error())
	}

	data := src.Data
	if src.URL != "" {
		data, err = p.download(ctx, src.URL)
		if err != nil {
			p.logger.Error("download failed", zap.String("url", src.URL), zap.Error(err))
			return result.Failure(err.Error())
		}
	}

	tempPath, err := p.materialize(data, ext)
	if err != nil {
		p.logger.Error("failed to stage file", zap.Error(err))
		return result.Failure(err.Error())
	}
	defer func() {
		if rmErr := os.Remove(tempPath); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.Warn("failed to remove temp file", zap.String("path", tempPath), zap.Error(rmErr))
		}
	}()

	var preflight *pdfInfo
	if ext == ".pdf" {
		if preflight = pdfPreflight(tempPath, p.logger); preflight != nil {
			p.logger.Debug("pdf preflight",
				zap.Int("pages", preflight.numPages),
				zap.Bool("has_text_layer", preflight.hasText))
		}
	}

	loadStart := time.Now()
	sess, err := p.sessions.Get(ctx, opts)
	if err != nil {
		p.logger.Error("session build failed", zap.Error(err))
		res := result.Failure(err.Error())
		res.Timing = &result.ProcessingTiming{TotalSeconds: time.Since(start).Seconds()}
		return res
	}
	loading := time.Since(loadStart).Seconds()

	convStart := time.Now()
	resp, err := sess.Client.Convert(ctx, &engine.ConvertRequest{
		Filename: src.Filename,
		File:     base64.StdEncoding.EncodeToString(data),
		Options:  sess.Config,
	})
	convertSeconds := time.Since(convStart).Seconds()
	if err != nil {
		p.logger.Error("conversion failed",
			zap.String("filename", src.Filename),
			zap.String("code", string(apperrors.CodeOf(err))),
			zap.Error(err))
		res := result.Failure(err.Error())
		res.Timing = &result.ProcessingTiming{TotalSeconds: time.Since(start).Seconds()}
		return res
	}

	chunkStart := time.Now()
	res := p.formatter.Format(resp.Document, opts)
	chunking := time.Since(chunkStart).Seconds()

	if res.Stats.NumPages == 0 && preflight != nil {
		res.Stats.NumPages = preflight.numPages
	}

	res.Timing = buildTiming(opts, resp.Timings, loading, convertSeconds, chunking)
	res.Timing.TotalSeconds = time.Since(start).Seconds()

	p.logger.Info("processed document",
		zap.String("filename", src.Filename),
		zap.String("device", resp.DeviceUsed),
		zap.Int("pages", res.Stats.NumPages),
		zap.Int("chunks", res.Stats.NumChunks),
		zap.Float64("seconds", res.Timing.TotalSeconds))

	return res
}

// resolveExtension determines and validates the source's file extension,
// falling back to content sniffing for uploads without one.
func (p *Processor) resolveExtension(src Source) (string, error) {
	name := src.Filename
	if name == "" && src.URL != "" {
		name = filepath.Base(strings.SplitN(src.URL, "?", 2)[0])
	}

	ext := options.ExtensionOf(name)
	if ext == "" && len(src.Data) > 0 {
		ext = detectExtension(src.Data)
	}
	if !options.ExtensionSupported(ext) {
		return "", apperrors.NewUnsupportedFormatError(ext)
	}
	return ext, nil
}

// materialize writes data to a unique file under TempDir.
func (p *Processor) materialize(data []byte, ext string) (string, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return "", apperrors.NewResourceError("file exceeds maximum size", nil)
	}
	if err := os.MkdirAll(p.cfg.TempDir, 0o755); err != nil {
		return "", apperrors.NewResourceError("failed to create temp directory", err)
	}
	path := filepath.Join(p.cfg.TempDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", apperrors.NewResourceError("failed to stage file", err)
	}
	return path, nil
}

// buildTiming assembles stage timings, preferring engine-reported values and
// estimating the rest as fractions of the convert wall time.
func buildTiming(opts options.ProcessingOptions, hints *engine.StageTimings, loading, convert, chunking float64) *result.ProcessingTiming {
	t := &result.ProcessingTiming{
		LoadingSeconds:  result.Float(loading),
		ChunkingSeconds: result.Float(chunking),
	}

	if hints != nil {
		t.OCRSeconds = hints.OCRSeconds
		t.LayoutSeconds = hints.LayoutSeconds
		t.TableSeconds = hints.TableSeconds
	}

	if opts.OCREnabled {
		if t.OCRSeconds == nil {
			t.OCRSeconds = result.Float(convert * ocrFraction)
		}
		if t.LayoutSeconds == nil {
			t.LayoutSeconds = result.Float(convert * layoutFractionOCR)
		}
	} else if t.LayoutSeconds == nil {
		t.LayoutSeconds = result.Float(convert * layoutFractionNoOCR)
	}

	if opts.DoTableStructure && t.TableSeconds == nil {
		t.TableSeconds = result.Float(convert * tableFraction)
	}

	return t
}
