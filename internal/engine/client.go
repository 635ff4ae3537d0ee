/**
 * Conversion engine client.
 *
 * The engine is a separate service that owns the ML heavy lifting (layout
 * analysis, OCR, table structure, optional VLM description). This client is
 * the only place HTTP details of that collaboration live; everything above it
 * sees typed requests, typed responses, and classified errors.
 */

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/doclab/doclab/internal/errors"
)

// Client talks to the conversion engine over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	capMu  sync.Mutex
	capSet *Capabilities
}

// PipelineConfig is the engine-side conversion configuration, derived from
// validated processing options.
type PipelineConfig struct {
	Pipeline             string   `json:"pipeline"`
	Device               string   `json:"device"`
	NumThreads           int      `json:"num_threads,omitempty"`
	DoOCR                bool     `json:"do_ocr"`
	OCREngine            string   `json:"ocr_engine,omitempty"`
	OCRLanguages         []string `json:"ocr_languages,omitempty"`
	ForceFullPageOCR     bool     `json:"force_full_page_ocr,omitempty"`
	DoTableStructure     bool     `json:"do_table_structure"`
	TableMode            string   `json:"table_mode,omitempty"`
	DoCodeEnrichment     bool     `json:"do_code_enrichment,omitempty"`
	DoFormulaEnrichment  bool     `json:"do_formula_enrichment,omitempty"`
	DoPictureDescription bool     `json:"do_picture_description,omitempty"`
}

// ConvertRequest carries one document to the engine. Exactly one of File
// (base64) or URL is set.
type ConvertRequest struct {
	Filename string          `json:"filename"`
	File     string          `json:"file,omitempty"`
	URL      string          `json:"url,omitempty"`
	Options  *PipelineConfig `json:"options"`
}

// DocItem is one document element with page provenance.
type DocItem struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

// Document is the engine's native conversion output.
type Document struct {
	Markdown   string                 `json:"markdown"`
	Dict       map[string]interface{} `json:"dict"`
	Items      []DocItem              `json:"items"`
	NumPages   int                    `json:"num_pages"`
	NumTables  int                    `json:"num_tables"`
	NumFigures int                    `json:"num_figures"`
}

// StageTimings carries optional per-stage wall times reported by the engine,
// in seconds.
type StageTimings struct {
	OCRSeconds    *float64 `json:"ocr_seconds,omitempty"`
	LayoutSeconds *float64 `json:"layout_seconds,omitempty"`
	TableSeconds  *float64 `json:"table_seconds,omitempty"`
}

// ConvertResponse is the engine's reply to a conversion request.
type ConvertResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message,omitempty"`
	Document   *Document     `json:"document,omitempty"`
	DeviceUsed string        `json:"device_used,omitempty"`
	Timings    *StageTimings `json:"timings,omitempty"`
}

// Capabilities describes what the engine can do on its host.
type Capabilities struct {
	Version string   `json:"version"`
	Devices []string `json:"devices"`
}

// NewClient creates an engine client for the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // conversion can take a while on CPU
		},
		logger: logger.Named("engine"),
	}
}

// Convert runs one document through the engine.
func (c *Client) Convert(ctx context.Context, req *ConvertRequest) (*ConvertResponse, error) {
	c.logger.Debug("requesting conversion",
		zap.String("filename", req.Filename),
		zap.Bool("by_url", req.URL != ""),
		zap.String("pipeline", req.Options.Pipeline),
		zap.String("device", req.Options.Device))

	var resp ConvertResponse
	if err := c.post(ctx, "/v1/convert", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "engine reported conversion failure"
		}
		return nil, apperrors.NewEngineError(msg, nil)
	}
	if resp.Document == nil {
		return nil, apperrors.NewEngineError("engine returned no document", nil)
	}
	return &resp, nil
}

// Capabilities fetches the engine capability set, cached for the client's
// lifetime. Device lists do not change while an engine process is up.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	c.capMu.Lock()
	defer c.capMu.Unlock()
	if c.capSet != nil {
		return c.capSet, nil
	}

	var caps Capabilities
	if err := c.get(ctx, "/v1/capabilities", &caps); err != nil {
		return nil, err
	}
	c.capSet = &caps
	return c.capSet, nil
}

// DownloadModel asks the engine to pull one model artifact into the shared
// models directory.
func (c *Client) DownloadModel(ctx context.Context, id string) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}
	if err := c.post(ctx, "/v1/models/"+id+"/download", struct{}{}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("engine failed to download model %s", id)
		}
		return apperrors.NewEngineError(msg, nil)
	}
	return nil
}

// HealthCheck probes the engine's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.get(ctx, "/v1/health", &struct{}{})
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewEngineError("failed to marshal engine request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewEngineError("failed to create engine request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.NewEngineError("failed to create engine request", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewEngineError("engine request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return apperrors.NewEngineError("failed to read engine response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("engine returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("path", req.URL.Path))
		return apperrors.NewEngineError(
			fmt.Sprintf("engine returned status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewEngineError("failed to decode engine response", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
