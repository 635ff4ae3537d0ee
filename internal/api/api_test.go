package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/modelcache"
	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/pipeline"
	"github.com/doclab/doclab/internal/processor"
	"github.com/doclab/doclab/internal/result"
)

// stubProcessor records the last call and returns a canned result.
type stubProcessor struct {
	lastSrc  processor.Source
	lastOpts options.ProcessingOptions
	res      *result.ProcessingResult
}

func (s *stubProcessor) Process(_ context.Context, src processor.Source, opts options.ProcessingOptions) *result.ProcessingResult {
	s.lastSrc = src
	s.lastOpts = opts
	if s.res != nil {
		return s.res
	}
	return &result.ProcessingResult{Success: true, Markdown: "# ok", Chunks: []result.ChunkInfo{}}
}

func newTestRouter(t *testing.T, stub *stubProcessor) *gin.Engine {
	t.Helper()
	client := engine.NewClient("http://127.0.0.1:1", zap.NewNop())
	configurator := pipeline.NewConfigurator(client, 1, zap.NewNop())
	sessions, err := pipeline.NewSessionCache(configurator, 2)
	require.NoError(t, err)

	return NewRouter(Deps{
		Processor:     stub,
		Models:        modelcache.NewManager(t.TempDir(), client, zap.NewNop()),
		Sessions:      sessions,
		Logger:        zap.NewNop(),
		MaxUploadSize: 1 << 20,
		Version:       "test",
	})
}

func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(r *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept-Encoding", "identity")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	rec := doRequest(r, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "test", body["version"])
	require.Equal(t, false, body["offline_mode"])
}

func TestConfigShape(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	rec := doRequest(r, http.MethodGet, "/api/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pipelines           []map[string]string `json:"pipelines"`
		OCRLanguages        map[string][]string `json:"ocr_languages"`
		SupportedExtensions []string            `json:"supported_extensions"`
		ChunkTokenRange     []int               `json:"chunk_token_range"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pipelines, 2)
	require.Contains(t, body.OCRLanguages["tesseract"], "eng")
	require.Contains(t, body.SupportedExtensions, ".pdf")
	require.Equal(t, []int{64, 2048}, body.ChunkTokenRange)
}

func TestProcessUpload(t *testing.T) {
	stub := &stubProcessor{}
	r := newTestRouter(t, stub)

	body, ct := multipartBody(t, map[string]string{"options": `{"output_format": "summary"}`}, "doc.pdf", []byte("%PDF-"))
	rec := doRequest(r, http.MethodPost, "/api/process", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "doc.pdf", stub.lastSrc.Filename)
	require.Equal(t, options.FormatSummary, stub.lastOpts.OutputFormat)

	var res result.ProcessingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
}

func TestProcessInvalidOptionsIs422(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	body, ct := multipartBody(t, map[string]string{"options": `{"pipeline": "warp"}`}, "doc.pdf", []byte("%PDF-"))
	rec := doRequest(r, http.MethodPost, "/api/process", body, ct)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var res map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Contains(t, res["detail"], "pipeline")
}

func TestProcessUnknownOptionIs422(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	body, ct := multipartBody(t, map[string]string{"options": `{"pipelin": "vlm"}`}, "doc.pdf", []byte("%PDF-"))
	rec := doRequest(r, http.MethodPost, "/api/process", body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProcessMissingSource(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	body, ct := multipartBody(t, map[string]string{"options": `{}`}, "", nil)
	rec := doRequest(r, http.MethodPost, "/api/process", body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessFailureStillHTTP200(t *testing.T) {
	stub := &stubProcessor{res: result.Failure("ENGINE_ERROR: model crashed")}
	r := newTestRouter(t, stub)

	body, ct := multipartBody(t, nil, "doc.pdf", []byte("%PDF-"))
	rec := doRequest(r, http.MethodPost, "/api/process", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	var res result.ProcessingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Contains(t, res.Error, "model crashed")
}

func TestProcessURLSource(t *testing.T) {
	stub := &stubProcessor{}
	r := newTestRouter(t, stub)

	body, ct := multipartBody(t, map[string]string{"url": "https://example.com/doc.pdf"}, "", nil)
	rec := doRequest(r, http.MethodPost, "/api/process", body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://example.com/doc.pdf", stub.lastSrc.URL)
	require.Empty(t, stub.lastSrc.Data)
}

func TestModelsList(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	rec := doRequest(r, http.MethodGet, "/api/models", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []modelcache.ModelStatus `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Models)
}

func TestJobsUnavailableWithoutConfig(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})

	body, ct := multipartBody(t, nil, "doc.pdf", []byte("%PDF-"))
	rec := doRequest(r, http.MethodPost, "/api/jobs", body, ct)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/jobs/abc", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/jobs/stats", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})
	rec := doRequest(r, http.MethodGet, "/api/health", nil, "")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestOfflineToggleEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubProcessor{})

	payload := bytes.NewBufferString(`{"offline": true}`)
	rec := doRequest(r, http.MethodPost, "/api/models/offline", payload, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/health", nil, "")
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["offline_mode"])
}
