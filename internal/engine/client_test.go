package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/doclab/doclab/internal/errors"
)

func TestConvertSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/convert", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req ConvertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "doc.pdf", req.Filename)
		require.Equal(t, "standard", req.Options.Pipeline)

		json.NewEncoder(w).Encode(ConvertResponse{
			Success:    true,
			DeviceUsed: "cpu",
			Document:   &Document{Markdown: "# Hi", NumPages: 1},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	resp, err := c.Convert(context.Background(), &ConvertRequest{
		Filename: "doc.pdf",
		File:     "aGVsbG8=",
		Options:  &PipelineConfig{Pipeline: "standard", Device: "auto"},
	})
	require.NoError(t, err)
	require.Equal(t, "# Hi", resp.Document.Markdown)
	require.Equal(t, "cpu", resp.DeviceUsed)
}

func TestConvertEngineReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ConvertResponse{Success: false, Message: "corrupt file"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Convert(context.Background(), &ConvertRequest{
		Filename: "doc.pdf",
		Options:  &PipelineConfig{Pipeline: "standard", Device: "auto"},
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrorEngine, apperrors.CodeOf(err))
	require.Contains(t, err.Error(), "corrupt file")
}

func TestConvertTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Convert(context.Background(), &ConvertRequest{
		Filename: "doc.pdf",
		Options:  &PipelineConfig{Pipeline: "standard", Device: "auto"},
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrorEngine, apperrors.CodeOf(err))
}

func TestCapabilitiesCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(Capabilities{Version: "1.0", Devices: []string{"cpu", "cuda"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	for i := 0; i < 3; i++ {
		caps, err := c.Capabilities(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"cpu", "cuda"}, caps.Devices)
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestDownloadModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/layout-heron/download", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	require.NoError(t, c.DownloadModel(context.Background(), "layout-heron"))
}
