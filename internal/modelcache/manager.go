/**
 * Model cache bookkeeping.
 *
 * The models directory is shared with the conversion engine; the filesystem
 * is authoritative. This manager only reads and reports, except for Clear
 * and the download delegation to the engine.
 */

package modelcache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	apperrors "github.com/doclab/doclab/internal/errors"
	"github.com/doclab/doclab/internal/engine"
)

// ModelStatus pairs a registry entry with its on-disk presence.
type ModelStatus struct {
	ModelInfo
	Downloaded bool `json:"downloaded"`
}

// DiskUsage reports cache sizes in bytes.
type DiskUsage struct {
	TotalBytes       int64 `json:"total_bytes"`
	HuggingFaceBytes int64 `json:"huggingface_bytes"`
	EasyOCRBytes     int64 `json:"easyocr_bytes"`
}

// Manager tracks model artifacts under the shared models directory.
type Manager struct {
	modelsDir string
	engine    *engine.Client
	logger    *zap.Logger

	mu      sync.Mutex
	offline bool
}

// NewManager creates a Manager rooted at modelsDir.
func NewManager(modelsDir string, eng *engine.Client, logger *zap.Logger) *Manager {
	return &Manager{
		modelsDir: modelsDir,
		engine:    eng,
		logger:    logger.Named("modelcache"),
	}
}

// Status scans the models directory and reports per-model presence.
func (m *Manager) Status() []ModelStatus {
	hub := m.scanHub()
	out := make([]ModelStatus, 0, len(registry))
	for _, info := range registry {
		out = append(out, ModelStatus{
			ModelInfo:  info,
			Downloaded: m.present(info, hub),
		})
	}
	return out
}

func (m *Manager) present(info ModelInfo, hub map[string]bool) bool {
	switch info.Kind {
	case KindHuggingFace:
		return hub[hubDirName(info.RepoID)]
	case KindEasyOCR:
		return m.easyocrPresent(info.ID)
	case KindRapidOCR:
		return dirNonEmpty(filepath.Join(m.modelsDir, "rapidocr"))
	case KindTesseract:
		return len(tesseractLanguages()) > 0
	default:
		return false
	}
}

// scanHub lists model dirs under the HF hub layout
// (<models>/huggingface/hub/models--owner--name).
func (m *Manager) scanHub() map[string]bool {
	hub := make(map[string]bool)
	entries, err := os.ReadDir(filepath.Join(m.modelsDir, "huggingface", "hub"))
	if err != nil {
		return hub
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "models--") {
			hub[e.Name()] = true
		}
	}
	return hub
}

func (m *Manager) easyocrPresent(id string) bool {
	dir := filepath.Join(m.modelsDir, "easyocr")
	patterns := map[string][]string{
		"easyocr-en": {"craft_mlt_25k.pth", "english_g2.pth"},
		"easyocr-ar": {"arabic_g2.pth"},
	}
	files, ok := patterns[id]
	if !ok {
		return false
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	return true
}

// Usage walks the cache subtrees and sums file sizes.
func (m *Manager) Usage() (*DiskUsage, error) {
	hf, err := dirSize(filepath.Join(m.modelsDir, "huggingface"))
	if err != nil {
		return nil, apperrors.NewResourceError("failed to measure huggingface cache", err)
	}
	easy, err := dirSize(filepath.Join(m.modelsDir, "easyocr"))
	if err != nil {
		return nil, apperrors.NewResourceError("failed to measure easyocr cache", err)
	}
	total, err := dirSize(m.modelsDir)
	if err != nil {
		return nil, apperrors.NewResourceError("failed to measure models directory", err)
	}
	return &DiskUsage{TotalBytes: total, HuggingFaceBytes: hf, EasyOCRBytes: easy}, nil
}

// Clear removes the entire cache tree and recreates the empty root.
func (m *Manager) Clear() error {
	m.logger.Info("clearing model cache", zap.String("dir", m.modelsDir))
	if err := os.RemoveAll(m.modelsDir); err != nil {
		return apperrors.NewResourceError("failed to clear model cache", err)
	}
	if err := os.MkdirAll(m.modelsDir, 0o755); err != nil {
		return apperrors.NewResourceError("failed to recreate models directory", err)
	}
	return nil
}

// Download delegates one model pull to the engine.
func (m *Manager) Download(ctx context.Context, id string) error {
	if _, ok := Lookup(id); !ok {
		return apperrors.NewConfigurationError("unknown model %q", id)
	}
	if m.Offline() {
		return apperrors.NewConfigurationError("offline mode is enabled, refusing to download %s", id)
	}
	m.logger.Info("downloading model", zap.String("model", id))
	return m.engine.DownloadModel(ctx, id)
}

// DownloadRequired pulls every required model that is not yet present.
func (m *Manager) DownloadRequired(ctx context.Context) error {
	return m.downloadMatching(ctx, func(s ModelStatus) bool { return s.Required && !s.Downloaded })
}

// DownloadAll pulls every model that is not yet present.
func (m *Manager) DownloadAll(ctx context.Context) error {
	return m.downloadMatching(ctx, func(s ModelStatus) bool { return !s.Downloaded })
}

func (m *Manager) downloadMatching(ctx context.Context, want func(ModelStatus) bool) error {
	for _, s := range m.Status() {
		if !want(s) {
			continue
		}
		if err := m.Download(ctx, s.ID); err != nil {
			return fmt.Errorf("download %s: %w", s.ID, err)
		}
	}
	return nil
}

// SetOffline toggles offline mode. While offline, downloads are refused.
func (m *Manager) SetOffline(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = v
	m.logger.Info("offline mode changed", zap.Bool("offline", v))
}

// Offline reports the current offline-mode state.
func (m *Manager) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// tesseractLanguages lists the installed tesseract language packs, falling
// back to scanning TESSDATA_PREFIX when the library probe fails.
func tesseractLanguages() []string {
	if langs, err := gosseract.GetAvailableLanguages(); err == nil && len(langs) > 0 {
		return langs
	}
	prefix := os.Getenv("TESSDATA_PREFIX")
	if prefix == "" {
		return nil
	}
	entries, err := os.ReadDir(prefix)
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".traineddata"); ok {
			langs = append(langs, name)
		}
	}
	return langs
}

// hubDirName converts "owner/name" to the HF hub directory layout.
func hubDirName(repoID string) string {
	return "models--" + strings.ReplaceAll(repoID, "/", "--")
}

func dirNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}

// dirSize sums file sizes under root; a missing root counts as zero.
func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}
