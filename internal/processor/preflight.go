package processor

import (
	"io"
	"strings"

	"github.com/dslipak/pdf"
	"go.uber.org/zap"
)

// pdfInfo is local PDF metadata gathered before the engine runs.
type pdfInfo struct {
	numPages int
	hasText  bool
}

// pdfPreflight reads PDF metadata locally: page count and whether the file
// carries a digital text layer. Used as a stats fallback when the engine
// omits page counts. Any failure, including parser panics on malformed
// files, degrades to no preflight rather than failing the run.
func pdfPreflight(path string, logger *zap.Logger) (info *pdfInfo) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("pdf preflight panicked", zap.String("path", path), zap.Any("cause", r))
			info = nil
		}
	}()

	r, err := pdf.Open(path)
	if err != nil {
		logger.Debug("pdf preflight failed", zap.String("path", path), zap.Error(err))
		return nil
	}

	info = &pdfInfo{numPages: r.NumPage()}
	if b, err := r.GetPlainText(); err == nil {
		if text, err := io.ReadAll(b); err == nil {
			info.hasText = len(strings.TrimSpace(string(text))) > 0
		}
	}
	return info
}
