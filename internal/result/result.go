/**
 * Result model for document processing runs.
 *
 * Field names and JSON tags form the public API schema shared by the HTTP
 * handlers, the job store, and the CLI.
 */

package result

import (
	"fmt"
	"strings"
)

// ProcessingTiming records wall-clock seconds per pipeline stage. Stage
// fields are pointers: nil means the stage did not run (or timing is
// unknown), which is distinct from a measured zero.
type ProcessingTiming struct {
	TotalSeconds    float64  `json:"total_seconds"`
	LoadingSeconds  *float64 `json:"loading_seconds,omitempty"`
	OCRSeconds      *float64 `json:"ocr_seconds,omitempty"`
	LayoutSeconds   *float64 `json:"layout_seconds,omitempty"`
	TableSeconds    *float64 `json:"table_seconds,omitempty"`
	ChunkingSeconds *float64 `json:"chunking_seconds,omitempty"`
}

// ChunkInfo is one retrieval-sized slice of the converted document.
type ChunkInfo struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Preview    string `json:"preview"`
	PageNum    *int   `json:"page_num,omitempty"`
	TokenCount int    `json:"token_count"`
}

// ProcessingStats summarizes the converted document.
type ProcessingStats struct {
	NumPages       int    `json:"num_pages"`
	NumTables      int    `json:"num_tables"`
	NumFigures     int    `json:"num_figures"`
	NumChunks      int    `json:"num_chunks"`
	TotalTokens    int    `json:"total_tokens"`
	OCRLibraryUsed string `json:"ocr_library_used,omitempty"`
	PipelineUsed   string `json:"pipeline_used"`
}

// ProcessingResult is the complete outcome of one run. Failures are results
// too: Success=false with Error set, never a Go error across the API.
type ProcessingResult struct {
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Markdown string                 `json:"markdown,omitempty"`
	JSONData map[string]interface{} `json:"json_data,omitempty"`
	Chunks   []ChunkInfo            `json:"chunks"`
	Stats    *ProcessingStats       `json:"stats,omitempty"`
	Timing   *ProcessingTiming      `json:"timing,omitempty"`
}

// Failure builds a failed result with the given user-facing message.
func Failure(message string) *ProcessingResult {
	return &ProcessingResult{
		Success: false,
		Error:   message,
		Chunks:  []ChunkInfo{},
	}
}

// FormatBreakdown renders the timing as an indented stage tree.
func (t *ProcessingTiming) FormatBreakdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "total: %.2fs\n", t.TotalSeconds)
	writeStage(&b, "loading", t.LoadingSeconds)
	writeStage(&b, "ocr", t.OCRSeconds)
	writeStage(&b, "layout", t.LayoutSeconds)
	writeStage(&b, "tables", t.TableSeconds)
	writeStage(&b, "chunking", t.ChunkingSeconds)
	return strings.TrimRight(b.String(), "\n")
}

// FormatBadge renders a one-line timing badge for CLI output.
func (t *ProcessingTiming) FormatBadge() string {
	parts := []string{fmt.Sprintf("%.2fs total", t.TotalSeconds)}
	if t.OCRSeconds != nil {
		parts = append(parts, fmt.Sprintf("%.2fs ocr", *t.OCRSeconds))
	}
	if t.LayoutSeconds != nil {
		parts = append(parts, fmt.Sprintf("%.2fs layout", *t.LayoutSeconds))
	}
	if t.TableSeconds != nil {
		parts = append(parts, fmt.Sprintf("%.2fs tables", *t.TableSeconds))
	}
	return strings.Join(parts, " | ")
}

func writeStage(b *strings.Builder, name string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "  %s: %.2fs\n", name, *v)
}

// Float returns a pointer to v, for optional timing fields.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for optional page numbers.
func Int(v int) *int {
	return &v
}
