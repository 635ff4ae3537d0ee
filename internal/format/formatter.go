/**
 * Result shaping.
 *
 * Applies the requested output format to a converted document: chunking,
 * previews, stats, and the mutually exclusive markdown/json/summary payload
 * shapes.
 */

package format

import (
	"github.com/doclab/doclab/internal/chunker"
	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/result"
)

// previewLength is the preview budget in runes. Text is truncated with a
// trailing ellipsis only when it is strictly longer.
const previewLength = 100

// Formatter shapes engine documents into API results.
type Formatter struct{}

// New creates a Formatter.
func New() *Formatter {
	return &Formatter{}
}

// Format chunks doc and assembles the result payload for opts. The returned
// result has Success=true; the caller owns timing.
func (f *Formatter) Format(doc *engine.Document, opts options.ProcessingOptions) *result.ProcessingResult {
	raw := chunker.Split(doc.Markdown, opts.ChunkMaxTokens, doc.Items)

	chunks := make([]result.ChunkInfo, 0, len(raw))
	totalTokens := 0
	for i, c := range raw {
		info := result.ChunkInfo{
			Index:      i,
			Preview:    Preview(c.Text),
			PageNum:    c.PageNum,
			TokenCount: c.TokenCount,
		}
		if opts.OutputFormat != options.FormatSummary {
			info.Text = c.Text
		}
		chunks = append(chunks, info)
		totalTokens += c.TokenCount
	}

	res := &result.ProcessingResult{
		Success: true,
		Chunks:  chunks,
		Stats: &result.ProcessingStats{
			NumPages:     doc.NumPages,
			NumTables:    doc.NumTables,
			NumFigures:   doc.NumFigures,
			NumChunks:    len(chunks),
			TotalTokens:  totalTokens,
			PipelineUsed: string(opts.Pipeline),
		},
	}
	if opts.OCREnabled {
		res.Stats.OCRLibraryUsed = string(opts.OCRLibrary)
	}

	switch opts.OutputFormat {
	case options.FormatMarkdown:
		res.Markdown = doc.Markdown
	case options.FormatJSON:
		res.JSONData = doc.Dict
	case options.FormatSummary:
		// Chunks carry previews only; both payload bodies stay empty.
	}

	return res
}

// Preview returns the first previewLength runes of text, with "..." appended
// only when text is strictly longer.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
