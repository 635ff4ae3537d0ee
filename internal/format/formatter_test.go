package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/options"
)

func testDoc() *engine.Document {
	return &engine.Document{
		Markdown:   "# Title\n\nA short body paragraph.\n",
		Dict:       map[string]interface{}{"schema_name": "DoclingDocument"},
		NumPages:   3,
		NumTables:  1,
		NumFigures: 2,
	}
}

func TestFormatMarkdownShape(t *testing.T) {
	opts := options.Defaults()
	res := New().Format(testDoc(), opts)

	require.True(t, res.Success)
	require.NotEmpty(t, res.Markdown)
	require.Nil(t, res.JSONData)
	require.NotEmpty(t, res.Chunks)
	require.NotEmpty(t, res.Chunks[0].Text)
}

func TestFormatJSONShape(t *testing.T) {
	opts := options.Defaults()
	opts.OutputFormat = options.FormatJSON
	res := New().Format(testDoc(), opts)

	require.Empty(t, res.Markdown)
	require.Equal(t, "DoclingDocument", res.JSONData["schema_name"])
	require.NotEmpty(t, res.Chunks[0].Text)
}

func TestFormatSummaryShape(t *testing.T) {
	opts := options.Defaults()
	opts.OutputFormat = options.FormatSummary
	res := New().Format(testDoc(), opts)

	require.Empty(t, res.Markdown)
	require.Nil(t, res.JSONData)
	require.NotEmpty(t, res.Chunks)
	for _, c := range res.Chunks {
		require.Empty(t, c.Text)
		require.NotEmpty(t, c.Preview)
	}
}

func TestFormatStats(t *testing.T) {
	opts := options.Defaults()
	res := New().Format(testDoc(), opts)

	require.Equal(t, 3, res.Stats.NumPages)
	require.Equal(t, 1, res.Stats.NumTables)
	require.Equal(t, 2, res.Stats.NumFigures)
	require.Equal(t, len(res.Chunks), res.Stats.NumChunks)
	require.Equal(t, "standard", res.Stats.PipelineUsed)
	require.Equal(t, "easyocr", res.Stats.OCRLibraryUsed)

	total := 0
	for _, c := range res.Chunks {
		total += c.TokenCount
	}
	require.Equal(t, total, res.Stats.TotalTokens)
}

func TestFormatOCRLibraryOmittedWhenDisabled(t *testing.T) {
	opts := options.Defaults()
	opts.OCREnabled = false
	res := New().Format(testDoc(), opts)
	require.Empty(t, res.Stats.OCRLibraryUsed)
}

func TestFormatEmptyDocument(t *testing.T) {
	doc := &engine.Document{Markdown: ""}
	res := New().Format(doc, options.Defaults())
	require.True(t, res.Success)
	require.Empty(t, res.Chunks)
	require.Equal(t, 0, res.Stats.NumChunks)
	require.NotNil(t, res.Chunks) // serializes as [], not null
}

func TestPreviewBoundary(t *testing.T) {
	exactly := strings.Repeat("a", 100)
	require.Equal(t, exactly, Preview(exactly))

	longer := strings.Repeat("a", 101)
	require.Equal(t, exactly+"...", Preview(longer))

	require.Equal(t, "short", Preview("short"))
}

func TestPreviewCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 100)
	require.Equal(t, text, Preview(text))
	require.Equal(t, text+"...", Preview(text+"é"))
}
