/**
 * Markdown-structure-aware chunker.
 *
 * Splits converted markdown into retrieval-sized chunks: top-level headings
 * start new chunks, blocks accumulate until the token budget, and any single
 * block larger than the budget is window-split on token boundaries. The
 * budget is a hard ceiling, never exceeded.
 */

package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/doclab/doclab/internal/engine"
)

// Chunk is one slice of the document with optional page provenance.
type Chunk struct {
	Text       string
	PageNum    *int
	TokenCount int
}

// Split chunks markdown with the given token budget, attributing pages from
// the document items when possible.
func Split(markdown string, maxTokens int, items []engine.DocItem) []Chunk {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	if maxTokens < 1 {
		maxTokens = 1
	}

	pages := buildPageIndex(markdown, items)
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var (
		chunks  []Chunk
		pending []string
		tokens  int
		offset  int // markdown offset of the first pending block
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		body := strings.Join(pending, "\n\n")
		chunks = append(chunks, Chunk{
			Text:       body,
			PageNum:    pages.pageAt(offset),
			TokenCount: CountTokens(body),
		})
		pending = nil
		tokens = 0
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blockStart := blockOffset(node, len(source))
		block := blockText(node, source)
		if strings.TrimSpace(block) == "" {
			continue
		}

		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			flush()
		}

		n := CountTokens(block)
		if tokens+n > maxTokens {
			flush()
		}

		if n > maxTokens {
			// The block alone exceeds the budget: emit token windows directly.
			for _, piece := range SplitByTokens(block, maxTokens) {
				chunks = append(chunks, Chunk{
					Text:       piece,
					PageNum:    pages.pageAt(blockStart),
					TokenCount: CountTokens(piece),
				})
			}
			continue
		}

		if len(pending) == 0 {
			offset = blockStart
		}
		pending = append(pending, block)
		tokens += n
	}
	flush()

	return chunks
}

// blockText reassembles the source text covered by a block node, including
// nested children (lists, block quotes).
func blockText(node ast.Node, source []byte) string {
	if node.Type() == ast.TypeBlock && node.Lines().Len() > 0 {
		var b strings.Builder
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		raw := b.String()
		if node.Kind() == ast.KindHeading {
			return strings.Repeat("#", node.(*ast.Heading).Level) + " " + strings.TrimSpace(raw)
		}
		return strings.TrimRight(raw, "\n")
	}

	var parts []string
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if t := blockText(child, source); strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// blockOffset returns the source offset of the first line of node, or max
// when unknown.
func blockOffset(node ast.Node, max int) int {
	if node.Lines().Len() > 0 {
		return node.Lines().At(0).Start
	}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if off := blockOffset(child, max); off < max {
			return off
		}
	}
	return max
}
