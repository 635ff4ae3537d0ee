package chunker

import (
	"sort"
	"strings"

	"github.com/doclab/doclab/internal/engine"
)

// pageIndex maps markdown offsets to page numbers using document item
// provenance. Items are located by searching for a prefix of their text in
// the markdown, scanning forward from the previous match so repeated
// snippets resolve in document order.
type pageIndex struct {
	marks []pageMark
}

type pageMark struct {
	offset int
	page   int
}

const itemPrefixLen = 48

func buildPageIndex(markdown string, items []engine.DocItem) *pageIndex {
	idx := &pageIndex{}
	cursor := 0
	for _, item := range items {
		if item.Page <= 0 {
			continue
		}
		needle := strings.TrimSpace(item.Text)
		if needle == "" {
			continue
		}
		if len(needle) > itemPrefixLen {
			needle = needle[:itemPrefixLen]
		}
		pos := strings.Index(markdown[cursor:], needle)
		if pos < 0 {
			continue
		}
		abs := cursor + pos
		idx.marks = append(idx.marks, pageMark{offset: abs, page: item.Page})
		cursor = abs
	}
	return idx
}

// pageAt returns the page for a chunk starting at the given markdown
// offset, or nil when no item provenance exists. Chunks start at block
// boundaries, so the first item at or after the offset is the chunk's own
// content; only chunks past the last item fall back to the preceding mark.
func (p *pageIndex) pageAt(offset int) *int {
	if len(p.marks) == 0 {
		return nil
	}
	i := sort.Search(len(p.marks), func(i int) bool {
		return p.marks[i].offset >= offset
	})
	if i == len(p.marks) {
		i--
	}
	page := p.marks[i].page
	return &page
}
