package chunker

import "regexp"

// wordPattern matches words (including hyphen/underscore compounds) and any
// remaining non-space runes as single tokens. It approximates subword
// tokenizer counts closely enough for chunk budgeting.
var wordPattern = regexp.MustCompile(`\w+(?:[-_]\w+)*|\S`)

// Tokenize splits text into budget-counting tokens.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// CountTokens returns the number of tokens in text.
func CountTokens(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// SplitByTokens splits text into pieces of at most maxTokens tokens each,
// preserving the original whitespace between tokens inside each piece.
func SplitByTokens(text string, maxTokens int) []string {
	if maxTokens < 1 {
		maxTokens = 1
	}
	idx := wordPattern.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return nil
	}

	var pieces []string
	for start := 0; start < len(idx); start += maxTokens {
		end := start + maxTokens
		if end > len(idx) {
			end = len(idx)
		}
		pieces = append(pieces, text[idx[start][0]:idx[end-1][1]])
	}
	return pieces
}
