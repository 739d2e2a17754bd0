package transcript

import (
	"strings"
	"unicode/utf8"
)

// Splitter defaults, sized for embedding models with short input windows.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Split breaks text into chunks of at most size bytes, carrying roughly
// overlap bytes of trailing context into the next chunk. Cuts prefer a
// paragraph break, then a line break, then a sentence end, then a word
// boundary; a mid-word hard cut only happens when the window contains no
// boundary at all. Never splits inside a UTF-8 sequence.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := breakPoint(text, start, end)
		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := runeStart(text, cut-overlap)
		if next <= start {
			next = cut // always make forward progress
		}
		start = next
	}
	return chunks
}

var boundaries = []string{"\n\n", "\n", ". ", " "}

// breakPoint picks the cut position for the chunk starting at start, at
// or before end. Boundaries in the back half of the window are accepted;
// anything earlier would produce runt chunks, so those fall through to
// the next separator and finally to a hard cut.
func breakPoint(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range boundaries {
		if i := strings.LastIndex(window, sep); i >= len(window)/2 {
			return start + i + len(sep)
		}
	}
	return runeStart(text, end)
}

// runeStart walks i back to the nearest UTF-8 sequence start.
func runeStart(s string, i int) int {
	if i < 0 {
		return 0
	}
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
