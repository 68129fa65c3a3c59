package parser

import "strings"

// Default fence markers for structured blocks.
const (
	DefaultOpenMarker  = "```yaml"
	DefaultCloseMarker = "```"
)

// BlockExtractor locates the first fenced structured block in a document.
type BlockExtractor struct {
	Open  string
	Close string
}

// NewBlockExtractor returns an extractor for the given marker pair. Empty
// markers fall back to the defaults.
func NewBlockExtractor(open, close string) BlockExtractor {
	if open == "" {
		open = DefaultOpenMarker
	}
	if close == "" {
		close = DefaultCloseMarker
	}
	return BlockExtractor{Open: open, Close: close}
}

// Extract returns the inner text of the first block. The open marker must
// end its line and the close marker must begin one; an unterminated block
// counts as absent. Only the first block is ever considered.
func (e BlockExtractor) Extract(text string) (string, bool) {
	start, ok := e.findOpen(text)
	if !ok {
		return "", false
	}

	body := text[start:]
	offset := 0
	for offset <= len(body) {
		line := body[offset:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), e.Close) {
			return body[:offset], true
		}
		if offset+len(line) >= len(body) {
			break
		}
		offset += len(line) + 1
	}
	return "", false
}

// findOpen returns the index just past the open marker's line.
func (e BlockExtractor) findOpen(text string) (int, bool) {
	from := 0
	for {
		i := strings.Index(text[from:], e.Open)
		if i < 0 {
			return 0, false
		}
		i += from
		rest := text[i+len(e.Open):]

		eol := strings.IndexByte(rest, '\n')
		tail := rest
		if eol >= 0 {
			tail = rest[:eol]
		}
		if strings.TrimRight(tail, " \t\r") == "" {
			if eol < 0 {
				return len(text), true
			}
			return i + len(e.Open) + eol + 1, true
		}
		from = i + len(e.Open)
	}
}
