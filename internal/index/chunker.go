// Package index provides document chunking and index maintenance.
package index

import (
	"strings"
	"unicode"
)

// Default chunking parameters, in runes.
const (
	DefaultWindowSize = 1200
	DefaultOverlap    = 200
)

// ChunkerConfig holds the fixed-width sliding window parameters. Both are
// explicit configuration, not hidden constants; overlap is clamped to
// [0, window-1] so the window always advances.
type ChunkerConfig struct {
	WindowSize int
	Overlap    int
}

// DefaultChunkerConfig returns the default chunking configuration.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		WindowSize: DefaultWindowSize,
		Overlap:    DefaultOverlap,
	}
}

// Span is one chunk of a document's text with its rune offset and length
// within the source.
type Span struct {
	Text   string
	Offset int
	Length int
}

// Chunker splits document text into overlapping fixed-width windows.
// Boundaries are rune-based so multi-byte text never splits mid-character.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a Chunker, applying defaults and clamping overlap.
func NewChunker(cfg ChunkerConfig) *Chunker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.WindowSize {
		cfg.Overlap = cfg.WindowSize - 1
	}
	return &Chunker{config: cfg}
}

// Split cuts text into windows of WindowSize runes, each starting Overlap
// runes before the previous window's end. Windows that are whitespace-only
// after trimming are dropped.
func (c *Chunker) Split(text string) []Span {
	runes := []rune(text)
	length := len(runes)
	if length == 0 {
		return nil
	}

	var spans []Span
	start := 0
	for start < length {
		end := start + c.config.WindowSize
		if end > length {
			end = length
		}

		window := runes[start:end]
		lead := leadingSpace(window)
		trimmed := strings.TrimSpace(string(window))
		if trimmed != "" {
			spans = append(spans, Span{
				Text:   trimmed,
				Offset: start + lead,
				Length: len([]rune(trimmed)),
			})
		}

		if end >= length {
			break
		}
		start = end - c.config.Overlap
	}
	return spans
}

func leadingSpace(runes []rune) int {
	n := 0
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}
