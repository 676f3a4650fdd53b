// Package source reads reference documents from a documents directory.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultMaxFileSize is the largest document read when no limit is set.
const DefaultMaxFileSize = 1024 * 1024

// sniffLen is how many leading bytes the binary sniff inspects.
const sniffLen = 8192

// supportedSuffixes are the document types served from the docs directory.
var supportedSuffixes = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Document is one readable file from the docs directory. Path is relative to
// the directory root, with forward slashes, and is the document's identity
// throughout the index.
type Document struct {
	Path    string
	Content string
}

// DirSource lists text documents under a directory, honoring gitignore-style
// patterns from configuration plus any .gitignore and .docdexignore files at
// the root.
type DirSource struct {
	root        string
	matcher     *gitignore.GitIgnore
	maxFileSize int64
}

// NewDirSource creates a DirSource for the given directory.
func NewDirSource(root string, ignorePatterns []string, maxFileSize int64) (*DirSource, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve docs dir: %w", err)
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	patterns := make([]string, len(ignorePatterns))
	copy(patterns, ignorePatterns)
	for _, name := range []string{".gitignore", ".docdexignore"} {
		if content, err := os.ReadFile(filepath.Join(absRoot, name)); err == nil {
			for _, line := range strings.Split(string(content), "\n") {
				line = strings.TrimSpace(line)
				if line != "" && !strings.HasPrefix(line, "#") {
					patterns = append(patterns, line)
				}
			}
		}
	}

	return &DirSource{
		root:        absRoot,
		matcher:     gitignore.CompileIgnoreLines(patterns...),
		maxFileSize: maxFileSize,
	}, nil
}

// Root returns the absolute docs directory path.
func (s *DirSource) Root() string {
	return s.root
}

// List returns all readable documents sorted by path. A missing docs
// directory yields an empty list, matching a never-populated project.
func (s *DirSource) List(ctx context.Context) ([]Document, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, nil
	}

	var docs []Document
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if s.matcher.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		doc, ok, err := s.read(p, rel, d)
		if err != nil || !ok {
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Accepts reports whether the given relative path would be indexed.
func (s *DirSource) Accepts(rel string) bool {
	rel = filepath.ToSlash(rel)
	if !supportedSuffixes[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	return !s.matcher.MatchesPath(rel)
}

// Read loads a single document by relative path. Returns fs.ErrNotExist when
// the file is missing or not an indexable document.
func (s *DirSource) Read(rel string) (Document, error) {
	if !s.Accepts(rel) {
		return Document{}, fmt.Errorf("unsupported document %s: %w", rel, fs.ErrNotExist)
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return Document{}, err
	}
	doc, ok, err := s.read(full, filepath.ToSlash(rel), fs.FileInfoToDirEntry(info))
	if err != nil {
		return Document{}, err
	}
	if !ok {
		return Document{}, fmt.Errorf("document %s not readable: %w", rel, fs.ErrNotExist)
	}
	return doc, nil
}

func (s *DirSource) read(full, rel string, d fs.DirEntry) (Document, bool, error) {
	if !supportedSuffixes[strings.ToLower(filepath.Ext(rel))] {
		return Document{}, false, nil
	}
	info, err := d.Info()
	if err != nil {
		return Document{}, false, err
	}
	if info.Size() > s.maxFileSize {
		return Document{}, false, nil
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return Document{}, false, err
	}
	if !isText(content) || strings.TrimSpace(string(content)) == "" {
		return Document{}, false, nil
	}
	return Document{Path: rel, Content: string(content)}, true, nil
}

// isText checks that content looks like text, not binary.
func isText(content []byte) bool {
	sample := content
	truncated := false
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
		truncated = true
	}
	for _, b := range sample {
		if b == 0 {
			return false
		}
	}
	if truncated {
		// The cut can land inside a multi-byte rune; drop the partial
		// tail before validating so a long UTF-8 file is not mistaken
		// for binary.
		for i := 0; i < utf8.UTFMax-1 && len(sample) > 0; i++ {
			r, size := utf8.DecodeLastRune(sample)
			if r != utf8.RuneError || size > 1 {
				break
			}
			sample = sample[:len(sample)-1]
		}
	}
	return utf8.Valid(sample)
}
