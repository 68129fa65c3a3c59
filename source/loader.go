package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds concurrent file reads when none is configured.
const defaultConcurrency = 8

// BlockParser extracts structured block metadata from a document. It returns
// (nil, nil) when the document has no block.
type BlockParser interface {
	ParseBlock(path, content string) (*Block, error)
}

// LoaderConfig configures document discovery.
type LoaderConfig struct {
	// Dirs lists the content subdirectories to load (e.g. agents, tasks).
	Dirs []string

	// Recursive descends into nested directories when true.
	Recursive bool

	// Include and Exclude are doublestar patterns matched against the
	// slash-separated path relative to the root. Empty Include matches all.
	Include []string
	Exclude []string

	// Bundles lists bundle files, relative to the root unless absolute.
	Bundles []string

	// Concurrency bounds concurrent reads.
	Concurrency int
}

// Loader reads a content root into a Set.
type Loader struct {
	config LoaderConfig
	parser BlockParser
	logger *slog.Logger
}

// NewLoader creates a loader. parser may be nil, in which case no structured
// blocks are parsed.
func NewLoader(config LoaderConfig, parser BlockParser, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &Loader{
		config: config,
		parser: parser,
		logger: logger,
	}
}

// candidate is a file scheduled for reading.
type candidate struct {
	rel    string
	abs    string
	bundle bool
}

// readResult holds the outcome of reading one candidate.
type readResult struct {
	docs []*Document
	err  *FileError
}

// Load reads every document under root. A missing root is fatal; individual
// unreadable files are recorded in the returned Set.
func (l *Loader) Load(ctx context.Context, root string) (*Set, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: root}
		}
		return nil, fmt.Errorf("stat content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory: %w", root, ErrNotFound)
	}

	candidates, failures := l.discover(root)

	results := make([]readResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.read(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	var docs []*Document
	for _, r := range results {
		if r.err != nil {
			l.logger.Warn("Failed to load document",
				"path", r.err.Path,
				"error", r.err.Err)
			failures = append(failures, r.err)
			continue
		}
		docs = append(docs, r.docs...)
	}

	set := NewSet(root, docs, failures)
	l.logger.Debug("Loaded content root",
		"root", root,
		"documents", set.Len(),
		"failures", len(failures))
	return set, nil
}

// discover lists candidate files in the configured directories and bundles.
func (l *Loader) discover(root string) ([]candidate, []*FileError) {
	var (
		candidates []candidate
		failures   []*FileError
	)

	for _, dir := range l.config.Dirs {
		dirPath := filepath.Join(root, filepath.FromSlash(dir))
		if _, err := os.Stat(dirPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Warn("Content directory missing", "dir", dir)
				continue
			}
			failures = append(failures, &FileError{Path: dir, Kind: ErrIO, Err: err})
			continue
		}

		found, err := l.listDir(root, dirPath)
		if err != nil {
			failures = append(failures, &FileError{Path: dir, Kind: ErrIO, Err: err})
			continue
		}
		candidates = append(candidates, found...)
	}

	for _, b := range l.config.Bundles {
		abs := b
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, filepath.FromSlash(b))
		}
		candidates = append(candidates, candidate{
			rel:    path.Clean(filepath.ToSlash(b)),
			abs:    abs,
			bundle: true,
		})
	}

	return candidates, failures
}

// listDir returns the files in dirPath, descending when configured.
func (l *Loader) listDir(root, dirPath string) ([]candidate, error) {
	var out []candidate

	add := func(abs string) error {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if l.selected(rel) {
			out = append(out, candidate{rel: rel, abs: abs})
		}
		return nil
	}

	if !l.config.Recursive {
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if err := add(filepath.Join(dirPath, e.Name())); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	err := filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != dirPath {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return add(p)
	})
	return out, err
}

// selected applies the include and exclude patterns.
func (l *Loader) selected(rel string) bool {
	for _, pattern := range l.config.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(l.config.Include) == 0 {
		return true
	}
	for _, pattern := range l.config.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// read loads one candidate, splitting bundles into their sections.
func (l *Loader) read(c candidate) readResult {
	data, err := os.ReadFile(c.abs)
	if err != nil {
		kind := ErrIO
		if c.bundle && errors.Is(err, fs.ErrNotExist) {
			kind = ErrNotFound
		}
		return readResult{err: &FileError{Path: c.rel, Kind: kind, Err: err}}
	}

	content := string(data)
	doc := l.newDocument(c.rel, content, OriginFile, "")
	docs := []*Document{doc}

	if c.bundle {
		for _, section := range SplitBundle(content) {
			docs = append(docs, l.newDocument(c.rel+"#"+section.Path, section.Content, OriginBundle, c.rel))
		}
	}
	return readResult{docs: docs}
}

func (l *Loader) newDocument(rel, content string, origin Origin, bundle string) *Document {
	doc := &Document{
		Path:    rel,
		Content: content,
		Origin:  origin,
		Bundle:  bundle,
		Hash:    ContentHash([]byte(content)),
	}
	// Bundle sections are copies; their blocks are checked at the source.
	if l.parser != nil && origin == OriginFile {
		doc.Block, doc.BlockErr = l.parser.ParseBlock(rel, content)
	}
	return doc
}

// ContentHash computes a SHA256 hash of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
