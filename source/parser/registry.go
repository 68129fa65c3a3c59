package parser

import (
	"path"
	"strings"
	"sync"

	"github.com/c360studio/personacheck/source"
)

// Parser extracts block metadata from one kind of document.
type Parser interface {
	// Parse returns the block metadata, or nil when the document has none.
	Parse(path, content string) (*source.Block, error)

	// Extensions returns the lower-case file extensions handled.
	Extensions() []string
}

// Registry selects a parser by file extension. It implements
// source.BlockParser.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // keyed by extension
}

var _ source.BlockParser = (*Registry)(nil)

// NewRegistry creates a registry with the markdown and YAML parsers
// registered for the given extractor.
func NewRegistry(extractor BlockExtractor) *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}
	r.Register(NewMarkdownParser(extractor))
	r.Register(NewYAMLParser())
	return r
}

// Register adds a parser for each of its extensions.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// GetByExtension returns the parser for a file, or nil.
func (r *Registry) GetByExtension(filename string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parsers[strings.ToLower(path.Ext(filename))]
}

// ParseBlock parses the block of a document. Files without a registered
// parser have no block.
func (r *Registry) ParseBlock(filename, content string) (*source.Block, error) {
	p := r.GetByExtension(filename)
	if p == nil {
		return nil, nil
	}
	return p.Parse(filename, content)
}
