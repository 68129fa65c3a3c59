// Package source provides the document model and loading for persona content.
package source

import (
	"path"
	"sort"
	"strings"
)

// Origin records where a Document came from.
type Origin string

// OriginFile and OriginBundle enumerate the document origins.
const (
	OriginFile   Origin = "file"
	OriginBundle Origin = "bundle"
)

// Reference is a declared dependency of one document on another.
type Reference struct {
	// Category is the dependency group the reference was declared under
	// (e.g. "tasks", "templates").
	Category string `json:"category" yaml:"category"`

	// Path is the filename as written in the structured block.
	Path string `json:"path" yaml:"path"`
}

// String returns the reference as "category/path".
func (r Reference) String() string {
	return r.Category + "/" + r.Path
}

// Block is the machine-readable metadata extracted from a document's
// structured block.
type Block struct {
	ID           string      `json:"id,omitempty"`
	Title        string      `json:"title,omitempty"`
	Name         string      `json:"name,omitempty"`
	Dependencies []Reference `json:"dependencies,omitempty"`
}

// Document is a text file under the content root.
type Document struct {
	// Path is slash-separated and relative to the content root. Bundle
	// sections use "<bundle path>#<section path>".
	Path string `json:"path"`

	// Content is the raw text.
	Content string `json:"-"`

	// Origin is file or bundle.
	Origin Origin `json:"origin"`

	// Bundle is the bundle path for documents split out of a bundle.
	Bundle string `json:"bundle,omitempty"`

	// Hash is the content hash.
	Hash string `json:"hash"`

	// Block is nil when the document has no structured block.
	Block *Block `json:"block,omitempty"`

	// BlockErr is set when a structured block exists but failed to parse.
	BlockErr error `json:"-"`
}

// HasBlock reports whether a structured block was found and parsed.
func (d *Document) HasBlock() bool {
	return d.Block != nil
}

// Dependencies returns the declared references, or nil.
func (d *Document) Dependencies() []Reference {
	if d.Block == nil {
		return nil
	}
	return d.Block.Dependencies
}

// Dir returns the first path segment of the document, which is the content
// subdirectory it was loaded from.
func (d *Document) Dir() string {
	p := d.Path
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p = p[i+1:]
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// Base returns the final path element.
func (d *Document) Base() string {
	return path.Base(d.Path)
}

// Set is an immutable snapshot of loaded documents.
type Set struct {
	root     string
	docs     map[string]*Document
	paths    []string
	failures []*FileError
}

// NewSet builds a snapshot. Later documents with a duplicate path replace
// earlier ones.
func NewSet(root string, docs []*Document, failures []*FileError) *Set {
	s := &Set{
		root: root,
		docs: make(map[string]*Document, len(docs)),
	}
	for _, d := range docs {
		if d == nil {
			continue
		}
		s.docs[d.Path] = d
	}
	s.paths = make([]string, 0, len(s.docs))
	for p := range s.docs {
		s.paths = append(s.paths, p)
	}
	sort.Strings(s.paths)

	s.failures = append([]*FileError(nil), failures...)
	sort.SliceStable(s.failures, func(i, j int) bool {
		return s.failures[i].Path < s.failures[j].Path
	})
	return s
}

// Root returns the content root the set was loaded from.
func (s *Set) Root() string { return s.root }

// Len returns the number of documents.
func (s *Set) Len() int { return len(s.paths) }

// Get returns the document at path.
func (s *Set) Get(p string) (*Document, bool) {
	d, ok := s.docs[p]
	return d, ok
}

// Paths returns all document paths in sorted order.
func (s *Set) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Documents returns all documents sorted by path.
func (s *Set) Documents() []*Document {
	out := make([]*Document, len(s.paths))
	for i, p := range s.paths {
		out[i] = s.docs[p]
	}
	return out
}

// Failures returns the per-file load failures, sorted by path.
func (s *Set) Failures() []*FileError {
	out := make([]*FileError, len(s.failures))
	copy(out, s.failures)
	return out
}

// FindByBase returns the paths of file documents whose base name is name.
func (s *Set) FindByBase(name string) []string {
	var out []string
	for _, p := range s.paths {
		d := s.docs[p]
		if d.Origin != OriginFile {
			continue
		}
		if path.Base(p) == name {
			out = append(out, p)
		}
	}
	return out
}
