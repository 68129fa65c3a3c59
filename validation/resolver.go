package validation

import (
	"path"
	"strings"

	"github.com/c360studio/personacheck/source"
)

// resolution is the outcome of resolving a reference.
type resolution int

const (
	resolved resolution = iota
	mismatched
	missing
)

// resolver maps dependency references to document paths.
type resolver struct {
	categories map[string]string
}

func newResolver(categories map[string]string) resolver {
	return resolver{categories: categories}
}

// expected returns the path a reference should resolve to. References that
// contain a slash are taken as root-relative paths.
func (r resolver) expected(ref source.Reference) string {
	if strings.Contains(ref.Path, "/") {
		return path.Clean(strings.TrimPrefix(ref.Path, "/"))
	}
	dir, ok := r.categories[ref.Category]
	if !ok {
		dir = ref.Category
	}
	return path.Join(dir, ref.Path)
}

// resolve finds the document a reference points at. A reference whose file
// only exists under another directory is mismatched and returns that path.
func (r resolver) resolve(set *source.Set, ref source.Reference) (string, resolution) {
	want := r.expected(ref)
	if _, ok := set.Get(want); ok {
		return want, resolved
	}
	for _, p := range set.FindByBase(path.Base(ref.Path)) {
		if p != want {
			return p, mismatched
		}
	}
	return want, missing
}
