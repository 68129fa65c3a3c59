package validation

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/personacheck/source"
)

// Built-in rule names for checks the validator generates on its own.
const (
	RuleDocumentLoad         = "document-load"
	RuleStructuredBlock      = "structured-block"
	RuleDependencyResolution = "dependency-resolution"
)

// Strictness controls how a dependency found outside its category's
// directory is reported.
type Strictness string

// StrictnessStrict fails the check, StrictnessWarn passes it with a warning,
// and StrictnessOff passes it silently.
const (
	StrictnessStrict Strictness = "strict"
	StrictnessWarn   Strictness = "warn"
	StrictnessOff    Strictness = "off"
)

// ParseStrictness validates a strictness name. Empty means warn.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictnessWarn:
		return StrictnessWarn, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	case StrictnessOff:
		return StrictnessOff, nil
	default:
		return "", &ConfigError{Msg: fmt.Sprintf("unknown strictness %q (want strict, warn or off)", s)}
	}
}

// Rule is one row of the caller's rule table.
type Rule struct {
	// Name identifies the rule in the report.
	Name string `yaml:"name" json:"name"`

	// Document selects documents by exact path or doublestar pattern.
	Document string `yaml:"document" json:"document"`

	// Dependency, when set, redirects the check to the declared dependency
	// of the selected document with this path, base name, or
	// "category/path".
	Dependency string `yaml:"dependency,omitempty" json:"dependency,omitempty"`

	// Contains lists required literal substrings. A rule without any is an
	// existence check.
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`

	// Description is shown when listing rules.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Validate checks that the rule is well-formed.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ConfigError{Msg: "rule name is required"}
	}
	if strings.TrimSpace(r.Document) == "" {
		return &ConfigError{Msg: fmt.Sprintf("rule %s: document is required", r.Name)}
	}
	if !doublestar.ValidatePattern(r.Document) {
		return &ConfigError{Msg: fmt.Sprintf("rule %s: invalid document pattern %q", r.Name, r.Document)}
	}
	for _, c := range r.Contains {
		if c == "" {
			return &ConfigError{Msg: fmt.Sprintf("rule %s: empty marker", r.Name)}
		}
	}
	return nil
}

// ValidateRules checks every rule and rejects duplicate or reserved names.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
		switch r.Name {
		case RuleDocumentLoad, RuleStructuredBlock, RuleDependencyResolution:
			return &ConfigError{Msg: fmt.Sprintf("rule name %s is reserved", r.Name)}
		}
		if seen[r.Name] {
			return &ConfigError{Msg: fmt.Sprintf("duplicate rule name %s", r.Name)}
		}
		seen[r.Name] = true
	}
	return nil
}

// matches returns the documents selected by the rule, sorted by path.
func (r Rule) matches(set *source.Set) []*source.Document {
	if d, ok := set.Get(r.Document); ok {
		return []*source.Document{d}
	}
	var out []*source.Document
	for _, d := range set.Documents() {
		if ok, _ := doublestar.Match(r.Document, d.Path); ok {
			out = append(out, d)
		}
	}
	return out
}

// declares reports whether ref is the dependency the rule names.
func (r Rule) declares(ref source.Reference) bool {
	dep := strings.TrimSpace(r.Dependency)
	return ref.Path == dep || ref.String() == dep || path.Base(ref.Path) == dep
}
