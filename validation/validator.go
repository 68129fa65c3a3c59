// Package validation checks the referential integrity and required content
// markers of a loaded persona document set. Every check is independent and
// produces one report entry; failures never stop later checks.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/personacheck/source"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds parallel check evaluation.
const defaultConcurrency = 4

// Config configures a Validator.
type Config struct {
	// Strictness applies to dependencies found outside their category's
	// directory.
	Strictness Strictness

	// Categories maps dependency categories to content directories.
	// Unmapped categories use a directory of the same name.
	Categories map[string]string

	// Timeout is the wall-clock budget for a run. Zero disables it.
	Timeout time.Duration

	// Concurrency bounds parallel checks.
	Concurrency int

	// RequireRules rejects an empty rule table.
	RequireRules bool
}

// DefaultConfig returns the default validator settings.
func DefaultConfig() Config {
	return Config{
		Strictness: StrictnessWarn,
		Categories: map[string]string{
			"tasks":     "tasks",
			"templates": "templates",
		},
		Concurrency: defaultConcurrency,
	}
}

// Validator evaluates rule tables against document sets. It holds no state
// between runs.
type Validator struct {
	config   Config
	resolver resolver
	logger   *slog.Logger
}

// NewValidator creates a validator.
func NewValidator(config Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Strictness == "" {
		config.Strictness = StrictnessWarn
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &Validator{
		config:   config,
		resolver: newResolver(config.Categories),
		logger:   logger,
	}
}

// check computes one report entry.
type check func() Entry

// Validate runs every check and returns the report. The error is nil when
// all entries pass, an *AggregateValidationError when any fails, a
// *TimeoutError when the budget expires, or a *ConfigError for an unusable
// rule table. The report is returned alongside every error except
// configuration errors.
func (v *Validator) Validate(ctx context.Context, set *source.Set, rules []Rule) (*Report, error) {
	if set == nil {
		return nil, &ConfigError{Msg: "no document set"}
	}
	if v.config.RequireRules && len(rules) == 0 {
		return nil, &ConfigError{Msg: "rule table is empty"}
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	if v.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.config.Timeout)
		defer cancel()
	}

	checks := v.plan(set, rules)
	entries := make([]Entry, len(checks))
	done := make([]bool, len(checks))

	var g errgroup.Group
	g.SetLimit(v.config.Concurrency)
	for i, c := range checks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			entries[i] = c()
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Entries: make([]Entry, 0, len(checks))}
	for i := range checks {
		if done[i] {
			report.Entries = append(report.Entries, entries[i])
		}
	}

	if report.Len() < len(checks) {
		v.logger.Warn("Validation interrupted",
			"completed", report.Len(),
			"total", len(checks),
			"error", ctx.Err())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return report, &TimeoutError{Report: report, Completed: report.Len(), Total: len(checks)}
		}
		return report, fmt.Errorf("validation interrupted: %w", ctx.Err())
	}

	failed := len(report.Failures())
	v.logger.Debug("Validation complete",
		"checks", report.Len(),
		"failed", failed,
		"warnings", report.Warnings())

	if failed > 0 {
		return report, &AggregateValidationError{Report: report}
	}
	return report, nil
}

// plan lists the checks in report order: load failures, then per-document
// block and dependency checks, then the rule table.
func (v *Validator) plan(set *source.Set, rules []Rule) []check {
	var checks []check

	for _, f := range set.Failures() {
		checks = append(checks, fixed(Entry{
			Rule:    RuleDocumentLoad,
			Path:    f.Path,
			Message: f.Err.Error(),
		}))
	}

	for _, doc := range set.Documents() {
		if doc.BlockErr != nil {
			checks = append(checks, fixed(Entry{
				Rule:    RuleStructuredBlock,
				Path:    doc.Path,
				Message: doc.BlockErr.Error(),
			}))
		}
		for _, ref := range doc.Dependencies() {
			checks = append(checks, v.dependencyCheck(set, doc, ref))
		}
	}

	for _, rule := range rules {
		checks = append(checks, v.ruleChecks(set, rule)...)
	}
	return checks
}

// fixed wraps a precomputed entry.
func fixed(e Entry) check {
	return func() Entry { return e }
}

// dependencyCheck verifies that ref resolves to a loaded document.
func (v *Validator) dependencyCheck(set *source.Set, doc *source.Document, ref source.Reference) check {
	return func() Entry {
		e := Entry{
			Rule:   RuleDependencyResolution,
			Path:   doc.Path,
			Target: ref.String(),
		}
		target, res := v.resolver.resolve(set, ref)
		switch res {
		case resolved:
			e.Passed = true
		case mismatched:
			e.Passed, e.Warning, e.Message = v.mismatch(ref, target)
		case missing:
			e.Message = fmt.Sprintf("%s not found", target)
		}
		return e
	}
}

// mismatch applies the strictness policy to a reference found at target
// instead of its category's directory.
func (v *Validator) mismatch(ref source.Reference, target string) (passed, warning bool, msg string) {
	msg = fmt.Sprintf("%s reference found at %s, outside %s", ref.Category, target, v.resolver.expected(ref))
	switch v.config.Strictness {
	case StrictnessStrict:
		return false, false, msg
	case StrictnessOff:
		return true, false, ""
	default:
		return true, true, msg
	}
}

// ruleChecks expands a rule into one check per (document, marker).
func (v *Validator) ruleChecks(set *source.Set, rule Rule) []check {
	docs := rule.matches(set)
	if len(docs) == 0 {
		target := ""
		if len(rule.Contains) > 0 {
			target = strings.Join(rule.Contains, ", ")
		}
		return []check{fixed(Entry{
			Rule:    rule.Name,
			Path:    rule.Document,
			Target:  target,
			Message: "no document matches " + rule.Document,
		})}
	}

	var checks []check
	for _, doc := range docs {
		if rule.Dependency != "" {
			checks = append(checks, v.dependencyRuleChecks(set, rule, doc)...)
			continue
		}
		checks = append(checks, markerChecks(rule, doc, "")...)
	}
	return checks
}

// dependencyRuleChecks resolves the rule's dependency of doc and checks the
// markers against it.
func (v *Validator) dependencyRuleChecks(set *source.Set, rule Rule, doc *source.Document) []check {
	var (
		ref   source.Reference
		found bool
	)
	for _, r := range doc.Dependencies() {
		if rule.declares(r) {
			ref, found = r, true
			break
		}
	}

	if !found {
		markers := rule.Contains
		if len(markers) == 0 {
			markers = []string{""}
		}
		out := make([]check, 0, len(markers))
		for _, m := range markers {
			out = append(out, fixed(Entry{
				Rule:    rule.Name,
				Path:    doc.Path,
				Target:  m,
				Message: fmt.Sprintf("dependency %s is not declared", rule.Dependency),
			}))
		}
		return out
	}

	// An unresolved dependency is already a failed dependency-resolution
	// entry; its markers are not checked.
	target, res := v.resolver.resolve(set, ref)
	if res == missing || (res == mismatched && v.config.Strictness == StrictnessStrict) {
		return nil
	}

	dep, _ := set.Get(target)
	return markerChecks(rule, dep, "via "+doc.Path)
}

// markerChecks builds one substring check per marker, or a single existence
// entry when the rule has none.
func markerChecks(rule Rule, doc *source.Document, note string) []check {
	if len(rule.Contains) == 0 {
		return []check{fixed(Entry{Rule: rule.Name, Path: doc.Path, Passed: true, Message: note})}
	}

	checks := make([]check, 0, len(rule.Contains))
	for _, marker := range rule.Contains {
		checks = append(checks, func() Entry {
			e := Entry{
				Rule:    rule.Name,
				Path:    doc.Path,
				Target:  marker,
				Passed:  strings.Contains(doc.Content, marker),
				Message: note,
			}
			if !e.Passed {
				e.Message = joinMessage(note, fmt.Sprintf("missing %q", marker))
			}
			return e
		})
	}
	return checks
}

func joinMessage(a, b string) string {
	if a == "" {
		return b
	}
	return a + ": " + b
}
