package validation

import (
	"fmt"
	"strings"
)

// Entry is the outcome of one check.
type Entry struct {
	Rule    string `json:"rule"`
	Path    string `json:"path"`
	Target  string `json:"target,omitempty"`
	Passed  bool   `json:"passed"`
	Warning bool   `json:"warning,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report is the ordered record of every check in a run.
type Report struct {
	Entries []Entry `json:"entries"`
}

// Len returns the number of entries.
func (r *Report) Len() int {
	return len(r.Entries)
}

// Passed reports whether every entry passed.
func (r *Report) Passed() bool {
	for _, e := range r.Entries {
		if !e.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failing entries in report order.
func (r *Report) Failures() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if !e.Passed {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the number of passing entries that carry a warning.
func (r *Report) Warnings() int {
	n := 0
	for _, e := range r.Entries {
		if e.Passed && e.Warning {
			n++
		}
	}
	return n
}

// ByRule counts passing and failing entries per rule name.
func (r *Report) ByRule() map[string][2]int {
	out := make(map[string][2]int)
	for _, e := range r.Entries {
		c := out[e.Rule]
		if e.Passed {
			c[0]++
		} else {
			c[1]++
		}
		out[e.Rule] = c
	}
	return out
}

// FormatFeedback renders the failures and warnings as markdown. It returns
// an empty string for a clean report.
func (r *Report) FormatFeedback() string {
	failures := r.Failures()
	if len(failures) == 0 && r.Warnings() == 0 {
		return ""
	}

	var sb strings.Builder
	if len(failures) > 0 {
		sb.WriteString("## Validation Failed\n\n")
		fmt.Fprintf(&sb, "%d of %d checks failed.\n\n", len(failures), r.Len())
		sb.WriteString("### Failing Checks\n\n")
		for _, e := range failures {
			sb.WriteString("- " + e.describe() + "\n")
		}
		sb.WriteString("\n")
	}

	if r.Warnings() > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, e := range r.Entries {
			if e.Passed && e.Warning {
				sb.WriteString("- " + e.describe() + "\n")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// describe returns a one-line summary of the entry.
func (e Entry) describe() string {
	s := fmt.Sprintf("%s: %s", e.Rule, e.Path)
	if e.Target != "" {
		s += fmt.Sprintf(" [%s]", e.Target)
	}
	if e.Message != "" {
		s += " - " + e.Message
	}
	return s
}
