package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/c360studio/personacheck/validation"
	"github.com/fatih/color"
)

var (
	passStyle = color.New(color.FgGreen)
	warnStyle = color.New(color.FgYellow)
	failStyle = color.New(color.FgRed, color.Bold)
	dimStyle  = color.New(color.Faint)
	boldStyle = color.New(color.Bold)
)

// RenderText writes every entry followed by a totals line. Colour follows
// fatih/color's terminal detection and NO_COLOR.
func RenderText(w io.Writer, rep *validation.Report) error {
	for _, e := range rep.Entries {
		var status string
		switch {
		case !e.Passed:
			status = failStyle.Sprint("FAIL")
		case e.Warning:
			status = warnStyle.Sprint("WARN")
		default:
			status = passStyle.Sprint("PASS")
		}

		line := fmt.Sprintf("%s  %s  %s", status, e.Rule, e.Path)
		if e.Target != "" {
			line += dimStyle.Sprintf("  [%s]", e.Target)
		}
		if e.Message != "" {
			line += "  " + e.Message
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	failed := len(rep.Failures())
	totals := fmt.Sprintf("%d checks, %d passed, %d failed, %d warnings",
		rep.Len(), rep.Len()-failed, failed, rep.Warnings())
	if failed > 0 {
		totals = failStyle.Sprint(totals)
	} else {
		totals = boldStyle.Sprint(totals)
	}
	_, err := fmt.Fprintf(w, "\n%s\n", totals)
	return err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, rep *validation.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// RenderRules lists a rule table, sorted by name.
func RenderRules(w io.Writer, rules []validation.Rule) error {
	sorted := make([]validation.Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, r := range sorted {
		target := r.Document
		if r.Dependency != "" {
			target += " -> " + r.Dependency
		}
		if _, err := fmt.Fprintf(w, "%s  %s (%d markers)\n", boldStyle.Sprint(r.Name), target, len(r.Contains)); err != nil {
			return err
		}
		if r.Description != "" {
			if _, err := fmt.Fprintf(w, "    %s\n", r.Description); err != nil {
				return err
			}
		}
	}
	return nil
}
