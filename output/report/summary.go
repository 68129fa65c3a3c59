// Package report renders validation reports for the console and writes
// per-run artifacts to disk.
package report

import (
	"time"

	"github.com/c360studio/personacheck/validation"
	"github.com/google/uuid"
)

// Summary describes one validation run. Unlike the report itself it carries
// run identity and timing.
type Summary struct {
	RunID      string         `json:"run_id"`
	Root       string         `json:"root"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Documents  int            `json:"documents"`
	Checks     int            `json:"checks"`
	Passed     int            `json:"passed"`
	Failed     int            `json:"failed"`
	Warnings   int            `json:"warnings"`
	Success    bool           `json:"success"`
	Outcome    string         `json:"outcome"`
	Rules      map[string]int `json:"failed_by_rule,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// NewSummary summarises a run. report may be nil when validation could not
// start; err is the error Validate returned.
func NewSummary(root string, documents int, rep *validation.Report, err error, outcome string, started time.Time, duration time.Duration) *Summary {
	s := &Summary{
		RunID:      uuid.NewString(),
		Root:       root,
		StartedAt:  started.UTC(),
		DurationMS: duration.Milliseconds(),
		Documents:  documents,
		Outcome:    outcome,
	}
	if err != nil {
		s.Error = err.Error()
	}
	if rep == nil {
		return s
	}

	s.Checks = rep.Len()
	s.Failed = len(rep.Failures())
	s.Passed = s.Checks - s.Failed
	s.Warnings = rep.Warnings()
	s.Success = err == nil && s.Failed == 0

	for rule, counts := range rep.ByRule() {
		if counts[1] == 0 {
			continue
		}
		if s.Rules == nil {
			s.Rules = make(map[string]int)
		}
		s.Rules[rule] = counts[1]
	}
	return s
}
