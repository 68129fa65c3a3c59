package reportpublisher

import (
	"fmt"

	"github.com/c360studio/personacheck/output/report"
	"github.com/c360studio/personacheck/validation"
)

// ReportMessage is the payload published for each validation run.
type ReportMessage struct {
	// Summary describes the run
	Summary *report.Summary `json:"summary"`

	// Failures lists the failing entries in report order
	Failures []validation.Entry `json:"failures,omitempty"`

	// Feedback is the markdown rendering of failures and warnings
	Feedback string `json:"feedback,omitempty"`
}

// NewReportMessage builds the payload for a run. rep may be nil.
func NewReportMessage(summary *report.Summary, rep *validation.Report) *ReportMessage {
	msg := &ReportMessage{Summary: summary}
	if rep != nil {
		msg.Failures = rep.Failures()
		msg.Feedback = rep.FormatFeedback()
	}
	return msg
}

// Validate checks the message is publishable.
func (m *ReportMessage) Validate() error {
	if m.Summary == nil {
		return fmt.Errorf("summary is required")
	}
	if m.Summary.RunID == "" {
		return fmt.Errorf("summary.run_id is required")
	}
	return nil
}
