package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/personacheck/validation"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func sampleReport() *validation.Report {
	return &validation.Report{Entries: []validation.Entry{
		{Rule: validation.RuleDependencyResolution, Path: "agents/tdd.md", Target: "tasks/enforce-tdd-cycle.md", Passed: true},
		{Rule: validation.RuleDependencyResolution, Path: "agents/tdd.md", Target: "tasks/plan.yaml", Passed: true, Warning: true, Message: "found at templates/plan.yaml"},
		{Rule: "enforce-tdd-cycle", Path: "tasks/enforce-tdd-cycle.md", Target: "RED PHASE", Message: `via agents/tdd.md: missing "RED PHASE"`},
	}}
}

func TestNewSummary(t *testing.T) {
	rep := sampleReport()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	err := &validation.AggregateValidationError{Report: rep}

	s := NewSummary("bmad-core", 5, rep, err, "failed", started, 1500*time.Millisecond)

	_, perr := uuid.Parse(s.RunID)
	assert.NoError(t, perr)
	assert.Equal(t, "bmad-core", s.Root)
	assert.Equal(t, time.UTC, s.StartedAt.Location())
	assert.Equal(t, int64(1500), s.DurationMS)
	assert.Equal(t, 3, s.Checks)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Warnings)
	assert.False(t, s.Success)
	assert.Equal(t, map[string]int{"enforce-tdd-cycle": 1}, s.Rules)
	assert.Equal(t, err.Error(), s.Error)

	clean := NewSummary("r", 1, &validation.Report{Entries: []validation.Entry{{Rule: "a", Passed: true}}}, nil, "passed", started, 0)
	assert.True(t, clean.Success)
	assert.Nil(t, clean.Rules)
	assert.NotEqual(t, s.RunID, clean.RunID)

	none := NewSummary("r", 0, nil, errors.New("boom"), "error", started, 0)
	assert.False(t, none.Success)
	assert.Zero(t, none.Checks)
}

func TestWriter_Write(t *testing.T) {
	base := t.TempDir()
	rep := sampleReport()
	summary := NewSummary("bmad-core", 5, rep, &validation.AggregateValidationError{Report: rep}, "failed", time.Now(), time.Second)

	dir, err := NewWriter(base, nil).Write(summary, rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run_"+summary.RunID), dir)

	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.RunID, decoded.RunID)
	assert.Equal(t, 1, decoded.Failed)

	f, err := os.Open(filepath.Join(dir, EntriesFile))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"rule", "path", "target", "passed", "warning", "message"}, records[0])
	assert.Equal(t, []string{"enforce-tdd-cycle", "tasks/enforce-tdd-cycle.md", "RED PHASE", "false", "false", `via agents/tdd.md: missing "RED PHASE"`}, records[3])

	feedback, err := os.ReadFile(filepath.Join(dir, FeedbackFile))
	require.NoError(t, err)
	assert.Contains(t, string(feedback), "## Validation Failed")
}

func TestWriter_CleanRunHasNoFeedback(t *testing.T) {
	rep := &validation.Report{Entries: []validation.Entry{{Rule: "a", Path: "x.md", Passed: true}}}
	summary := NewSummary("r", 1, rep, nil, "passed", time.Now(), 0)

	dir, err := NewWriter(t.TempDir(), nil).Write(summary, rep)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, FeedbackFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "PASS  dependency-resolution  agents/tdd.md  [tasks/enforce-tdd-cycle.md]\n")
	assert.Contains(t, out, "WARN  dependency-resolution  agents/tdd.md  [tasks/plan.yaml]  found at templates/plan.yaml\n")
	assert.Contains(t, out, `FAIL  enforce-tdd-cycle  tasks/enforce-tdd-cycle.md  [RED PHASE]  via agents/tdd.md: missing "RED PHASE"`)
	assert.Contains(t, out, "3 checks, 2 passed, 1 failed, 1 warnings")
}

func TestRenderJSON(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, RenderJSON(&a, sampleReport()))
	require.NoError(t, RenderJSON(&b, sampleReport()))
	assert.Equal(t, a.String(), b.String())

	var decoded validation.Report
	require.NoError(t, json.Unmarshal(a.Bytes(), &decoded))
	assert.Equal(t, sampleReport(), &decoded)
}

func TestRenderRules(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRules(&buf, validation.DefaultRules()))

	out := buf.String()
	assert.Contains(t, out, "enforce-tdd-cycle  agents/tdd.md -> enforce-tdd-cycle.md (5 markers)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("enforce-tdd-cycle")), bytes.Index(buf.Bytes(), []byte("tdd-agent-commands")))
}
