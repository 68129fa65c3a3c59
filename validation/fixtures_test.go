package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/personacheck/source"
	"github.com/c360studio/personacheck/source/parser"
	"github.com/stretchr/testify/require"
)

const tddAgent = "# tdd\n\nACTIVATION-NOTICE: This file contains your full agent operating guidelines.\n\n```yaml\n" + `agent:
  name: Taylor
  id: tdd
  title: Test-Driven Development Coach
  icon: 🧪
persona:
  role: Test-Driven Development Coach
commands:
  - help: Show numbered list of commands
  - enforce: Run the enforce-tdd-cycle task
  - validate: Run the validate-test-first task
  - feedback: Run the run-tests-feedback task
  - plan: Create a test plan from the template
  - exit: Leave the persona
dependencies:
  tasks:
    - enforce-tdd-cycle.md
    - validate-test-first.md
    - run-tests-feedback.md
  templates:
    - test-plan-tmpl.yaml
` + "```\n"

const enforceTask = `# Enforce TDD Cycle

Guide the developer through Red-Green-Refactor.

## RED PHASE
Write a failing test.

## GREEN PHASE
Make it pass.

## REFACTOR PHASE
Clean up.

## TDD Results
Summarise the cycle.
`

const validateTask = `# Validate Test First

Confirm test-first discipline: tests are written before implementation.
Flag a TDD VIOLATION when code lands without failing tests.
`

const feedbackTask = `# Run Tests Feedback

Run the test suite (jest or pytest), report coverage and give feedback.
`

const testPlanTemplate = `test_plan:
  title: Test plan
  tdd_phase: RED
  phases:
    - RED
    - GREEN
    - REFACTOR
`

const tddBundle = "# Web Agent Bundle Instructions\n\n" +
	"==================== START: .bmad-core/agents/tdd.md ====================\n" +
	tddAgent +
	"==================== END: .bmad-core/agents/tdd.md ====================\n"

// tddCorpus returns the files of a complete TDD persona content root, keyed
// relative to the root. The built bundle sits beside the root.
func tddCorpus() map[string]string {
	return map[string]string{
		"agents/tdd.md":                 tddAgent,
		"tasks/enforce-tdd-cycle.md":    enforceTask,
		"tasks/validate-test-first.md":  validateTask,
		"tasks/run-tests-feedback.md":   feedbackTask,
		"templates/test-plan-tmpl.yaml": testPlanTemplate,
		DefaultBundle:                   tddBundle,
	}
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "bmad-core")
	require.NoError(t, os.MkdirAll(root, 0755))
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func loadCorpus(t *testing.T, files map[string]string) *source.Set {
	t.Helper()
	root := writeCorpus(t, files)
	loader := source.NewLoader(source.LoaderConfig{
		Dirs:    []string{"agents", "tasks", "templates"},
		Bundles: []string{DefaultBundle},
	}, parser.NewRegistry(parser.NewBlockExtractor("", "")), nil)
	set, err := loader.Load(context.Background(), root)
	require.NoError(t, err)
	return set
}
