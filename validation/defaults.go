package validation

// DefaultBundle is the built web bundle of the TDD persona, relative to the
// content root.
const DefaultBundle = "../dist/agents/tdd.txt"

// DefaultRules returns the rule table for the TDD coach persona and its
// task and template dependencies.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "tdd-agent-structure",
			Document:    "agents/tdd.md",
			Contains:    []string{"ACTIVATION-NOTICE:", "```yaml", "agent:", "persona:", "commands:", "dependencies:"},
			Description: "Persona file carries the activation notice and the structured block sections",
		},
		{
			Name:        "tdd-agent-identity",
			Document:    "agents/tdd.md",
			Contains:    []string{"name: Taylor", "id: tdd", "title: Test-Driven Development Coach", "icon: 🧪"},
			Description: "Persona identity fields",
		},
		{
			Name:        "tdd-agent-commands",
			Document:    "agents/tdd.md",
			Contains:    []string{"help:", "enforce", "validate", "feedback", "plan", "exit:"},
			Description: "Persona command set",
		},
		{
			Name:        "enforce-tdd-cycle",
			Document:    "agents/tdd.md",
			Dependency:  "enforce-tdd-cycle.md",
			Contains:    []string{"RED PHASE", "GREEN PHASE", "REFACTOR PHASE", "Red-Green-Refactor", "TDD Results"},
			Description: "Cycle task describes each phase and the results summary",
		},
		{
			Name:        "validate-test-first",
			Document:    "agents/tdd.md",
			Dependency:  "validate-test-first.md",
			Contains:    []string{"test-first", "TDD VIOLATION", "tests are written before implementation", "failing tests"},
			Description: "Test-first task enforces writing failing tests first",
		},
		{
			Name:        "run-tests-feedback",
			Document:    "agents/tdd.md",
			Dependency:  "run-tests-feedback.md",
			Contains:    []string{"test suite", "coverage", "feedback", "jest", "pytest"},
			Description: "Feedback task covers suites, coverage and runners",
		},
		{
			Name:        "test-plan-template",
			Document:    "agents/tdd.md",
			Dependency:  "test-plan-tmpl.yaml",
			Contains:    []string{"test_plan:", "tdd_phase:", "RED", "GREEN", "REFACTOR"},
			Description: "Test plan template tracks the TDD phase",
		},
		{
			Name:        "tdd-bundle",
			Document:    DefaultBundle,
			Contains:    []string{"Web Agent Bundle Instructions", "==================== START: .bmad-core/agents/tdd.md ===================="},
			Description: "Built web bundle embeds the TDD persona",
		},
	}
}
