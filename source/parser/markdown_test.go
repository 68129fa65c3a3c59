package parser

import (
	"testing"

	"github.com/c360studio/personacheck/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParser_Parse_NoBlock(t *testing.T) {
	p := NewMarkdownParser(NewBlockExtractor("", ""))

	content := `# Hello World

This is a test document.

## Section 1

Some content here.
`

	block, err := p.Parse("tasks/hello.md", content)
	require.NoError(t, err)
	assert.Nil(t, block)
}

func TestMarkdownParser_Parse_FencedBlock(t *testing.T) {
	p := NewMarkdownParser(NewBlockExtractor("", ""))

	content := "# tdd\n\nACTIVATION-NOTICE: stay in character\n\n```yaml\n" + tddBlock + "```\n"

	block, err := p.Parse("agents/tdd.md", content)
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, "tdd", block.ID)
	assert.Len(t, block.Dependencies, 4)
}

func TestMarkdownParser_Parse_Frontmatter(t *testing.T) {
	p := NewMarkdownParser(NewBlockExtractor("", ""))

	content := `---
id: checklist
dependencies:
  data:
    - technical-preferences.md
---
# Checklist
`

	block, err := p.Parse("checklists/review.md", content)
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, "checklist", block.ID)
	require.Len(t, block.Dependencies, 1)
	assert.Equal(t, "data", block.Dependencies[0].Category)
}

func TestMarkdownParser_Parse_UnclosedFrontmatter(t *testing.T) {
	p := NewMarkdownParser(NewBlockExtractor("", ""))

	block, err := p.Parse("x.md", "---\nid: x\n# no closing delimiter\n")
	require.NoError(t, err)
	assert.Nil(t, block)
}

func TestMarkdownParser_Parse_Malformed(t *testing.T) {
	p := NewMarkdownParser(NewBlockExtractor("", ""))

	_, err := p.Parse("agents/bad.md", "```yaml\ndependencies: [oops\n```\n")
	assert.ErrorIs(t, err, ErrParse)
}

func TestYAMLParser_Parse(t *testing.T) {
	p := NewYAMLParser()

	block, err := p.Parse("templates/story.yaml", "id: story\n")
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, "story", block.ID)
	assert.Empty(t, block.Dependencies)

	block, err = p.Parse("templates/empty.yaml", "  \n")
	require.NoError(t, err)
	assert.Nil(t, block)
}

func TestYAMLParser_Parse_PlainContent(t *testing.T) {
	p := NewYAMLParser()

	tests := []struct {
		name    string
		content string
	}{
		{"sequence", "- step one\n- step two\n"},
		{"scalar", "just a note\n"},
		{"data mapping", "test_plan:\n  tdd_phase: RED\n"},
		{"unparseable", "key: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := p.Parse("templates/checklist-tmpl.yaml", tt.content)
			require.NoError(t, err)
			assert.Nil(t, block)
		})
	}
}

func TestYAMLParser_Parse_Block(t *testing.T) {
	p := NewYAMLParser()

	block, err := p.Parse("agents/dev.yaml", "agent:\n  id: dev\ndependencies:\n  tasks:\n    - build.md\n")
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, "dev", block.ID)
	assert.Equal(t, []source.Reference{{Category: "tasks", Path: "build.md"}}, block.Dependencies)

	_, err = p.Parse("agents/dev.yaml", "dependencies: build.md\n")
	assert.ErrorIs(t, err, ErrParse)
}
