// Package parser extracts structured metadata blocks from persona documents.
package parser

import (
	"strings"

	"github.com/c360studio/personacheck/source"
	"gopkg.in/yaml.v3"
)

// MarkdownParser extracts the first fenced structured block from markdown,
// falling back to YAML frontmatter when there is no fenced block.
type MarkdownParser struct {
	extractor BlockExtractor
}

// NewMarkdownParser creates a markdown parser using the given extractor.
func NewMarkdownParser(extractor BlockExtractor) *MarkdownParser {
	return &MarkdownParser{extractor: extractor}
}

// Parse returns the document's block metadata, or nil when it has none.
func (p *MarkdownParser) Parse(path, content string) (*source.Block, error) {
	if inner, ok := p.extractor.Extract(content); ok {
		return ParseBlock(path, inner)
	}
	if strings.HasPrefix(content, "---\n") || strings.HasPrefix(content, "---\r\n") {
		if fm, ok := extractFrontmatter(content); ok {
			return ParseBlock(path, fm)
		}
	}
	return nil, nil
}

// Extensions returns the file extensions handled by this parser.
func (p *MarkdownParser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// extractFrontmatter returns the YAML between the leading "---" delimiters.
func extractFrontmatter(content string) (string, bool) {
	const delimiter = "---"

	// Skip the opening delimiter
	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		return "", false
	}
	return content[start : start+closeIdx], true
}

// YAMLParser treats the whole document as the structured block.
type YAMLParser struct{}

// NewYAMLParser creates a YAML document parser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Parse decodes the document body. Only a top-level mapping carrying
// dependencies, agent or id is a block; lists, scalars, unparseable text and
// plain data mappings are ordinary content.
func (p *YAMLParser) Parse(path, content string) (*source.Block, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(content), &root); err != nil || len(root.Content) == 0 {
		return nil, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, nil
	}
	for _, key := range blockKeys {
		if mappingValue(top, key) != nil {
			return ParseBlock(path, content)
		}
	}
	return nil, nil
}

// blockKeys mark a YAML document as carrying persona metadata.
var blockKeys = []string{dependenciesKey, "agent", "id"}

// Extensions returns the file extensions handled by this parser.
func (p *YAMLParser) Extensions() []string {
	return []string{".yaml", ".yml"}
}
