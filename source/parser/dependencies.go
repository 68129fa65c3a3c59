package parser

import (
	"strings"

	"github.com/c360studio/personacheck/source"
	"gopkg.in/yaml.v3"
)

// dependenciesKey is the top-level key holding the dependency mapping.
const dependenciesKey = "dependencies"

// ParseBlock decodes structured block text. Only a mapping whose
// "dependencies" key maps category names to sequences of filenames is
// understood; other keys are ignored apart from id, title and name, which
// are read from the top level or from a nested "agent" mapping.
//
// A missing dependencies key yields an empty reference list. A block that is
// not a mapping, or whose dependencies are shaped differently, is a
// *ParseError.
func ParseBlock(path, text string) (*source.Block, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, &ParseError{Path: path, Msg: "invalid YAML", Err: err}
	}

	block := &source.Block{}
	if root.Kind == 0 || len(root.Content) == 0 {
		return block, nil
	}

	top := root.Content[0]
	if top.Kind == yaml.ScalarNode && top.ShortTag() == "!!null" {
		return block, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Line: top.Line, Msg: "structured block must be a mapping"}
	}

	readMetadata(top, block)
	if agent := mappingValue(top, "agent"); agent != nil && agent.Kind == yaml.MappingNode {
		readMetadata(agent, block)
	}

	deps := mappingValue(top, dependenciesKey)
	if deps == nil || isNull(deps) {
		return block, nil
	}
	if deps.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Line: deps.Line, Msg: "dependencies must map categories to lists"}
	}

	for i := 0; i+1 < len(deps.Content); i += 2 {
		key, value := deps.Content[i], deps.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return nil, &ParseError{Path: path, Line: key.Line, Msg: "dependency category must be a name"}
		}
		if isNull(value) {
			continue
		}
		if value.Kind != yaml.SequenceNode {
			return nil, &ParseError{Path: path, Line: value.Line, Msg: "dependency category " + key.Value + " must be a list"}
		}
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || strings.TrimSpace(item.Value) == "" {
				return nil, &ParseError{Path: path, Line: item.Line, Msg: "dependency in " + key.Value + " must be a filename"}
			}
			block.Dependencies = append(block.Dependencies, source.Reference{
				Category: key.Value,
				Path:     strings.TrimSpace(item.Value),
			})
		}
	}

	return block, nil
}

// readMetadata fills empty id, title and name fields from scalar keys.
func readMetadata(m *yaml.Node, block *source.Block) {
	set := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v := mappingValue(m, key); v != nil && v.Kind == yaml.ScalarNode && !isNull(v) {
			*dst = v.Value
		}
	}
	set(&block.ID, "id")
	set(&block.Title, "title")
	set(&block.Name, "name")
}

// mappingValue returns the value node for key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Kind == yaml.ScalarNode && m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}
