// Package config provides configuration loading and management for
// personacheck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/personacheck/source"
	"github.com/c360studio/personacheck/source/parser"
	"github.com/c360studio/personacheck/validation"
	"gopkg.in/yaml.v3"
)

// Report output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the complete personacheck configuration
type Config struct {
	Content    ContentConfig     `yaml:"content" json:"content"`
	Block      BlockConfig       `yaml:"block" json:"block"`
	Validation ValidationConfig  `yaml:"validation" json:"validation"`
	Rules      []validation.Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
	Report     ReportConfig      `yaml:"report" json:"report"`
	Metrics    MetricsConfig     `yaml:"metrics" json:"metrics"`
	NATS       NATSConfig        `yaml:"nats" json:"nats"`
}

// ContentConfig describes the content root and how to discover documents
type ContentConfig struct {
	// Root is the content root directory
	Root string `yaml:"root" json:"root"`
	// Dirs lists the subdirectories of Root to load
	Dirs []string `yaml:"dirs" json:"dirs"`
	// Recursive descends into nested directories. Nil leaves the lower
	// layer's setting in place.
	Recursive *bool `yaml:"recursive,omitempty" json:"recursive,omitempty"`
	// Include and Exclude are doublestar patterns relative to Root
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	// Bundles lists concatenated bundle files, relative to Root. An explicit
	// empty list clears the defaults.
	Bundles []string `yaml:"bundles" json:"bundles"`
	// Categories maps dependency categories to directories under Root
	Categories map[string]string `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// BlockConfig sets the structured block markers
type BlockConfig struct {
	Open  string `yaml:"open" json:"open"`
	Close string `yaml:"close" json:"close"`
}

// ValidationConfig configures the validator
type ValidationConfig struct {
	// Strictness is strict, warn or off
	Strictness string `yaml:"strictness" json:"strictness"`
	// Timeout bounds a run (0 = no limit)
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Concurrency bounds parallel checks
	Concurrency int `yaml:"concurrency" json:"concurrency"`
	// RequireRules rejects an empty rule table
	RequireRules *bool `yaml:"require_rules,omitempty" json:"require_rules,omitempty"`
}

// ReportConfig configures report artifacts
type ReportConfig struct {
	// OutDir receives run_<id>/ artifact directories (empty = none)
	OutDir string `yaml:"out_dir" json:"out_dir"`
	// Format is text or json
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	// Textfile is the Prometheus textfile path (empty = disabled)
	Textfile string `yaml:"textfile" json:"textfile"`
}

// NATSConfig configures report publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty = disabled)
	URL string `yaml:"url" json:"url"`
	// Subject receives published run summaries
	Subject string `yaml:"subject" json:"subject"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	v := validation.DefaultConfig()
	return &Config{
		Content: ContentConfig{
			Root:       "bmad-core",
			Dirs:       []string{"agents", "tasks", "templates", "checklists", "data"},
			Bundles:    []string{validation.DefaultBundle},
			Categories: v.Categories,
		},
		Block: BlockConfig{
			Open:  parser.DefaultOpenMarker,
			Close: parser.DefaultCloseMarker,
		},
		Validation: ValidationConfig{
			Strictness:  string(v.Strictness),
			Concurrency: v.Concurrency,
		},
		Rules: validation.DefaultRules(),
		Report: ReportConfig{
			Format: FormatText,
		},
		NATS: NATSConfig{
			Subject: "personacheck.report",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Content.Root == "" {
		return fmt.Errorf("content.root is required")
	}
	if len(c.Content.Dirs) == 0 && len(c.Content.Bundles) == 0 {
		return fmt.Errorf("content.dirs or content.bundles is required")
	}
	if c.Block.Open == "" || c.Block.Close == "" {
		return fmt.Errorf("block.open and block.close are required")
	}
	if _, err := validation.ParseStrictness(c.Validation.Strictness); err != nil {
		return err
	}
	if c.Validation.Timeout < 0 {
		return fmt.Errorf("validation.timeout must not be negative")
	}
	if c.Validation.Concurrency < 0 {
		return fmt.Errorf("validation.concurrency must not be negative")
	}
	if err := validation.ValidateRules(c.Rules); err != nil {
		return err
	}
	switch c.Report.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("report.format must be %s or %s, got %q", FormatText, FormatJSON, c.Report.Format)
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	return nil
}

// LoaderConfig returns the document loader settings.
func (c *Config) LoaderConfig() source.LoaderConfig {
	return source.LoaderConfig{
		Dirs:        c.Content.Dirs,
		Recursive:   isSet(c.Content.Recursive),
		Include:     c.Content.Include,
		Exclude:     c.Content.Exclude,
		Bundles:     c.Content.Bundles,
		Concurrency: c.Validation.Concurrency,
	}
}

// ValidatorConfig returns the validator settings. Strictness must already
// have passed Validate.
func (c *Config) ValidatorConfig() validation.Config {
	strictness, _ := validation.ParseStrictness(c.Validation.Strictness)
	return validation.Config{
		Strictness:   strictness,
		Categories:   c.Content.Categories,
		Timeout:      c.Validation.Timeout,
		Concurrency:  c.Validation.Concurrency,
		RequireRules: isSet(c.Validation.RequireRules),
	}
}

// Extractor returns the structured block extractor.
func (c *Config) Extractor() parser.BlockExtractor {
	return parser.NewBlockExtractor(c.Block.Open, c.Block.Close)
}

// LoadFromFile loads configuration from a YAML or JSON file. Fields the file
// omits keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// decodeFile decodes a YAML or JSON file into config.
func decodeFile(path string, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// JSON is a YAML subset; one decoder keeps durations like "30s" working
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one. Other takes precedence for
// non-zero values, set booleans and non-nil bundle lists.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Content
	if other.Content.Root != "" {
		c.Content.Root = other.Content.Root
	}
	if len(other.Content.Dirs) > 0 {
		c.Content.Dirs = other.Content.Dirs
	}
	if other.Content.Recursive != nil {
		c.Content.Recursive = other.Content.Recursive
	}
	if len(other.Content.Include) > 0 {
		c.Content.Include = other.Content.Include
	}
	if len(other.Content.Exclude) > 0 {
		c.Content.Exclude = other.Content.Exclude
	}
	if other.Content.Bundles != nil {
		c.Content.Bundles = other.Content.Bundles
	}
	if len(other.Content.Categories) > 0 {
		merged := make(map[string]string, len(c.Content.Categories)+len(other.Content.Categories))
		for k, v := range c.Content.Categories {
			merged[k] = v
		}
		for k, v := range other.Content.Categories {
			merged[k] = v
		}
		c.Content.Categories = merged
	}

	// Block
	if other.Block.Open != "" {
		c.Block.Open = other.Block.Open
	}
	if other.Block.Close != "" {
		c.Block.Close = other.Block.Close
	}

	// Validation
	if other.Validation.Strictness != "" {
		c.Validation.Strictness = other.Validation.Strictness
	}
	if other.Validation.Timeout != 0 {
		c.Validation.Timeout = other.Validation.Timeout
	}
	if other.Validation.Concurrency != 0 {
		c.Validation.Concurrency = other.Validation.Concurrency
	}
	if other.Validation.RequireRules != nil {
		c.Validation.RequireRules = other.Validation.RequireRules
	}

	// Rules replace rather than append
	if len(other.Rules) > 0 {
		c.Rules = other.Rules
	}

	// Report
	if other.Report.OutDir != "" {
		c.Report.OutDir = other.Report.OutDir
	}
	if other.Report.Format != "" {
		c.Report.Format = other.Report.Format
	}

	// Metrics
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
}

// Bool returns a pointer to b, for the optional boolean settings.
func Bool(b bool) *bool {
	return &b
}

func isSet(b *bool) bool {
	return b != nil && *b
}
