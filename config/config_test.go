package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/personacheck/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "bmad-core", cfg.Content.Root)
	assert.Equal(t, []string{"agents", "tasks", "templates", "checklists", "data"}, cfg.Content.Dirs)
	assert.Equal(t, []string{"../dist/agents/tdd.txt"}, cfg.LoaderConfig().Bundles)
	assert.Equal(t, "```yaml", cfg.Block.Open)
	assert.Equal(t, "```", cfg.Block.Close)
	assert.Equal(t, "warn", cfg.Validation.Strictness)
	assert.Equal(t, FormatText, cfg.Report.Format)
	assert.Len(t, cfg.Rules, len(validation.DefaultRules()))
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing root",
			modify:  func(c *Config) { c.Content.Root = "" },
			wantErr: true,
		},
		{
			name:    "no dirs but bundles",
			modify:  func(c *Config) { c.Content.Dirs = nil; c.Content.Bundles = []string{"dist/team.txt"} },
			wantErr: false,
		},
		{
			name:    "no dirs or bundles",
			modify:  func(c *Config) { c.Content.Dirs = nil; c.Content.Bundles = nil },
			wantErr: true,
		},
		{
			name:    "empty close marker",
			modify:  func(c *Config) { c.Block.Close = "" },
			wantErr: true,
		},
		{
			name:    "unknown strictness",
			modify:  func(c *Config) { c.Validation.Strictness = "loud" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Validation.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "duplicate rule",
			modify:  func(c *Config) { c.Rules = append(c.Rules, c.Rules[0]) },
			wantErr: true,
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Report.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "nats url without subject",
			modify:  func(c *Config) { c.NATS.URL = "nats://localhost:4222"; c.NATS.Subject = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		content := `
content:
  root: ./content
  dirs: [agents, tasks]
validation:
  strictness: strict
  timeout: 30s
rules:
  - name: notice
    document: agents/*.md
    contains: ["ACTIVATION-NOTICE:"]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "./content", cfg.Content.Root)
		assert.Equal(t, []string{"agents", "tasks"}, cfg.Content.Dirs)
		assert.Equal(t, "strict", cfg.Validation.Strictness)
		assert.Equal(t, 30*time.Second, cfg.Validation.Timeout)
		require.Len(t, cfg.Rules, 1)
		assert.Equal(t, "notice", cfg.Rules[0].Name)
		// Unset fields keep defaults
		assert.Equal(t, "```yaml", cfg.Block.Open)
		assert.Equal(t, "tasks", cfg.Content.Categories["tasks"])
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		content := `{"content": {"root": "core"}, "report": {"format": "json", "out_dir": "out"}, "validation": {"timeout": "2m"}}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "core", cfg.Content.Root)
		assert.Equal(t, FormatJSON, cfg.Report.Format)
		assert.Equal(t, "out", cfg.Report.OutDir)
		assert.Equal(t, 2*time.Minute, cfg.Validation.Timeout)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))

		_, err := LoadFromFile(path)
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(dir, "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("content: [unclosed"), 0644))

		_, err := LoadFromFile(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "personacheck.yaml")

	cfg := DefaultConfig()
	cfg.Validation.Timeout = 45 * time.Second
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 45s")
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{
		Content: ContentConfig{
			Root:       "other",
			Categories: map[string]string{"checklists": "core/checklists"},
		},
		Validation: ValidationConfig{Strictness: "off", RequireRules: Bool(true)},
		NATS:       NATSConfig{URL: "nats://localhost:4222"},
	}

	base.Merge(other)

	assert.Equal(t, "other", base.Content.Root)
	assert.Equal(t, []string{"agents", "tasks", "templates", "checklists", "data"}, base.Content.Dirs)
	assert.Equal(t, "tasks", base.Content.Categories["tasks"])
	assert.Equal(t, "core/checklists", base.Content.Categories["checklists"])
	assert.Equal(t, "off", base.Validation.Strictness)
	assert.True(t, base.ValidatorConfig().RequireRules)
	assert.Equal(t, []string{validation.DefaultBundle}, base.Content.Bundles)
	assert.Equal(t, "nats://localhost:4222", base.NATS.URL)
	assert.Equal(t, "personacheck.report", base.NATS.Subject)
	assert.Len(t, base.Rules, len(validation.DefaultRules()))

	base.Merge(nil)
	assert.Equal(t, "other", base.Content.Root)
}

func TestConfigMerge_OverlayCanDisable(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Content:    ContentConfig{Recursive: Bool(true)},
		Validation: ValidationConfig{RequireRules: Bool(true)},
	})
	require.True(t, base.LoaderConfig().Recursive)
	require.True(t, base.ValidatorConfig().RequireRules)

	base.Merge(&Config{
		Content:    ContentConfig{Recursive: Bool(false), Bundles: []string{}},
		Validation: ValidationConfig{RequireRules: Bool(false)},
	})
	assert.False(t, base.LoaderConfig().Recursive)
	assert.False(t, base.ValidatorConfig().RequireRules)
	assert.Empty(t, base.LoaderConfig().Bundles)

	// Unset fields leave the lower layer alone
	base.Merge(&Config{Content: ContentConfig{Recursive: Bool(true)}})
	base.Merge(&Config{})
	assert.True(t, base.LoaderConfig().Recursive)
}

func TestConfigConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validation.Strictness = "strict"
	cfg.Validation.Concurrency = 2
	cfg.Content.Exclude = []string{"**/draft-*"}

	lc := cfg.LoaderConfig()
	assert.Equal(t, cfg.Content.Dirs, lc.Dirs)
	assert.Equal(t, []string{"**/draft-*"}, lc.Exclude)
	assert.Equal(t, 2, lc.Concurrency)

	vc := cfg.ValidatorConfig()
	assert.Equal(t, validation.StrictnessStrict, vc.Strictness)
	assert.Equal(t, 2, vc.Concurrency)
	assert.Equal(t, cfg.Content.Categories, vc.Categories)

	ext := cfg.Extractor()
	assert.Equal(t, "```yaml", ext.Open)
}
