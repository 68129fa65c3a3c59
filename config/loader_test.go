package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoader_Layers(t *testing.T) {
	tmp := t.TempDir()
	userPath := filepath.Join(tmp, "home", UserConfigDir, UserConfigFile)
	project := filepath.Join(tmp, "project")
	work := filepath.Join(project, "sub", "dir")
	require.NoError(t, os.MkdirAll(work, 0755))

	writeConfig(t, userPath, "validation:\n  strictness: strict\nreport:\n  format: json\n")
	writeConfig(t, filepath.Join(project, ProjectConfigFile), "content:\n  root: core\nvalidation:\n  strictness: off\n")

	loader := NewLoader(nil, WithUserConfigPath(userPath), WithWorkDir(work))

	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, "off", cfg.Validation.Strictness, "project overrides user")
	assert.Equal(t, FormatJSON, cfg.Report.Format, "user setting survives")
	assert.Equal(t, filepath.Join(project, "core"), cfg.Content.Root, "root is anchored to the project config")

	explicit := filepath.Join(tmp, "ci.json")
	writeConfig(t, explicit, `{"validation": {"strictness": "warn"}, "content": {"root": "/abs/root"}}`)

	cfg, err = loader.Load(explicit)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Validation.Strictness)
	assert.Equal(t, "/abs/root", cfg.Content.Root)
}

func TestLoader_ProjectDisablesUserBooleans(t *testing.T) {
	tmp := t.TempDir()
	userPath := filepath.Join(tmp, "home", UserConfigDir, UserConfigFile)
	writeConfig(t, userPath, "content:\n  recursive: true\nvalidation:\n  require_rules: true\n")
	writeConfig(t, filepath.Join(tmp, ProjectConfigFile), "content:\n  recursive: false\n  bundles: []\n")

	cfg, err := NewLoader(nil, WithUserConfigPath(userPath), WithWorkDir(tmp)).Load("")
	require.NoError(t, err)
	assert.False(t, cfg.LoaderConfig().Recursive)
	assert.Empty(t, cfg.LoaderConfig().Bundles)
	assert.True(t, cfg.ValidatorConfig().RequireRules, "unset in project, kept from user")
}

func TestLoader_DefaultsOnly(t *testing.T) {
	tmp := t.TempDir()
	loader := NewLoader(nil,
		WithUserConfigPath(filepath.Join(tmp, "missing.yaml")),
		WithWorkDir(tmp))

	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_BrokenLayers(t *testing.T) {
	tmp := t.TempDir()
	userPath := filepath.Join(tmp, "user.yaml")
	writeConfig(t, userPath, "content: [")

	loader := NewLoader(nil, WithUserConfigPath(userPath), WithWorkDir(tmp))

	cfg, err := loader.Load("")
	require.NoError(t, err, "broken user config is skipped")
	assert.Equal(t, "bmad-core", cfg.Content.Root)

	_, err = loader.Load(filepath.Join(tmp, "absent.yaml"))
	assert.Error(t, err, "explicit config must exist")

	invalid := filepath.Join(tmp, "invalid.yaml")
	writeConfig(t, invalid, "report:\n  format: xml\n")
	_, err = loader.Load(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

func TestLoader_EnsureProjectConfig(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(nil)

	path, created, err := loader.EnsureProjectConfig(dir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(dir, ProjectConfigFile), path)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Rules, cfg.Rules)

	_, created, err = loader.EnsureProjectConfig(dir)
	require.NoError(t, err)
	assert.False(t, created)
}
