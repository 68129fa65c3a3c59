package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "personacheck.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/personacheck"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkDir sets the directory the project config search starts from.
func WithWorkDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.workDir = dir
	}
}

// WithUserConfigPath overrides the user config location.
func WithUserConfigPath(path string) LoaderOption {
	return func(l *Loader) {
		l.userPath = path
	}
}

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger   *slog.Logger
	workDir  string
	userPath string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/personacheck/config.yaml)
// 3. Project config (personacheck.yaml in current or parent directories)
// 4. The explicit file, when path is not empty
//
// A broken user or project config is logged and skipped. A broken explicit
// file is an error.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if overlay, err := readOverlay(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(overlay)
		} else if !os.IsNotExist(err) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if overlay, err := readOverlay(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(overlay)
			l.anchorRoot(config, overlay, projectConfigPath)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config.Merge(overlay)
		l.anchorRoot(config, overlay, path)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// EnsureProjectConfig writes a project config with defaults into dir unless
// one already exists. It returns the config path.
func (l *Loader) EnsureProjectConfig(dir string) (string, bool, error) {
	path := filepath.Join(dir, ProjectConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", false, err
	}

	l.logger.Info("Created project config", slog.String("path", path))
	return path, true, nil
}

// readOverlay decodes a file without defaults so that Merge only applies
// the fields it sets.
func readOverlay(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	overlay := &Config{}
	if err := decodeFile(path, overlay); err != nil {
		return nil, err
	}
	return overlay, nil
}

// anchorRoot resolves a relative content root set by a config file against
// the file's directory.
func (l *Loader) anchorRoot(config, overlay *Config, path string) {
	if overlay.Content.Root == "" || filepath.IsAbs(overlay.Content.Root) {
		return
	}
	config.Content.Root = filepath.Join(filepath.Dir(path), overlay.Content.Root)
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.userPath != "" {
		return l.userPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for personacheck.yaml in the working directory
// and its parents
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
