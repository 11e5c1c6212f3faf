package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semfetch.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semfetch"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger

	// home and cwd resolve the search locations; replaced in tests.
	home func() (string, error)
	cwd  func() (string, error)

	mu      sync.Mutex
	sources []string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger,
		home:   os.UserHomeDir,
		cwd:    os.Getwd,
	}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/semfetch/config.yaml)
// 3. Project config (semfetch.yaml in current or parent directories)
//
// Unreadable layers are logged and skipped.
func (l *Loader) Load() (*Config, error) {
	return l.load(false)
}

// Reload rebuilds the configuration from the same layers as Load but fails
// when any existing layer cannot be read, so a half-written file never
// replaces a running config with one missing that layer's settings.
func (l *Loader) Reload() (*Config, error) {
	return l.load(true)
}

func (l *Loader) load(strict bool) (*Config, error) {
	config := DefaultConfig()
	var sources []string

	layers := []struct{ name, path string }{
		{"user", l.userConfigPath()},
		{"project", l.findProjectConfig()},
	}
	for _, layer := range layers {
		if layer.path == "" {
			l.logger.Debug("No config layer found", slog.String("layer", layer.name))
			continue
		}
		loaded, err := l.applyLayer(config, layer.path, layer.name)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("%s config %s: %w", layer.name, layer.path, err)
			}
			l.logger.Warn("Failed to load config layer",
				slog.String("layer", layer.name),
				slog.String("path", layer.path),
				slog.String("error", err.Error()))
			continue
		}
		if loaded {
			sources = append(sources, layer.path)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.sources = sources
	l.mu.Unlock()
	return config, nil
}

// applyLayer merges the file at path into config. A missing file is not an
// error and reports loaded=false.
func (l *Loader) applyLayer(config *Config, path, layer string) (bool, error) {
	var overlay Config
	if err := readInto(path, &overlay); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	config.Merge(&overlay)
	l.logger.Debug("Loaded config layer", slog.String("layer", layer), slog.String("path", path))
	return true, nil
}

// Sources returns the files merged by the last Load, lowest precedence first.
func (l *Loader) Sources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sources...)
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist.
// It returns the path of the file.
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil
	}

	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := l.home()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semfetch.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir, err := l.cwd()
	if err != nil {
		return ""
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
