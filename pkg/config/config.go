package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
)

var (
	// Config is the active configuration, populated by Init.
	Config *Configuration

	// K exposes the raw koanf instance for commands needing ad-hoc lookups.
	K = koanf.New(".")
)

type Configuration struct {
	Trackers      map[string]TrackerConfig `koanf:"trackers"`
	Filter        FilterConfig             `koanf:"filter"`
	Notifications NotificationsConfig      `koanf:"notifications"`
}

// FilterConfig controls which cached profile rows are excluded from searches.
type FilterConfig struct {
	// Ignore holds expr-lang expressions evaluated against each row.
	Ignore []string `koanf:"ignore"`
	// IgnorePatterns holds regex patterns matched against group/artist names.
	IgnorePatterns []string `koanf:"ignore_patterns"`
}

// Init loads configuration from the given YAML file into Config.
func Init(configFilePath string) error {
	if _, err := os.Stat(configFilePath); err != nil {
		return fmt.Errorf("config file not found: %s", configFilePath)
	}

	if err := K.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	cfg := &Configuration{}
	if err := K.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	for key, tracker := range cfg.Trackers {
		if tracker.Name == "" {
			tracker.Name = key
			cfg.Trackers[key] = tracker
		}
	}

	Config = cfg
	return nil
}

// GetDefaultConfigDirectory returns the default configuration directory for
// the given app, preferring an existing directory next to the binary.
func GetDefaultConfigDirectory(app string, configFile string) string {
	if bin, err := os.Executable(); err == nil {
		binDir := filepath.Dir(bin)
		if _, err := os.Stat(filepath.Join(binDir, configFile)); err == nil {
			return binDir
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", app)
	}
	return "."
}
