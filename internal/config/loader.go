package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ProjectConfigNames are the repository-local config files, highest
// precedence first.
var ProjectConfigNames = []string{
	".compound.yaml",
	filepath.Join(".opencode", "compound", "config.yaml"),
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	root       string
	configFile string
	envPrefix  string
}

// NewLoader creates a loader that searches the current directory.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		root:      ".",
		envPrefix: "COMPOUND",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		root:      ".",
		envPrefix: "COMPOUND",
	}
}

// WithRoot sets the repository root searched for project config files.
func (l *Loader) WithRoot(root string) *Loader {
	l.root = root
	return l
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (COMPOUND_*)
// 3. Project config (.compound.yaml, then .opencode/compound/config.yaml)
// 4. User config (~/.config/compound/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	path := l.configFile
	if path == "" {
		path = l.findConfigFile()
	}
	if path != "" {
		if err := l.mergeFile(path); err != nil {
			return nil, err
		}
	}

	// Lenient env values fall back to what the file and defaults say, so
	// capture those before the environment is consulted.
	fallbacks := l.envFallbacks()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.applyEnv(fallbacks)

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) findConfigFile() string {
	candidates := make([]string, 0, len(ProjectConfigNames)+1)
	for _, name := range ProjectConfigNames {
		candidates = append(candidates, filepath.Join(l.root, name))
	}
	if user, err := UserConfigPath(); err == nil {
		candidates = append(candidates, user)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// mergeFile reads a YAML file, maps legacy key spellings to the canonical
// ones and merges the result over the defaults.
func (l *Loader) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	l.v.SetConfigFile(path)
	if err := l.v.MergeConfigMap(normalizeLegacyConfigMap(raw)); err != nil {
		return fmt.Errorf("merging config: %w", err)
	}
	return nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("observations.enabled", true)
	l.v.SetDefault("observations.path", DefaultObservationsPath)
	l.v.SetDefault("observations.max_bytes", 32*1024*1024)
	l.v.SetDefault("observations.max_backups", 5)
	l.v.SetDefault("observations.tail_max_bytes", 512*1024)
	l.v.SetDefault("observations.max_string_chars", 2000)
	l.v.SetDefault("observations.max_object_keys", 50)

	l.v.SetDefault("auto.enabled", true)
	l.v.SetDefault("auto.cooldown_seconds", 120)
	l.v.SetDefault("auto.min_new_observations", 12)
	l.v.SetDefault("auto.max_observations_in_prompt", 80)
	l.v.SetDefault("auto.prompt_max_chars", 18000)
	l.v.SetDefault("auto.prompt_path", DefaultPromptPath)
	l.v.SetDefault("auto.status_path", DefaultStatusPath)

	l.v.SetDefault("nudge.inject", true)
	l.v.SetDefault("nudge.tool", true)
	l.v.SetDefault("nudge.tool_cooldown_seconds", 45)
	l.v.SetDefault("nudge.command_regex", "")

	l.v.SetDefault("start.prime", false)
	l.v.SetDefault("start.refresh", false)

	l.v.SetDefault("loom.bin", "loom")

	l.v.SetDefault("host.url", DefaultHostURL)
	l.v.SetDefault("host.timeout", "30s")

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", DefaultServerPort)
	l.v.SetDefault("server.cors_origins", []string{})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}
