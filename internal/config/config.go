// Package config loads compound settings from defaults, YAML files and
// COMPOUND_* environment variables.
package config

// Config holds all application configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Observations ObservationsConfig `mapstructure:"observations" yaml:"observations"`
	Auto         AutoConfig         `mapstructure:"auto" yaml:"auto"`
	Nudge        NudgeConfig        `mapstructure:"nudge" yaml:"nudge"`
	Start        StartConfig        `mapstructure:"start" yaml:"start"`
	Loom         LoomConfig         `mapstructure:"loom" yaml:"loom"`
	Host         HostConfig         `mapstructure:"host" yaml:"host"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
}

// LogConfig configures diagnostic logging. An empty File means stderr.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// ObservationsConfig configures the observation log and its scrubber.
// Path is relative to the repository root unless absolute.
type ObservationsConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Path           string `mapstructure:"path" yaml:"path"`
	MaxBytes       int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
	MaxBackups     int    `mapstructure:"max_backups" yaml:"max_backups"`
	TailMaxBytes   int64  `mapstructure:"tail_max_bytes" yaml:"tail_max_bytes"`
	MaxStringChars int    `mapstructure:"max_string_chars" yaml:"max_string_chars"`
	MaxObjectKeys  int    `mapstructure:"max_object_keys" yaml:"max_object_keys"`
}

// AutoConfig configures the background autolearn step.
type AutoConfig struct {
	Enabled                 bool   `mapstructure:"enabled" yaml:"enabled"`
	CooldownSeconds         int    `mapstructure:"cooldown_seconds" yaml:"cooldown_seconds"`
	MinNewObservations      int    `mapstructure:"min_new_observations" yaml:"min_new_observations"`
	MaxObservationsInPrompt int    `mapstructure:"max_observations_in_prompt" yaml:"max_observations_in_prompt"`
	PromptMaxChars          int    `mapstructure:"prompt_max_chars" yaml:"prompt_max_chars"`
	PromptPath              string `mapstructure:"prompt_path" yaml:"prompt_path"`
	StatusPath              string `mapstructure:"status_path" yaml:"status_path"`
}

// NudgeConfig configures tool nudges and the turn reminder. CommandRegex is
// a ';'-separated list of patterns.
type NudgeConfig struct {
	Inject              bool   `mapstructure:"inject" yaml:"inject"`
	Tool                bool   `mapstructure:"tool" yaml:"tool"`
	ToolCooldownSeconds int    `mapstructure:"tool_cooldown_seconds" yaml:"tool_cooldown_seconds"`
	CommandRegex        string `mapstructure:"command_regex" yaml:"command_regex"`
}

// StartConfig selects the session-start refresh.
type StartConfig struct {
	Prime   bool `mapstructure:"prime" yaml:"prime"`
	Refresh bool `mapstructure:"refresh" yaml:"refresh"`
}

// LoomConfig names the companion CLI.
type LoomConfig struct {
	Bin string `mapstructure:"bin" yaml:"bin"`
}

// HostConfig points at the host's HTTP API.
type HostConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig configures the hook server.
type ServerConfig struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        int      `mapstructure:"port" yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}
