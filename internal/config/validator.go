package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// MinStringChars is the smallest accepted observations.max_string_chars.
const MinStringChars = 64

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateObservations(&cfg.Observations)
	v.validateAuto(&cfg.Auto)
	v.validateNudge(&cfg.Nudge)
	v.validateLoom(&cfg.Loom)
	v.validateHost(&cfg.Host)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateObservations(cfg *ObservationsConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		v.addError("observations.path", cfg.Path, "path required")
	}
	if cfg.MaxBytes <= 0 {
		v.addError("observations.max_bytes", cfg.MaxBytes, "must be positive")
	}
	if cfg.MaxBackups < 0 {
		v.addError("observations.max_backups", cfg.MaxBackups, "must be non-negative")
	}
	if cfg.TailMaxBytes <= 0 {
		v.addError("observations.tail_max_bytes", cfg.TailMaxBytes, "must be positive")
	}
	if cfg.MaxStringChars < MinStringChars {
		v.addError("observations.max_string_chars", cfg.MaxStringChars, fmt.Sprintf("must be at least %d", MinStringChars))
	}
	if cfg.MaxObjectKeys <= 0 {
		v.addError("observations.max_object_keys", cfg.MaxObjectKeys, "must be positive")
	}
}

func (v *Validator) validateAuto(cfg *AutoConfig) {
	if cfg.CooldownSeconds < 0 {
		v.addError("auto.cooldown_seconds", cfg.CooldownSeconds, "must be non-negative")
	}
	if cfg.MinNewObservations < 0 {
		v.addError("auto.min_new_observations", cfg.MinNewObservations, "must be non-negative")
	}
	if cfg.MaxObservationsInPrompt <= 0 {
		v.addError("auto.max_observations_in_prompt", cfg.MaxObservationsInPrompt, "must be positive")
	}
	if cfg.PromptMaxChars <= 200 {
		v.addError("auto.prompt_max_chars", cfg.PromptMaxChars, "must be greater than 200")
	}
	if cfg.PromptPath == "" {
		v.addError("auto.prompt_path", cfg.PromptPath, "path required")
	}
	if cfg.StatusPath == "" {
		v.addError("auto.status_path", cfg.StatusPath, "path required")
	}
}

func (v *Validator) validateNudge(cfg *NudgeConfig) {
	// Below the engine's minimum the cooldown is clamped, not rejected.
	if cfg.ToolCooldownSeconds < 0 {
		v.addError("nudge.tool_cooldown_seconds", cfg.ToolCooldownSeconds, "must be non-negative")
	}
}

func (v *Validator) validateLoom(cfg *LoomConfig) {
	if strings.TrimSpace(cfg.Bin) == "" {
		v.addError("loom.bin", cfg.Bin, "binary required")
	}
}

func (v *Validator) validateHost(cfg *HostConfig) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError("host.url", cfg.URL, "must be an http(s) URL")
	}
	if d, err := time.ParseDuration(cfg.Timeout); err != nil {
		v.addError("host.timeout", cfg.Timeout, "invalid duration format")
	} else if d <= 0 {
		v.addError("host.timeout", cfg.Timeout, "must be positive")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	for _, origin := range cfg.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			v.addError("server.cors_origins", origin, "origin cannot be empty")
		}
	}
}

func isValidPath(path string) bool {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
// The returned error is a validation DomainError wrapping ValidationErrors.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	if err := v.Validate(cfg); err != nil {
		return core.ErrValidation(core.CodeInvalidConfig, "invalid configuration").WithCause(err)
	}
	return nil
}
