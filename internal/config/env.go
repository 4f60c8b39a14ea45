package config

import (
	"math"
	"os"
	"strconv"
	"strings"
)

type envKind int

const (
	envFlag envKind = iota
	envInt
)

// envOverride is an environment variable read with the lenient rules the
// plugin has always used: flags are on unless exactly "0", and integers
// accept any finite number (truncated) and otherwise keep the fallback.
type envOverride struct {
	name string
	key  string
	kind envKind
}

var envOverrides = []envOverride{
	{"COMPOUND_LOG_OBSERVATIONS", "observations.enabled", envFlag},
	{"COMPOUND_AUTO", "auto.enabled", envFlag},
	{"COMPOUND_PRIME_ON_START", "start.prime", envFlag},
	{"COMPOUND_REFRESH_ON_START", "start.refresh", envFlag},
	{"COMPOUND_NUDGE_INJECT", "nudge.inject", envFlag},
	{"COMPOUND_NUDGE_TOOL", "nudge.tool", envFlag},

	{"COMPOUND_OBSERVATIONS_MAX_BYTES", "observations.max_bytes", envInt},
	{"COMPOUND_OBSERVATIONS_MAX_BACKUPS", "observations.max_backups", envInt},
	{"COMPOUND_OBSERVATIONS_TAIL_MAX_BYTES", "observations.tail_max_bytes", envInt},
	{"COMPOUND_OBSERVATIONS_MAX_STRING_CHARS", "observations.max_string_chars", envInt},
	{"COMPOUND_OBSERVATIONS_MAX_OBJECT_KEYS", "observations.max_object_keys", envInt},
	{"COMPOUND_AUTO_COOLDOWN_SECONDS", "auto.cooldown_seconds", envInt},
	{"COMPOUND_AUTO_MIN_NEW_OBSERVATIONS", "auto.min_new_observations", envInt},
	{"COMPOUND_AUTO_MAX_OBSERVATIONS_IN_PROMPT", "auto.max_observations_in_prompt", envInt},
	{"COMPOUND_AUTO_PROMPT_MAX_CHARS", "auto.prompt_max_chars", envInt},
	{"COMPOUND_NUDGE_TOOL_COOLDOWN_SECONDS", "nudge.tool_cooldown_seconds", envInt},
}

// envFallbacks snapshots the file/default value of every lenient key.
func (l *Loader) envFallbacks() map[string]interface{} {
	out := make(map[string]interface{}, len(envOverrides))
	for _, o := range envOverrides {
		out[o.key] = l.v.Get(o.key)
	}
	return out
}

// applyEnv pins every lenient key whose variable is present. Values set this
// way take precedence over viper's own environment lookup.
func (l *Loader) applyEnv(fallbacks map[string]interface{}) {
	for _, o := range envOverrides {
		raw, ok := os.LookupEnv(o.name)
		if !ok {
			continue
		}
		switch o.kind {
		case envFlag:
			l.v.Set(o.key, raw != "0")
		case envInt:
			if raw == "" {
				continue
			}
			if n, ok := parseLenientInt(raw); ok {
				l.v.Set(o.key, n)
			} else {
				l.v.Set(o.key, fallbacks[o.key])
			}
		}
	}
}

func parseLenientInt(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}
