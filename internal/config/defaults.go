package config

// Default values shared by the loader and `compound init`.
const (
	DefaultObservationsPath = ".opencode/memory/observations.jsonl"
	DefaultPromptPath       = ".opencode/compound/prompts/autolearn.md"
	DefaultStatusPath       = ".opencode/compound/autolearn_status.json"
	DefaultHostURL          = "http://127.0.0.1:4096"
	DefaultServerPort       = 4319
)

// DefaultConfigYAML is written by `compound init`.
const DefaultConfigYAML = `# Compound configuration
#
# Every key can be overridden with a COMPOUND_ environment variable,
# e.g. COMPOUND_AUTO_COOLDOWN_SECONDS=300.

log:
  level: info
  # auto | text | json
  format: auto
  # Empty logs to stderr. Stdout is reserved for hook replies.
  file: ""

observations:
  enabled: true
  path: .opencode/memory/observations.jsonl
  max_bytes: 33554432
  max_backups: 5
  tail_max_bytes: 524288
  max_string_chars: 2000
  max_object_keys: 50

auto:
  enabled: true
  cooldown_seconds: 120
  min_new_observations: 12
  max_observations_in_prompt: 80
  prompt_max_chars: 18000
  prompt_path: .opencode/compound/prompts/autolearn.md
  status_path: .opencode/compound/autolearn_status.json

nudge:
  inject: true
  tool: true
  tool_cooldown_seconds: 45
  # ';'-separated regular expressions matched against command signatures
  command_regex: ""

start:
  prime: false
  refresh: false

loom:
  bin: loom

host:
  url: http://127.0.0.1:4096
  timeout: 30s

server:
  host: 127.0.0.1
  port: 4319
  cors_origins: []
`
