package scrub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// TruncatedKeysFlag is set on a mapping whose keys were capped.
	TruncatedKeysFlag = "_compound_truncated_keys"

	// DepthPlaceholder replaces subtrees nested deeper than MaxDepth.
	DepthPlaceholder = "{...}"

	// MinStringChars is the smallest accepted per-string cap. Smaller caps
	// leave no room for the truncation marker.
	MinStringChars = 64

	maxRedactPasses = 8
)

var shellToolPattern = regexp.MustCompile(`(?i)bash|shell`)

// IsShellTool reports whether a tool name denotes a shell-like tool whose
// command text must never be persisted.
func IsShellTool(name string) bool {
	return shellToolPattern.MatchString(name)
}

// Options configures a Scrubber.
type Options struct {
	MaxStringChars int
	MaxObjectKeys  int
	MaxDepth       int
	MaxSliceItems  int
	Marker         string
	// ExtraPatterns are additional secret-value regular expressions.
	ExtraPatterns []string
	Signature     SignatureOptions
}

// DefaultOptions returns the production limits.
func DefaultOptions() Options {
	return Options{
		MaxStringChars: 2000,
		MaxObjectKeys:  50,
		MaxDepth:       4,
		MaxSliceItems:  50,
		Marker:         DefaultMarker,
		Signature:      DefaultSignatureOptions(),
	}
}

// Scrubber is a pure, concurrency-safe redaction transform. It holds no
// mutable state after construction.
type Scrubber struct {
	opts     Options
	patterns []valuePattern
}

// New builds a Scrubber. Zero-valued limits fall back to the defaults and
// invalid extra patterns are reported as an error.
func New(opts Options) (*Scrubber, error) {
	def := DefaultOptions()
	if opts.MaxStringChars <= 0 {
		opts.MaxStringChars = def.MaxStringChars
	}
	if opts.MaxStringChars < MinStringChars {
		opts.MaxStringChars = MinStringChars
	}
	if opts.MaxObjectKeys <= 0 {
		opts.MaxObjectKeys = def.MaxObjectKeys
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxSliceItems <= 0 {
		opts.MaxSliceItems = def.MaxSliceItems
	}
	if opts.Marker == "" {
		opts.Marker = def.Marker
	}
	opts.Signature = opts.Signature.withDefaults()

	patterns := defaultValuePatterns()
	for _, p := range opts.ExtraPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling secret pattern %q: %w", p, err)
		}
		patterns = append(patterns, valuePattern{name: "custom", re: re})
	}

	return &Scrubber{opts: opts, patterns: patterns}, nil
}

// Default returns a Scrubber with DefaultOptions.
func Default() *Scrubber {
	s, _ := New(DefaultOptions())
	return s
}

// Options returns the effective options.
func (s *Scrubber) Options() Options {
	return s.opts
}

// Marker returns the redaction marker.
func (s *Scrubber) Marker() string {
	return s.opts.Marker
}

// Redact replaces every secret-shaped span in text with the marker. It does
// not truncate.
func (s *Scrubber) Redact(text string) string {
	out := text
	for pass := 0; pass < maxRedactPasses; pass++ {
		next := out
		for _, p := range s.patterns {
			next = p.replace(next, s.opts.Marker)
		}
		if next == out {
			return out
		}
		out = next
	}
	if s.Leaks(out) {
		return s.opts.Marker
	}
	return out
}

// Leaks reports whether text contains a secret-shaped span that has not been
// replaced by the marker.
func (s *Scrubber) Leaks(text string) bool {
	for _, p := range s.patterns {
		if p.leaks(text, s.opts.Marker) {
			return true
		}
	}
	return false
}

// Matches reports whether any secret-value pattern matches text.
func (s *Scrubber) Matches(text string) bool {
	for _, p := range s.patterns {
		if p.matches(text) {
			return true
		}
	}
	return false
}

// String redacts text and caps it at MaxStringChars.
func (s *Scrubber) String(text string) string {
	return s.bounded(text, s.opts.MaxStringChars)
}

// bounded redacts, truncates, then re-seals the kept prefix: cutting a string
// can turn a harmless run into a secret-shaped span at the new end.
func (s *Scrubber) bounded(text string, maxChars int) string {
	redacted := s.Redact(text)
	total := utf8.RuneCountInString(redacted)
	if total <= maxChars {
		return redacted
	}

	suffix := truncationSuffix(total)
	suffixLen := utf8.RuneCountInString(suffix)
	keep := keepChars(maxChars, suffixLen)
	if keep < 0 {
		return s.Redact(cutRunes(redacted, maxChars))
	}

	for attempt := 0; attempt < 3 && keep > 0; attempt++ {
		// A dangling label ("Bearer ") would capture the suffix as its value.
		sealed := strings.TrimRightFunc(s.Redact(cutRunes(redacted, keep)), unicode.IsSpace)
		if utf8.RuneCountInString(sealed)+suffixLen <= maxChars {
			return sealed + suffix
		}
		keep -= utf8.RuneCountInString(sealed) + suffixLen - maxChars
	}
	return suffix
}

// Value scrubs an arbitrary JSON-shaped tree. Keys are visited in sorted
// order so the key cap is deterministic.
func (s *Scrubber) Value(v any) any {
	return s.value(v, "", 0)
}

func (s *Scrubber) value(v any, key string, depth int) any {
	if depth > s.opts.MaxDepth {
		return DepthPlaceholder
	}
	if key != "" && IsSecretKey(key) {
		return s.opts.Marker
	}

	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return s.String(t)
	case bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return t
	case []any:
		return s.slice(t, key, depth)
	case []string:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = item
		}
		return s.slice(items, key, depth)
	case map[string]any:
		return s.mapping(t, depth)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = item
		}
		return s.mapping(m, depth)
	default:
		// Structs and other shapes are normalized through JSON first.
		data, err := json.Marshal(t)
		if err != nil {
			return s.opts.Marker
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return s.opts.Marker
		}
		return s.value(generic, key, depth)
	}
}

func (s *Scrubber) slice(items []any, key string, depth int) []any {
	n := len(items)
	if n > s.opts.MaxSliceItems {
		n = s.opts.MaxSliceItems
	}
	out := make([]any, 0, n)
	for _, item := range items[:n] {
		out = append(out, s.value(item, key, depth+1))
	}
	return out
}

func (s *Scrubber) mapping(m map[string]any, depth int) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	limit := s.opts.MaxObjectKeys
	out := make(map[string]any, min(len(keys), limit)+1)
	for i, k := range keys {
		if i >= limit {
			break
		}
		// Keys are text too; a secret pasted as a key must not survive.
		outKey := s.Redact(k)
		if IsSecretKey(k) {
			out[outKey] = s.opts.Marker
			continue
		}
		out[outKey] = s.value(m[k], k, depth+1)
	}
	if len(keys) > limit {
		out[TruncatedKeysFlag] = true
	}
	return out
}

// Args scrubs the arguments of a tool call. Shell-like tools never keep their
// command text: only its length and SHA-256 digest survive.
func (s *Scrubber) Args(toolName string, args map[string]any) any {
	if args == nil {
		return nil
	}
	if IsShellTool(toolName) {
		cmd, _ := args["command"].(string)
		return ShellArgs(cmd)
	}
	return s.value(args, "", 0)
}

// ShellArgs is the persisted stand-in for a shell command.
func ShellArgs(command string) map[string]any {
	digest := ""
	if command != "" {
		digest = Digest(command)
	}
	return map[string]any{
		"redacted":       true,
		"command_len":    utf8.RuneCountInString(command),
		"command_sha256": digest,
	}
}

// Digest returns the hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
