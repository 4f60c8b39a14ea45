package scrub

import (
	"regexp"
	"strings"
)

// SignatureOptions bounds a command signature.
type SignatureOptions struct {
	MaxTokens         int
	MaxChars          int
	MaxEnvAssignments int
}

// DefaultSignatureOptions returns 4 tokens, 120 characters and at most 6
// dropped leading environment assignments.
func DefaultSignatureOptions() SignatureOptions {
	return SignatureOptions{MaxTokens: 4, MaxChars: 120, MaxEnvAssignments: 6}
}

func (o SignatureOptions) withDefaults() SignatureOptions {
	def := DefaultSignatureOptions()
	if o.MaxTokens <= 0 {
		o.MaxTokens = def.MaxTokens
	}
	if o.MaxChars <= 0 {
		o.MaxChars = def.MaxChars
	}
	if o.MaxEnvAssignments < 0 {
		o.MaxEnvAssignments = 0
	}
	if o.MaxEnvAssignments == 0 {
		o.MaxEnvAssignments = def.MaxEnvAssignments
	}
	return o
}

const secretFlagNames = `token|api[-_]?key|apikey|key|secret|password|pass|auth(orization)?|cookie|session`

var (
	// --token VALUE
	secretFlag = regexp.MustCompile(`(?i)^(--?)(` + secretFlagNames + `)$`)
	// --token=VALUE, --token:VALUE
	secretFlagInline = regexp.MustCompile(`(?i)^(--?)(` + secretFlagNames + `)(=|:)`)
	// API_KEY=VALUE (e.g. after "export" or "env")
	assignment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.-]*)=`)
	// "Bearer VALUE" split across two tokens
	bearerWord = regexp.MustCompile(`(?i)^["']?bearer$`)
)

// Signature returns a short, redacted, deterministic representation of a
// shell command line: at most MaxTokens tokens and MaxChars characters.
func (s *Scrubber) Signature(raw string) string {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return ""
	}

	opts := s.opts.Signature
	dropped := 0
	for len(tokens) > 0 && dropped < opts.MaxEnvAssignments {
		t := tokens[0]
		if strings.Contains(t, "=") && !strings.HasPrefix(t, "-") && !strings.HasPrefix(t, "./") {
			tokens = tokens[1:]
			dropped++
			continue
		}
		break
	}

	safe := s.redactTokens(tokens)
	if len(safe) > opts.MaxTokens {
		safe = safe[:opts.MaxTokens]
	}
	sig := strings.TrimSpace(strings.Join(safe, " "))
	return s.bounded(sig, opts.MaxChars)
}

func (s *Scrubber) redactTokens(tokens []string) []string {
	marker := s.opts.Marker
	out := make([]string, 0, len(tokens))
	for i, t := range tokens {
		prev := ""
		if i > 0 {
			prev = tokens[i-1]
		}

		if secretFlag.MatchString(prev) || bearerWord.MatchString(prev) {
			out = append(out, marker)
			continue
		}

		if loc := secretFlagInline.FindStringIndex(t); loc != nil {
			out = append(out, t[:loc[1]]+marker)
			continue
		}

		if m := assignment.FindStringSubmatch(t); m != nil && IsSecretKey(m[1]) {
			out = append(out, m[0]+marker)
			continue
		}

		if s.Matches(t) {
			out = append(out, marker)
			continue
		}
		out = append(out, t)
	}
	return out
}
