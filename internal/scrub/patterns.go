// Package scrub redacts secrets from structured observation payloads and
// shell command lines before anything is persisted or logged.
package scrub

import (
	"regexp"
	"strings"
)

// DefaultMarker replaces every redacted value.
const DefaultMarker = "[REDACTED]"

// secretKeyPattern matches mapping keys whose values are always redacted.
var secretKeyPattern = regexp.MustCompile(`(?i)(pass(word)?|secret|token|api[_-]?key|auth(orization)?|cookie|session|private[_-]?key)`)

// IsSecretKey reports whether a mapping key names a secret.
func IsSecretKey(key string) bool {
	return secretKeyPattern.MatchString(key)
}

// valuePattern is a secret-shaped span. When labeled, capture group 1 is a
// label (e.g. "Bearer") that is kept in front of the marker.
type valuePattern struct {
	name    string
	re      *regexp.Regexp
	labeled bool
}

func defaultValuePatterns() []valuePattern {
	return []valuePattern{
		// GitHub
		{name: "github_pat", re: regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}\b`)},
		{name: "github_token", re: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`)},
		// Anthropic, then OpenAI-style keys
		{name: "anthropic", re: regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{20,}`)},
		{name: "openai", re: regexp.MustCompile(`\bsk-[A-Za-z0-9]{16,}\b`)},
		// Google AI
		{name: "google", re: regexp.MustCompile(`\bAIza[A-Za-z0-9_-]{35}`)},
		// AWS access key id
		{name: "aws", re: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
		// Slack
		{name: "slack", re: regexp.MustCompile(`\bxox[abprs]-[0-9A-Za-z-]{10,}`)},
		// JWT-shaped triples
		{name: "jwt", re: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)},
		// Headers
		{name: "authorization", re: regexp.MustCompile(`(?i)(Authorization\s*:\s*Bearer)\s+["']?[^\s"']+`), labeled: true},
		{name: "bearer", re: regexp.MustCompile(`(?i)(Bearer)\s+["']?[^\s"']+`), labeled: true},
		// PEM blocks
		{name: "pem", re: regexp.MustCompile(`-----BEGIN(?s:.*?)-----END[^-]*-----`)},
	}
}

// replace substitutes every match of p in s with the marker, keeping the
// label for labeled patterns.
func (p valuePattern) replace(s, marker string) string {
	matches := p.re.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		if p.labeled && len(m) >= 4 && m[2] >= 0 {
			b.WriteString(s[m[2]:m[3]])
			b.WriteByte(' ')
		}
		b.WriteString(marker)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// leaks reports whether s holds a match of p whose secret part is anything
// other than the marker.
func (p valuePattern) leaks(s, marker string) bool {
	for _, m := range p.re.FindAllStringSubmatchIndex(s, -1) {
		if !p.labeled || len(m) < 4 || m[3] < 0 {
			return true
		}
		value := strings.TrimLeft(s[m[3]:m[1]], " \t\r\n\f\v\"'")
		if value != marker {
			return true
		}
	}
	return false
}

// matches reports whether s contains any match of p at all.
func (p valuePattern) matches(s string) bool {
	return p.re.MatchString(s)
}
