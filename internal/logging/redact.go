package logging

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

// assignmentPatterns catch secrets in free-form log text that the value
// patterns miss because they have no recognisable prefix.
var assignmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token)(["'\s:=]+)[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`(?i)(password)(["'\s:=]+)[^\s"']{8,}`),
}

// idKeys name attributes that hold host session ids. They match the secret
// key pattern but are never secrets.
var idKeys = map[string]bool{
	SessionKey: true,
	"session":  true,
}

// redactHandler scrubs the message and every string attribute before the
// wrapped handler sees the record. Attributes whose key names a secret are
// replaced wholesale.
type redactHandler struct {
	next     slog.Handler
	scrubber *scrub.Scrubber
}

func newRedactHandler(next slog.Handler, s *scrub.Scrubber) *redactHandler {
	return &redactHandler{next: next, scrubber: s}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.attr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.attr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(clean), scrubber: h.scrubber}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), scrubber: h.scrubber}
}

func (h *redactHandler) attr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, g := range group {
			clean[i] = h.attr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}
	if !idKeys[a.Key] && scrub.IsSecretKey(a.Key) {
		return slog.String(a.Key, h.scrubber.Marker())
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redact(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.redact(err.Error()))
		}
	}
	return a
}

func (h *redactHandler) redact(s string) string {
	out := h.scrubber.Redact(s)
	for _, re := range assignmentPatterns {
		out = re.ReplaceAllString(out, "${1}${2}"+h.scrubber.Marker())
	}
	return out
}
