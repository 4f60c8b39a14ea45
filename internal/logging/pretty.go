package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	levelStyles = map[slog.Level]lipgloss.Style{
		slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
	componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	keyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	timeStyle      = lipgloss.NewStyle().Faint(true)
)

// prettyHandler writes one colored line per record for a terminal:
//
//	15:04:05 WRN [hooks] ses_1 message key=value
type prettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func newPrettyHandler(w io.Writer, level slog.Level) *prettyHandler {
	return &prettyHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var component, session string
	var rest []string
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case ComponentKey:
			component = a.Value.String()
		case SessionKey:
			session = a.Value.String()
		default:
			rest = append(rest, h.field(a)...)
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	var b strings.Builder
	b.WriteString(timeStyle.Render(r.Time.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level))
	if component != "" {
		b.WriteString(" " + componentStyle.Render("["+component+"]"))
	}
	if session != "" {
		b.WriteString(" " + session)
	}
	b.WriteString(" " + r.Message)
	for _, f := range rest {
		b.WriteString(" " + f)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func (h *prettyHandler) field(a slog.Attr) []string {
	if a.Value.Kind() == slog.KindGroup {
		var out []string
		for _, g := range a.Value.Group() {
			out = append(out, h.field(g)...)
		}
		return out
	}
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	return []string{fmt.Sprintf("%s=%v", keyStyle.Render(key), a.Value.Any())}
}

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DBG",
	slog.LevelInfo:  "INF",
	slog.LevelWarn:  "WRN",
	slog.LevelError: "ERR",
}

func levelLabel(level slog.Level) string {
	name, ok := levelNames[level]
	if !ok {
		return level.String()
	}
	return levelStyles[level].Render(name)
}
