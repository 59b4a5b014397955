package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// NewSlogHandler returns a slog.Handler that forwards records to the provided Logger.
// A nil Logger forwards to whatever Global returns at the time of each record, so handlers
// created before Init pick up the configured destination.
func NewSlogHandler(l *Logger) slog.Handler {
	return &slogAdapter{log: l}
}

// Slog returns a *slog.Logger backed by l (or the global logger when l is nil).
func Slog(l *Logger) *slog.Logger {
	return slog.New(NewSlogHandler(l))
}

type slogAdapter struct {
	log    *Logger
	groups []string
	attrs  []slog.Attr
}

func (h *slogAdapter) target() *Logger {
	if h.log != nil {
		return h.log
	}
	return Global()
}

func (h *slogAdapter) Enabled(_ context.Context, level slog.Level) bool {
	current := h.target().GetLevel()
	return current != LevelNone && slogLevelToLoggerLevel(level) >= current
}

func (h *slogAdapter) Handle(_ context.Context, record slog.Record) error {
	message := record.Message

	recordAttrs := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		recordAttrs = append(recordAttrs, attr)
		return true
	})

	if attrText := formatAttrs(h.attrs, recordAttrs, h.groups); attrText != "" {
		if message != "" {
			message = message + " " + attrText
		} else {
			message = attrText
		}
	}

	l := h.target()
	switch slogLevelToLoggerLevel(record.Level) {
	case LevelError:
		l.Error("%s", message)
	case LevelWarn:
		l.Warn("%s", message)
	case LevelInfo:
		l.Info("%s", message)
	default:
		l.Debug("%s", message)
	}
	return nil
}

func (h *slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	// Attributes added after a group belong to that group.
	scoped := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if len(h.groups) > 0 {
			attr.Key = strings.Join(h.groups, ".") + "." + attr.Key
		}
		scoped = append(scoped, attr)
	}
	return &slogAdapter{
		log:    h.log,
		groups: append([]string(nil), h.groups...),
		attrs:  append(append([]slog.Attr(nil), h.attrs...), scoped...),
	}
}

func (h *slogAdapter) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &slogAdapter{
		log:    h.log,
		groups: append(append([]string(nil), h.groups...), name),
		attrs:  append([]slog.Attr(nil), h.attrs...),
	}
}

func slogLevelToLoggerLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// formatAttrs renders record attributes as key=value pairs. Record attributes are qualified
// with the open groups; handler attributes were qualified when they were added.
func formatAttrs(handlerAttrs, recordAttrs []slog.Attr, groups []string) string {
	var builder strings.Builder
	for _, attr := range handlerAttrs {
		writeAttr(&builder, attr, nil)
	}
	for _, attr := range recordAttrs {
		writeAttr(&builder, attr, groups)
	}
	return builder.String()
}

func writeAttr(builder *strings.Builder, attr slog.Attr, prefix []string) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, nested := range attr.Value.Group() {
			writeAttr(builder, nested, groupPrefix)
		}
		return
	}

	key := attr.Key
	if key == "" {
		key = "attr"
	}
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}

	if builder.Len() > 0 {
		builder.WriteByte(' ')
	}
	fmt.Fprintf(builder, "%s=%s", key, formatValue(attr.Value))
}

func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && (s == "" || strings.ContainsAny(s, " \t\"=")) {
		return strconv.Quote(s)
	}
	return s
}
