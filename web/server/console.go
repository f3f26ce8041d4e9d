package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warning", "error"
}

// ConsoleHandler is a slog.Handler that mirrors records into a console
// channel for the browser, and optionally into a second handler for the
// server log.
type ConsoleHandler struct {
	consoleChan chan<- ConsoleMessage
	next        slog.Handler
	level       slog.Level
	attrs       []slog.Attr
	group       string
}

// NewConsoleHandler creates a handler sending records at or above level to
// consoleChan. next may be nil.
func NewConsoleHandler(consoleChan chan<- ConsoleMessage, level slog.Level, next slog.Handler) *ConsoleHandler {
	return &ConsoleHandler{consoleChan: consoleChan, next: next, level: level}
}

// Enabled implements slog.Handler
func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || (h.next != nil && h.next.Enabled(ctx, level))
}

// Handle implements slog.Handler
func (h *ConsoleHandler) Handle(ctx context.Context, rec slog.Record) error {
	if h.next != nil && h.next.Enabled(ctx, rec.Level) {
		if err := h.next.Handle(ctx, rec); err != nil {
			return err
		}
	}
	if rec.Level < h.level || h.consoleChan == nil {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(rec.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", h.qualify(a.Key), a.Value)
		return true
	})

	// Non-blocking: a slow browser never stalls rendering
	select {
	case h.consoleChan <- ConsoleMessage{
		Message:   sb.String(),
		Timestamp: rec.Time,
		Level:     levelName(rec.Level),
	}:
	default:
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

// WithGroup implements slog.Handler
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

func (h *ConsoleHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
