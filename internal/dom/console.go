//go:build js && wasm

package dom

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"syscall/js"
)

// ConsoleHandler is an slog.Handler that writes records to the browser
// console, picking console.debug/info/warn/error by level.
type ConsoleHandler struct {
	inner slog.Handler
	mu    *sync.Mutex
	buf   *bytes.Buffer
}

// NewConsoleHandler returns a handler that drops records below level.
func NewConsoleHandler(level slog.Leveler) *ConsoleHandler {
	buf := &bytes.Buffer{}
	return &ConsoleHandler{
		inner: slog.NewTextHandler(buf, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// The console stamps its own time.
				if len(groups) == 0 && a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		}),
		mu:  &sync.Mutex{},
		buf: buf,
	}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	js.Global().Get("console").Call(consoleMethod(r.Level), strings.TrimSuffix(h.buf.String(), "\n"))
	return nil
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{inner: h.inner.WithAttrs(attrs), mu: h.mu, buf: h.buf}
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	return &ConsoleHandler{inner: h.inner.WithGroup(name), mu: h.mu, buf: h.buf}
}

func consoleMethod(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
