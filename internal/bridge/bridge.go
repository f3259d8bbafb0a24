package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/wasmbridge/internal/channel"
	"github.com/roach88/wasmbridge/internal/engine"
)

// Policy decides how many pending payloads one tick takes.
type Policy int

const (
	// DrainOne takes at most one payload per tick. A burst of N uploads is
	// handed out over N ticks.
	DrainOne Policy = iota
	// DrainAll takes every payload that was pending when the tick started.
	DrainAll
)

// String returns the policy name used in config and flags.
func (p Policy) String() string {
	switch p {
	case DrainOne:
		return "one"
	case DrainAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParsePolicy parses "one" or "all".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "one", "":
		return DrainOne, nil
	case "all":
		return DrainAll, nil
	default:
		return DrainOne, fmt.Errorf("unknown drain policy %q: must be one or all", s)
	}
}

// Handler is the application logic a received payload is handed to.
type Handler[T any] func(ctx context.Context, tick int64, v T) error

// Receiver is the engine resource that owns the consumer half of the channel
// for the whole run.
type Receiver[T any] struct {
	rx *channel.Consumer[T]
}

// Consumer returns the wrapped consumer handle.
func (r *Receiver[T]) Consumer() *channel.Consumer[T] {
	return r.rx
}

// Close closes the consumer. Called by engine shutdown.
func (r *Receiver[T]) Close() error {
	return r.rx.Close()
}

// LogHandler returns a handler that logs every received payload at Info.
func LogHandler[T any](logger *slog.Logger) Handler[T] {
	return func(_ context.Context, tick int64, v T) error {
		logger.Info("received payload", "tick", tick, "payload", v)
		return nil
	}
}

// Poll returns the system that drains the Receiver[T] resource once per tick.
//
// The system never blocks and never fails because the channel is empty: an
// empty channel is the steady state. Handler errors are returned so the
// engine logs them; with DrainAll, a failing handler does not stop the
// remaining payloads of the tick from being handed out.
func Poll[T any](policy Policy, handler Handler[T]) engine.System {
	return func(ctx context.Context, tick int64, res *engine.Resources) error {
		recv, err := engine.Get[Receiver[T]](res)
		if err != nil {
			return err
		}

		budget := 1
		if policy == DrainAll {
			// Only what was already pending; later sends wait for the next tick.
			budget = recv.rx.Len()
		}

		var errs []error
		for i := 0; i < budget; i++ {
			v, ok := recv.rx.TryTake()
			if !ok {
				break
			}
			if err := handler(ctx, tick, v); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// options configures Install.
type options[T any] struct {
	policy  Policy
	handler Handler[T]
	name    string
}

// Option configures Install.
type Option[T any] func(*options[T])

// WithPolicy sets the drain policy. Default: DrainOne.
func WithPolicy[T any](p Policy) Option[T] {
	return func(o *options[T]) {
		o.policy = p
	}
}

// WithHandler sets the application handler. Default: LogHandler(slog.Default()).
func WithHandler[T any](h Handler[T]) Option[T] {
	return func(o *options[T]) {
		o.handler = h
	}
}

// WithSystemName sets the name the poll system is registered under.
// Default: "listen_from_browser".
func WithSystemName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// Install binds rx to app: it registers a Receiver[T] resource owning rx and
// schedules the poll system.
//
// Install succeeds once per payload type. A second install fails with
// engine.ErrDuplicateResource and leaves the app unchanged.
func Install[T any](app *engine.App, rx *channel.Consumer[T], opts ...Option[T]) error {
	o := options[T]{
		policy:  DrainOne,
		handler: LogHandler[T](slog.Default()),
		name:    "listen_from_browser",
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := engine.Insert(app.Resources(), &Receiver[T]{rx: rx}); err != nil {
		return fmt.Errorf("install bridge: %w", err)
	}
	if err := app.AddSystem(o.name, Poll[T](o.policy, o.handler)); err != nil {
		return fmt.Errorf("install bridge: %w", err)
	}
	return nil
}
