package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTickRate is the default number of ticks per second for Run.
const DefaultTickRate = 60

// System is a unit of per-tick work. It receives the current tick number and
// read access to the registered resources.
//
// A returned error is logged and the tick continues with the next system.
type System func(ctx context.Context, tick int64, res *Resources) error

type namedSystem struct {
	name string
	fn   System
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithTickRate sets how many ticks per second Run performs.
// Non-positive values keep the default.
func WithTickRate(hz float64) Option {
	return func(a *App) {
		if hz > 0 {
			a.interval = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithMaxTicks makes Run return after n ticks. Zero means run until the
// context is done.
func WithMaxTicks(n int64) Option {
	return func(a *App) {
		a.maxTicks = n
	}
}

// WithClock sets the tick clock, e.g. to resume numbering.
func WithClock(c *Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}

// App is the host engine: a resource registry plus a synchronous scheduler
// that runs every registered system once per tick, in registration order.
//
// Thread-safety model:
//   - Insert/Get on Resources: safe from any goroutine
//   - AddSystem: before the first tick only
//   - Tick/Run: from exactly one goroutine
//
// Systems never block the loop on external input; anything produced outside
// the tick goroutine reaches systems through a resource.
type App struct {
	resources *Resources
	systems   []namedSystem
	clock     *Clock
	logger    *slog.Logger
	interval  time.Duration
	maxTicks  int64

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an App with an empty registry and no systems.
func New(opts ...Option) *App {
	a := &App{
		resources: newResources(),
		clock:     NewClock(),
		logger:    slog.Default(),
		interval:  time.Second / DefaultTickRate,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resources returns the app's resource registry.
func (a *App) Resources() *Resources {
	return a.resources
}

// AddSystem appends fn to the per-tick schedule under name.
// Names must be unique.
func (a *App) AddSystem(name string, fn System) error {
	if fn == nil {
		return fmt.Errorf("add system %q: nil system", name)
	}
	for _, s := range a.systems {
		if s.name == name {
			return fmt.Errorf("add system %q: already registered", name)
		}
	}
	a.systems = append(a.systems, namedSystem{name: name, fn: fn})
	return nil
}

// Systems returns the registered system names in schedule order.
func (a *App) Systems() []string {
	names := make([]string, len(a.systems))
	for i, s := range a.systems {
		names[i] = s.name
	}
	return names
}

// Tick runs one update cycle and returns its tick number.
//
// ERROR HANDLING: a failing system is logged with its name and tick and the
// remaining systems still run. One bad frame never stops the loop.
func (a *App) Tick(ctx context.Context) int64 {
	tick := a.clock.Next()
	for _, s := range a.systems {
		if err := s.fn(ctx, tick, a.resources); err != nil {
			a.logger.Error("system failed",
				"system", s.name,
				"tick", tick,
				"error", err,
			)
		}
	}
	return tick
}

// CurrentTick returns the number of the last completed tick.
func (a *App) CurrentTick() int64 {
	return a.clock.Current()
}

// Run ticks at the configured rate until ctx is done or the tick limit is
// reached, then shuts the app down.
//
// Returns ctx.Err() when stopped by the context, nil when the tick limit was
// reached, or the shutdown error if closing resources failed.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("engine starting",
		"systems", len(a.systems),
		"resources", a.resources.Len(),
		"interval", a.interval,
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		tick := a.Tick(ctx)
		if a.maxTicks > 0 && tick >= a.maxTicks {
			a.logger.Info("engine stopping: tick limit reached", "tick", tick)
			return a.Shutdown()
		}

		select {
		case <-ctx.Done():
			a.logger.Info("engine stopping: context cancelled", "tick", tick)
			if err := a.Shutdown(); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown closes every resource that implements io.Closer, in reverse
// insertion order. Only the first call has an effect; later calls return the
// same result.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.resources.closeAll(a.logger)
		a.logger.Info("engine stopped", "tick", a.clock.Current())
	})
	return a.shutdownErr
}
