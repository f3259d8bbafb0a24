package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
)

var (
	// ErrDuplicateResource is returned when a resource type is inserted twice.
	ErrDuplicateResource = errors.New("resource already registered")

	// ErrNoResource is returned when a system asks for a resource type that
	// was never inserted.
	ErrNoResource = errors.New("resource not registered")
)

// Resources is the engine's type-keyed registry of long-lived state.
//
// Each Go type has at most one instance, constructed once by the caller and
// inserted before the first tick. Systems read resources through Get; the
// registry hands out the same pointer every time and never copies, replaces
// or reconstructs a value.
//
// Thread-safety: all methods are safe for concurrent use.
type Resources struct {
	mu     sync.RWMutex
	byType map[reflect.Type]any
	order  []reflect.Type // insertion order, for shutdown
}

func newResources() *Resources {
	return &Resources{
		byType: make(map[reflect.Type]any),
	}
}

// Insert registers v as the single instance of *T.
// Returns ErrDuplicateResource if a *T is already registered.
func Insert[T any](r *Resources, v *T) error {
	if v == nil {
		return fmt.Errorf("insert %s: nil resource", reflect.TypeFor[T]())
	}
	key := reflect.TypeFor[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[key]; exists {
		return fmt.Errorf("insert %s: %w", key, ErrDuplicateResource)
	}
	r.byType[key] = v
	r.order = append(r.order, key)
	return nil
}

// Get returns the registered *T.
// Returns ErrNoResource if none was inserted.
func Get[T any](r *Resources) (*T, error) {
	key := reflect.TypeFor[T]()

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byType[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNoResource)
	}
	return v.(*T), nil
}

// Len returns the number of registered resources.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}

// closeAll closes every resource implementing io.Closer in reverse insertion
// order. All closers run even if some fail.
func (r *Resources) closeAll(logger *slog.Logger) error {
	r.mu.RLock()
	order := append([]reflect.Type(nil), r.order...)
	values := make([]any, len(order))
	for i, key := range order {
		values[i] = r.byType[key]
	}
	r.mu.RUnlock()

	var errs []error
	for i := len(values) - 1; i >= 0; i-- {
		c, ok := values[i].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Error("resource close failed", "resource", order[i].String(), "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", order[i], err))
			continue
		}
		logger.Debug("resource closed", "resource", order[i].String())
	}
	return errors.Join(errs...)
}
