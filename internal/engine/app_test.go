package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

type closable struct {
	name   string
	closed *[]string
	err    error
}

func (c *closable) Close() error {
	*c.closed = append(*c.closed, c.name)
	return c.err
}

type first struct{ closable }
type second struct{ closable }

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestResources_InsertGet(t *testing.T) {
	app := New()
	c := &counter{n: 3}

	require.NoError(t, Insert(app.Resources(), c))

	got, err := Get[counter](app.Resources())
	require.NoError(t, err)
	assert.Same(t, c, got, "registry hands out the inserted pointer")
	assert.Equal(t, 1, app.Resources().Len())
}

func TestResources_DuplicateInsert(t *testing.T) {
	app := New()
	require.NoError(t, Insert(app.Resources(), &counter{n: 1}))

	err := Insert(app.Resources(), &counter{n: 2})
	assert.ErrorIs(t, err, ErrDuplicateResource)

	got, err := Get[counter](app.Resources())
	require.NoError(t, err)
	assert.Equal(t, 1, got.n, "the first instance is never replaced")
}

func TestResources_Missing(t *testing.T) {
	_, err := Get[counter](New().Resources())
	assert.ErrorIs(t, err, ErrNoResource)
	assert.Contains(t, err.Error(), "engine.counter")
}

func TestResources_NilInsert(t *testing.T) {
	err := Insert[counter](New().Resources(), nil)
	assert.Error(t, err)
}

func TestApp_TickRunsSystemsInOrder(t *testing.T) {
	app := New(WithLogger(quietLogger(&bytes.Buffer{})))

	var calls []string
	require.NoError(t, app.AddSystem("a", func(ctx context.Context, tick int64, res *Resources) error {
		calls = append(calls, "a")
		return nil
	}))
	require.NoError(t, app.AddSystem("b", func(ctx context.Context, tick int64, res *Resources) error {
		calls = append(calls, "b")
		return nil
	}))

	assert.Equal(t, int64(1), app.Tick(context.Background()))
	assert.Equal(t, int64(2), app.Tick(context.Background()))
	assert.Equal(t, []string{"a", "b", "a", "b"}, calls)
	assert.Equal(t, int64(2), app.CurrentTick())
	assert.Equal(t, []string{"a", "b"}, app.Systems())
}

func TestApp_SystemsSeeSameResource(t *testing.T) {
	app := New()
	require.NoError(t, Insert(app.Resources(), &counter{}))

	inc := func(ctx context.Context, tick int64, res *Resources) error {
		c, err := Get[counter](res)
		if err != nil {
			return err
		}
		c.n++
		return nil
	}
	require.NoError(t, app.AddSystem("inc1", inc))
	require.NoError(t, app.AddSystem("inc2", inc))

	for i := 0; i < 5; i++ {
		app.Tick(context.Background())
	}

	c, err := Get[counter](app.Resources())
	require.NoError(t, err)
	assert.Equal(t, 10, c.n)
}

func TestApp_SystemErrorDoesNotStopTick(t *testing.T) {
	logs := &bytes.Buffer{}
	app := New(WithLogger(quietLogger(logs)))

	ran := false
	require.NoError(t, app.AddSystem("broken", func(ctx context.Context, tick int64, res *Resources) error {
		return errors.New("boom")
	}))
	require.NoError(t, app.AddSystem("after", func(ctx context.Context, tick int64, res *Resources) error {
		ran = true
		return nil
	}))

	app.Tick(context.Background())

	assert.True(t, ran, "systems after a failing one still run")
	assert.Contains(t, logs.String(), "system failed")
	assert.Contains(t, logs.String(), "system=broken")
}

func TestApp_AddSystemValidation(t *testing.T) {
	app := New()
	noop := func(ctx context.Context, tick int64, res *Resources) error { return nil }

	require.NoError(t, app.AddSystem("x", noop))
	assert.Error(t, app.AddSystem("x", noop), "duplicate name")
	assert.Error(t, app.AddSystem("y", nil), "nil system")
}

func TestApp_RunStopsAtMaxTicks(t *testing.T) {
	app := New(
		WithLogger(quietLogger(&bytes.Buffer{})),
		WithTickRate(1000),
		WithMaxTicks(3),
	)

	var ticks []int64
	require.NoError(t, app.AddSystem("record", func(ctx context.Context, tick int64, res *Resources) error {
		ticks = append(ticks, tick)
		return nil
	}))

	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, []int64{1, 2, 3}, ticks)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	var closed []string
	app := New(WithLogger(quietLogger(&bytes.Buffer{})), WithTickRate(1000))
	require.NoError(t, Insert(app.Resources(), &first{closable{name: "first", closed: &closed}}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := app.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, app.CurrentTick(), int64(0))
	assert.Equal(t, []string{"first"}, closed, "run shuts resources down")
}

func TestApp_ShutdownClosesInReverseOnce(t *testing.T) {
	var closed []string
	app := New(WithLogger(quietLogger(&bytes.Buffer{})))
	require.NoError(t, Insert(app.Resources(), &first{closable{name: "first", closed: &closed}}))
	require.NoError(t, Insert(app.Resources(), &counter{}))
	require.NoError(t, Insert(app.Resources(), &second{closable{name: "second", closed: &closed}}))

	require.NoError(t, app.Shutdown())
	require.NoError(t, app.Shutdown())

	assert.Equal(t, []string{"second", "first"}, closed)
}

func TestApp_ShutdownReportsCloseErrors(t *testing.T) {
	var closed []string
	boom := errors.New("flush failed")
	app := New(WithLogger(quietLogger(&bytes.Buffer{})))
	require.NoError(t, Insert(app.Resources(), &first{closable{name: "first", closed: &closed}}))
	require.NoError(t, Insert(app.Resources(), &second{closable{name: "second", closed: &closed, err: boom}}))

	err := app.Shutdown()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"second", "first"}, closed, "a failing closer does not skip the rest")
	assert.ErrorIs(t, app.Shutdown(), boom, "later calls return the same result")
}

func TestApp_WithClockResumes(t *testing.T) {
	app := New(WithClock(NewClockAt(41)))
	assert.Equal(t, int64(42), app.Tick(context.Background()))
}

func TestApp_WithTickRate(t *testing.T) {
	assert.Equal(t, time.Second/DefaultTickRate, New().interval)
	assert.Equal(t, 100*time.Millisecond, New(WithTickRate(10)).interval)
	assert.Equal(t, time.Second/DefaultTickRate, New(WithTickRate(0)).interval)
}
