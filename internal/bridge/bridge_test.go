package bridge

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wasmbridge/internal/channel"
	"github.com/roach88/wasmbridge/internal/engine"
	"github.com/roach88/wasmbridge/internal/journal"
	"github.com/roach88/wasmbridge/internal/payload"
	"github.com/roach88/wasmbridge/internal/testutil"
	"github.com/roach88/wasmbridge/internal/trigger"
)

func newApp(logs *bytes.Buffer) *engine.App {
	return engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(logs, nil))))
}

func example(n float32) payload.Example {
	return payload.Example{Field1: [4]float32{n, n, n, n}}
}

func TestInstall_DrainOnePerTick(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	tx, rx := channel.New[payload.Example]()
	rec := testutil.NewRecorder[payload.Example]()

	require.NoError(t, Install(app, rx, WithHandler[payload.Example](rec.Handle)))

	for i := 1; i <= 3; i++ {
		require.NoError(t, tx.Send(example(float32(i))))
	}

	ctx := context.Background()
	app.Tick(ctx)
	assert.Equal(t, 1, rec.Len(), "one payload per tick")
	assert.Equal(t, 2, rx.Len())

	app.Tick(ctx)
	app.Tick(ctx)
	app.Tick(ctx)

	assert.Equal(t, []testutil.Received[payload.Example]{
		{Tick: 1, Value: example(1)},
		{Tick: 2, Value: example(2)},
		{Tick: 3, Value: example(3)},
	}, rec.Received(), "burst is spread over ticks in FIFO order")
}

func TestInstall_DrainAllPerTick(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	tx, rx := channel.New[payload.Example]()
	rec := testutil.NewRecorder[payload.Example]()

	require.NoError(t, Install(app, rx,
		WithPolicy[payload.Example](DrainAll),
		WithHandler[payload.Example](rec.Handle),
	))

	for i := 1; i <= 3; i++ {
		require.NoError(t, tx.Send(example(float32(i))))
	}

	app.Tick(context.Background())
	assert.Equal(t, []payload.Example{example(1), example(2), example(3)}, rec.Values())
	assert.Equal(t, 0, rx.Len())

	app.Tick(context.Background())
	assert.Equal(t, 3, rec.Len(), "empty tick hands out nothing")
}

func TestPoll_DrainAllTakesOnlyWhatWasPending(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	tx, rx := channel.New[payload.Example]()
	var seen []payload.Example

	// The handler sends while the tick drains; that value belongs to the next tick.
	handler := func(_ context.Context, tick int64, v payload.Example) error {
		seen = append(seen, v)
		if v == example(1) {
			return tx.Send(example(9))
		}
		return nil
	}
	require.NoError(t, Install(app, rx, WithPolicy[payload.Example](DrainAll), WithHandler[payload.Example](handler)))

	require.NoError(t, tx.Send(example(1)))
	require.NoError(t, tx.Send(example(2)))

	app.Tick(context.Background())
	assert.Equal(t, []payload.Example{example(1), example(2)}, seen)
	assert.Equal(t, 1, rx.Len())

	app.Tick(context.Background())
	assert.Equal(t, []payload.Example{example(1), example(2), example(9)}, seen)
}

func TestPoll_EmptyChannelIsNotAnError(t *testing.T) {
	logs := &bytes.Buffer{}
	app := newApp(logs)
	_, rx := channel.New[payload.Example]()
	rec := testutil.NewRecorder[payload.Example]()

	require.NoError(t, Install(app, rx, WithHandler[payload.Example](rec.Handle)))

	for i := 0; i < 10; i++ {
		app.Tick(context.Background())
	}
	assert.Equal(t, 0, rec.Len())
	assert.NotContains(t, logs.String(), "system failed")
}

func TestPoll_MissingReceiver(t *testing.T) {
	sys := Poll[payload.Example](DrainOne, LogHandler[payload.Example](slog.Default()))
	app := engine.New()

	err := sys(context.Background(), 1, app.Resources())
	assert.ErrorIs(t, err, engine.ErrNoResource)
}

func TestPoll_HandlerErrorsLoggedAndDrainContinues(t *testing.T) {
	logs := &bytes.Buffer{}
	app := newApp(logs)
	tx, rx := channel.New[payload.Example]()

	var seen int
	handler := func(_ context.Context, _ int64, v payload.Example) error {
		seen++
		if v == example(1) {
			return errors.New("apply failed")
		}
		return nil
	}
	require.NoError(t, Install(app, rx, WithPolicy[payload.Example](DrainAll), WithHandler[payload.Example](handler)))

	require.NoError(t, tx.Send(example(1)))
	require.NoError(t, tx.Send(example(2)))
	app.Tick(context.Background())

	assert.Equal(t, 2, seen)
	assert.Contains(t, logs.String(), "apply failed")
	assert.Contains(t, logs.String(), "system=listen_from_browser")
}

func TestInstall_Twice(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	_, rx1 := channel.New[payload.Example]()
	_, rx2 := channel.New[payload.Example]()

	require.NoError(t, Install(app, rx1))
	err := Install(app, rx2, WithSystemName[payload.Example]("other"))
	assert.ErrorIs(t, err, engine.ErrDuplicateResource)
	assert.Equal(t, []string{"listen_from_browser"}, app.Systems())

	recv, err := engine.Get[Receiver[payload.Example]](app.Resources())
	require.NoError(t, err)
	assert.Same(t, rx1, recv.Consumer(), "the first consumer stays registered")
}

func TestInstall_DifferentPayloadTypes(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	_, rxA := channel.New[payload.Example]()
	_, rxB := channel.New[string]()

	require.NoError(t, Install(app, rxA))
	require.NoError(t, Install(app, rxB, WithSystemName[string]("listen_text")))
	assert.Equal(t, []string{"listen_from_browser", "listen_text"}, app.Systems())
}

func TestShutdown_ClosesConsumer(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	tx, rx := channel.New[payload.Example]()
	require.NoError(t, Install(app, rx))

	require.NoError(t, app.Shutdown())
	assert.ErrorIs(t, tx.Send(example(1)), channel.ErrClosed)
}

func TestLogHandler(t *testing.T) {
	logs := &bytes.Buffer{}
	h := LogHandler[payload.Example](slog.New(slog.NewTextHandler(logs, nil)))

	require.NoError(t, h(context.Background(), 7, example(1)))
	assert.Contains(t, logs.String(), "received payload")
	assert.Contains(t, logs.String(), "tick=7")
	assert.Contains(t, logs.String(), "field1: [1 1 1 1]")
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: DrainOne},
		{in: "one", want: DrainOne},
		{in: "ALL", want: DrainAll},
		{in: "some", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		})
	}
	assert.Equal(t, "unknown", Policy(7).String())
}

func mustParse(t *testing.T, s string) Policy {
	t.Helper()
	p, err := ParsePolicy(s)
	require.NoError(t, err)
	return p
}

func TestJournaled_RecordsThenDelegates(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	rec := testutil.NewRecorder[payload.Example]()
	h := Journaled(j, Handler[payload.Example](rec.Handle))

	require.NoError(t, h(context.Background(), 4, payload.Example{Field1: [4]float32{1, 2, 3, 4}}))

	assert.Equal(t, 1, rec.Len())
	entries, err := j.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4), entries[0].Tick)
	assert.Equal(t, `{"field1":[1,2,3,4]}`, entries[0].Body)

	digest, err := payload.Digest(payload.Example{Field1: [4]float32{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, digest, entries[0].Digest)
}

type failingAppender struct{}

func (failingAppender) Append(context.Context, journal.Entry) (int64, error) {
	return 0, errors.New("disk full")
}

func TestJournaled_WriteFailureStillDelivers(t *testing.T) {
	rec := testutil.NewRecorder[payload.Example]()
	h := Journaled(failingAppender{}, Handler[payload.Example](rec.Handle))

	err := h(context.Background(), 1, example(1))
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, rec.Len(), "payload reaches the application anyway")
}

func TestJournaled_BothFail(t *testing.T) {
	appErr := errors.New("apply failed")
	h := Journaled(failingAppender{}, Handler[payload.Example](func(context.Context, int64, payload.Example) error {
		return appErr
	}))

	err := h(context.Background(), 1, example(1))
	assert.ErrorIs(t, err, appErr)
	assert.ErrorContains(t, err, "disk full")
}

// End to end: upload -> trigger -> channel -> poll on the next tick.
func TestBridge_UploadReachesNextTick(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	tx, rx := channel.New[payload.Example]()
	rec := testutil.NewRecorder[payload.Example]()
	require.NoError(t, Install(app, rx, WithHandler[payload.Example](rec.Handle)))

	trig := trigger.New[payload.Example](tx, payload.JSONDecoder[payload.Example]{},
		trigger.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	ctx := context.Background()
	trig.Handle(trigger.Event{Kind: trigger.KindChange, Target: testutil.NewSource(testutil.NewFile("ok.json", `{"field1":[1,2,3,4]}`))})
	trig.Handle(trigger.Event{Kind: trigger.KindChange, Target: testutil.NewSource(testutil.NewFile("bad.json", `{"field1":"bad"}`))})
	trig.Wait()

	app.Tick(ctx)
	app.Tick(ctx)

	assert.Equal(t, []testutil.Received[payload.Example]{
		{Tick: 1, Value: payload.Example{Field1: [4]float32{1, 2, 3, 4}}},
	}, rec.Received())
}
