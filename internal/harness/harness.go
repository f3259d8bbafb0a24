package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/wasmbridge/internal/bridge"
	"github.com/roach88/wasmbridge/internal/channel"
	"github.com/roach88/wasmbridge/internal/engine"
	"github.com/roach88/wasmbridge/internal/payload"
	"github.com/roach88/wasmbridge/internal/testutil"
	"github.com/roach88/wasmbridge/internal/trigger"
)

// StepTimeout bounds how long one upload may take before the run is aborted.
const StepTimeout = 5 * time.Second

// Harness drives the real trigger, channel and engine with in-memory files.
//
// Uploads are awaited one at a time (or released in a scripted order), so the
// trace of a scenario is the same on every run.
type Harness struct {
	app    *engine.App
	rx     *channel.Consumer[payload.Example]
	trig   *trigger.Trigger[payload.Example]
	button *testutil.Source
	result *Result

	// received is set by the poll handler during a tick.
	received bool
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger shared by the trigger and the engine.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario in a fresh app and returns its trace.
//
// Execution flow:
//  1. Create an app with the bridge installed under the scenario's policy
//  2. Execute steps in order, waiting for every upload to finish
//  3. Evaluate assertions against the trace
//
// Run returns an error only if the scenario could not be executed; failed
// assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := bridge.ParsePolicy(scenario.Drain)
	if err != nil {
		return nil, err
	}

	tx, rx := channel.New[payload.Example]()
	h := &Harness{
		app:    engine.New(engine.WithLogger(o.logger)),
		rx:     rx,
		button: testutil.NewSource(),
		result: NewResult(),
	}
	defer h.app.Shutdown()

	if err := bridge.Install(h.app, rx,
		bridge.WithPolicy[payload.Example](policy),
		bridge.WithHandler[payload.Example](h.receive),
	); err != nil {
		return nil, err
	}
	h.trig = trigger.New(tx, payload.JSONDecoder[payload.Example]{},
		trigger.WithLogger(o.logger),
		trigger.WithIDGenerator(trigger.NewFixedGenerator()),
		trigger.WithSource(h.button),
	)

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}
	h.trig.Wait()
	h.result.Pending = rx.Len()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) execute(step Step) error {
	switch step.Action {
	case StepUpload:
		src := testutil.NewSource(h.files(step.Files)...)
		return h.finish(h.trig.Handle(trigger.Event{Kind: trigger.KindChange, Target: src}))

	case StepUploadConcurrent:
		return h.uploadConcurrent(step)

	case StepSelect:
		h.button.Select(h.files(step.Files)...)
		return nil

	case StepClick:
		return h.finish(h.trig.Handle(trigger.Event{Kind: trigger.KindClick}))

	case StepBadTarget:
		return h.finish(h.trig.Handle(trigger.Event{Kind: trigger.KindChange, Target: "button#send"}))

	case StepTick:
		n := step.Count
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			h.tick()
		}
		return nil

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// uploadConcurrent starts every upload before any read completes, then lets
// the reads finish in the scripted order.
func (h *Harness) uploadConcurrent(step Step) error {
	gated := make(map[string]*testutil.File, len(step.Files))
	tasks := make(map[string]*trigger.Task, len(step.Files))

	for _, spec := range step.Files {
		f := testutil.NewGatedFile(spec.Name, spec.Text)
		gated[spec.Name] = f
		tasks[spec.Name] = h.trig.Handle(trigger.Event{Kind: trigger.KindChange, Target: testutil.NewSource(f)})
	}

	for _, name := range step.Complete {
		gated[name].Release()
		if err := h.finish(tasks[name]); err != nil {
			// Unblock the rest so their goroutines exit.
			for _, f := range gated {
				f.Release()
			}
			return err
		}
	}
	return nil
}

func (h *Harness) files(specs []FileSpec) []trigger.File {
	files := make([]trigger.File, len(specs))
	for i, spec := range specs {
		if spec.Fail != "" {
			files[i] = testutil.NewFailingFile(spec.Name, errors.New(spec.Fail))
		} else {
			files[i] = testutil.NewFile(spec.Name, spec.Text)
		}
	}
	return files
}

// finish waits for task and records its outcome.
func (h *Harness) finish(task *trigger.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), StepTimeout)
	defer cancel()

	outcome, _ := task.Wait(ctx)
	if outcome == trigger.Pending {
		return fmt.Errorf("task %s did not finish: %w", task.ID, ctx.Err())
	}

	h.result.add(TraceEvent{
		Type:    EventUpload,
		Task:    task.ID,
		File:    task.File(),
		Outcome: outcome.String(),
	})
	return nil
}

func (h *Harness) tick() {
	h.received = false
	tick := h.app.Tick(context.Background())
	if !h.received {
		h.result.add(TraceEvent{Type: EventEmpty, Tick: tick})
	}
}

func (h *Harness) receive(_ context.Context, tick int64, v payload.Example) error {
	h.received = true
	h.result.add(TraceEvent{Type: EventReceived, Tick: tick, Payload: &v})
	return nil
}
