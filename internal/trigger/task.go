package trigger

import "context"

// Outcome is the terminal state of one ingestion task.
type Outcome int

const (
	// Pending means the task has not finished yet.
	Pending Outcome = iota
	// Sent means exactly one payload was enqueued.
	Sent
	// NoSelection means the element held no file. Not an error.
	NoSelection
	// CastFailure means the event target did not expose a file list.
	CastFailure
	// ReadFailure means reading the file failed or the file was too large.
	ReadFailure
	// DecodeFailure means the contents did not decode into a payload.
	DecodeFailure
	// ChannelClosed means the consumer was gone when the payload was sent.
	ChannelClosed
)

var outcomeNames = map[Outcome]string{
	Pending:       "pending",
	Sent:          "sent",
	NoSelection:   "no_selection",
	CastFailure:   "cast_failure",
	ReadFailure:   "read_failure",
	DecodeFailure: "decode_failure",
	ChannelClosed: "channel_closed",
}

// String returns the snake_case outcome name used in logs and traces.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Task is one in-flight ingestion started by Trigger.Handle.
//
// Outcome, Err and File are only meaningful once Done is closed.
type Task struct {
	// ID correlates the task's log lines.
	ID string

	// Kind is the kind of event that started the task.
	Kind Kind

	file    string
	done    chan struct{}
	outcome Outcome
	err     error
}

func newTask(id string, kind Kind) *Task {
	return &Task{
		ID:   id,
		Kind: kind,
		done: make(chan struct{}),
	}
}

// finish records the terminal state. Called exactly once per task.
func (t *Task) finish(outcome Outcome, err error) {
	t.outcome = outcome
	t.err = err
	close(t.done)
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Outcome returns the terminal state, or Pending while the task runs.
func (t *Task) Outcome() Outcome {
	select {
	case <-t.done:
		return t.outcome
	default:
		return Pending
	}
}

// Err returns the *IngestError for failed tasks, nil otherwise.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// File returns the name of the file the task ingested, if any was selected.
func (t *Task) File() string {
	select {
	case <-t.done:
		return t.file
	default:
		return ""
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, t.err
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}
