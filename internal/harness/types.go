package harness

import "github.com/roach88/wasmbridge/internal/payload"

// Trace event types.
const (
	EventUpload   = "upload"   // an upload task finished
	EventReceived = "received" // the engine handed a payload to the application
	EventEmpty    = "empty"    // a tick found nothing to take
)

// TraceEvent is one observable step of a run.
type TraceEvent struct {
	Seq     int64            `json:"seq"`
	Type    string           `json:"type"`
	Tick    int64            `json:"tick,omitempty"`
	Task    string           `json:"task,omitempty"`
	File    string           `json:"file,omitempty"`
	Outcome string           `json:"outcome,omitempty"`
	Payload *payload.Example `json:"payload,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace holds upload completions and tick results in the order they
	// happened.
	Trace []TraceEvent `json:"trace"`

	// Pending is the number of payloads still queued when the run ended.
	Pending int `json:"pending"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// Received returns the payloads handed out, in order.
func (r *Result) Received() []payload.Example {
	var out []payload.Example
	for _, ev := range r.Trace {
		if ev.Type == EventReceived && ev.Payload != nil {
			out = append(out, *ev.Payload)
		}
	}
	return out
}
