package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, describe(ev))
	}
	return buf.String()
}

func describe(ev TraceEvent) string {
	switch ev.Type {
	case EventUpload:
		return fmt.Sprintf("upload %s file=%q -> %s", ev.Task, ev.File, ev.Outcome)
	case EventReceived:
		return fmt.Sprintf("tick %d received %v", ev.Tick, ev.Payload)
	default:
		return fmt.Sprintf("tick %d %s", ev.Tick, ev.Type)
	}
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertReceivedCount:
		return assertReceivedCount(result, a)
	case AssertReceivedOrder:
		return assertReceivedOrder(result, a)
	case AssertUploadOutcome:
		return assertUploadOutcome(result, a)
	case AssertTraceCount:
		return assertTraceCount(result, a)
	case AssertPending:
		return assertPending(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertReceivedCount(result *Result, a Assertion) error {
	got := len(result.Received())
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertReceivedCount,
		Expected: fmt.Sprintf("%d payloads received", a.Count),
		Actual:   fmt.Sprintf("%d payloads received", got),
		Trace:    result.Trace,
	}
}

// assertReceivedOrder checks the exact sequence of received payloads.
func assertReceivedOrder(result *Result, a Assertion) error {
	got := result.Received()
	actual := make([][]float32, len(got))
	for i, p := range got {
		actual[i] = p.Field1[:]
	}

	fail := &AssertionError{
		Type:     AssertReceivedOrder,
		Expected: fmt.Sprintf("%v", a.Payloads),
		Actual:   fmt.Sprintf("%v", actual),
		Trace:    result.Trace,
	}
	if len(actual) != len(a.Payloads) {
		return fail
	}
	for i := range actual {
		if !equalFloats(actual[i], a.Payloads[i]) {
			return fail
		}
	}
	return nil
}

func equalFloats(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertUploadOutcome checks the outcome of the first upload of a.File.
func assertUploadOutcome(result *Result, a Assertion) error {
	for _, ev := range result.Trace {
		if ev.Type != EventUpload || ev.File != a.File {
			continue
		}
		if ev.Outcome == a.Outcome {
			return nil
		}
		return &AssertionError{
			Type:     AssertUploadOutcome,
			Expected: fmt.Sprintf("%s -> %s", a.File, a.Outcome),
			Actual:   fmt.Sprintf("%s -> %s", a.File, ev.Outcome),
			Trace:    result.Trace,
		}
	}
	return &AssertionError{
		Type:     AssertUploadOutcome,
		Expected: fmt.Sprintf("%s -> %s", a.File, a.Outcome),
		Actual:   "no upload of that file in trace",
		Trace:    result.Trace,
	}
}

func assertTraceCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Type == a.Event {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s events", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d %s events", count, a.Event),
		Trace:    result.Trace,
	}
}

func assertPending(result *Result, a Assertion) error {
	if result.Pending == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertPending,
		Expected: fmt.Sprintf("%d payloads pending", a.Count),
		Actual:   fmt.Sprintf("%d payloads pending", result.Pending),
		Trace:    result.Trace,
	}
}
