// Package engine implements the tick-driven host the bridge feeds.
//
// The engine has two parts:
//
// Resources:
// A type-keyed registry of long-lived state. Each type is inserted once at
// startup and handed by pointer to every system on every tick. Resources that
// implement io.Closer are closed at Shutdown, in reverse insertion order.
//
// Scheduler:
// App.Tick runs every registered System once, in registration order, stamped
// with the next number from the tick Clock. App.Run repeats this at a fixed
// rate until its context is done.
//
// Single-Threaded Ticks:
// Tick and Run are called from one goroutine. Systems must not block: the
// frame loop never waits on input produced elsewhere. State produced by other
// goroutines is handed over through a resource that owns its own
// synchronization (see package channel).
//
// A system error is logged and the tick carries on. Errors never stop the
// loop.
package engine
