// Package channel implements the transfer channel between the browser side and
// the engine side of the bridge.
//
// A channel is an unbounded FIFO queue with exactly one logical producer and
// one logical consumer. The two handles are created together by New:
//
//	tx, rx := channel.New[payload.Example]()
//
// The producer handle is moved into a long-lived event handler (each handler
// registration takes its own Clone). The consumer handle is moved into the
// engine's resource registry and lives for the whole run.
//
// GUARANTEES:
//
//   - Values are delivered in the order Send accepted them.
//   - A value accepted by Send is taken exactly once.
//   - TryTake never blocks. An empty channel is the steady state, not an error.
//   - Send is atomic with respect to other Sends from cloned handles.
//
// The channel owns all synchronization. Callers never lock.
//
// There is no blocking or timed take. The engine side must never stall a frame
// waiting on browser input.
package channel
