// Package bridge connects the transfer channel to the engine.
//
// Install moves the consumer handle into the engine as a Receiver resource
// and schedules the poll system, so the application sees browser uploads as
// calls to its Handler from inside the tick loop.
//
// DRAIN POLICY:
//
// DrainOne (the default) takes at most one payload per tick, so a burst of N
// uploads reaches the application over N ticks. DrainAll takes everything
// that was pending when the tick started; payloads sent during the tick wait
// for the next one. Neither policy ever blocks.
package bridge
