// Package trigger implements the browser-side ingestion of uploaded files.
//
// A Trigger is registered as the handler of a file input's change event (or
// of a button's click event, with the input bound through WithSource). Each
// event becomes a Task:
//
//  1. The event target is checked for the FileSource capability.
//  2. The first selected file is taken. No selection is a silent no-op.
//  3. The file is read asynchronously. This is the only suspension point.
//  4. The text is decoded into a payload.
//  5. The payload is sent through the task's own producer handle.
//
// FAILURE CONTAINMENT:
//
// Every failure stays inside the task that hit it. Decode failures are logged
// as warnings and the event is dropped. Read failures are logged as errors. A
// send on a closed channel is a broken ownership invariant and goes to the
// fatal handler. Nothing a task does can stall or fail an engine tick.
//
// There is no cancellation. A new event while a read is in flight starts a
// second, independent task.
package trigger
