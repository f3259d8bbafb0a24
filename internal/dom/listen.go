//go:build js && wasm

package dom

import (
	"syscall/js"

	"github.com/roach88/wasmbridge/internal/trigger"
)

// Handler receives trigger events. *trigger.Trigger[T] satisfies it.
type Handler interface {
	Handle(ev trigger.Event) *trigger.Task
}

// Listen registers h for event on el. Each notification is turned into a
// trigger.Event of the given kind. A target that passes AsInput is handed on
// as *Input; anything else is handed on untyped and the trigger's own
// capability check rejects it.
//
// h.Handle runs inside the browser callback, so it must not block. The
// returned function removes the listener and releases the callback.
func Listen(el js.Value, event string, kind trigger.Kind, h Handler) (release func()) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		var target any
		if len(args) > 0 {
			raw := args[0].Get("target")
			if in, err := AsInput(raw); err == nil {
				target = in
			} else {
				target = raw
			}
		}
		h.Handle(trigger.Event{Kind: kind, Target: target})
		return nil
	})

	el.Call("addEventListener", event, fn)

	return func() {
		el.Call("removeEventListener", event, fn)
		fn.Release()
	}
}
