//go:build js && wasm

package dom

import (
	"context"
	"errors"
	"syscall/js"
)

type settled struct {
	v   js.Value
	err error
}

// Await blocks the calling goroutine until promise settles or ctx is done.
//
// Must not be called from inside a js.FuncOf callback: the callback would
// block the browser's event loop, and the promise could never settle.
func Await(ctx context.Context, promise js.Value) (js.Value, error) {
	ch := make(chan settled, 1)

	onResolve := js.FuncOf(func(this js.Value, args []js.Value) any {
		v := js.Undefined()
		if len(args) > 0 {
			v = args[0]
		}
		ch <- settled{v: v}
		return nil
	})
	onReject := js.FuncOf(func(this js.Value, args []js.Value) any {
		reason := js.Undefined()
		if len(args) > 0 {
			reason = args[0]
		}
		ch <- settled{err: jsError(reason)}
		return nil
	})
	release := func() {
		onResolve.Release()
		onReject.Release()
	}

	promise.Call("then", onResolve, onReject)

	select {
	case r := <-ch:
		release()
		return r.v, r.err
	case <-ctx.Done():
		// The callbacks stay alive until the promise settles.
		go func() {
			<-ch
			release()
		}()
		return js.Undefined(), ctx.Err()
	}
}

// jsError converts a rejection reason into a Go error.
func jsError(reason js.Value) error {
	if reason.Type() == js.TypeObject {
		if msg := reason.Get("message"); msg.Type() == js.TypeString {
			return errors.New(msg.String())
		}
	}
	return errors.New(reason.String())
}
