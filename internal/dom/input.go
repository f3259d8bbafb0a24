//go:build js && wasm

package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/roach88/wasmbridge/internal/trigger"
)

// ErrNotFileInput is returned when a value is not an <input type="file">.
var ErrNotFileInput = errors.New("element is not a file input")

// Input wraps an HTML <input type="file"> element.
type Input struct {
	el js.Value
}

// AsInput checks that v is a file input element. This is the capability
// check behind the untyped event target; it never assumes success.
func AsInput(v js.Value) (*Input, error) {
	if v.Type() != js.TypeObject || v.IsNull() {
		return nil, fmt.Errorf("%w: got %s", ErrNotFileInput, v.Type())
	}
	tag := v.Get("tagName")
	if tag.Type() != js.TypeString || !strings.EqualFold(tag.String(), "input") {
		return nil, fmt.Errorf("%w: tag %v", ErrNotFileInput, tag)
	}
	if typ := v.Get("type"); typ.Type() != js.TypeString || typ.String() != "file" {
		return nil, fmt.Errorf("%w: type %v", ErrNotFileInput, typ)
	}
	return &Input{el: v}, nil
}

// CreateInput creates <input type="file"> with the given id, name and class
// and appends it to the document body.
func CreateInput(doc js.Value, id string) (*Input, error) {
	el := doc.Call("createElement", "input")
	el.Set("type", "file")
	el.Set("name", id)
	el.Set("id", id)
	el.Set("className", id)

	body := doc.Get("body")
	if !body.Truthy() {
		return nil, errors.New("document has no body")
	}
	body.Call("appendChild", el)

	return AsInput(el)
}

// CreateButton creates a <button> with the given id and label and appends it
// to the document body.
func CreateButton(doc js.Value, id, label string) (js.Value, error) {
	el := doc.Call("createElement", "button")
	el.Set("id", id)
	el.Set("className", id)
	el.Set("textContent", label)

	body := doc.Get("body")
	if !body.Truthy() {
		return js.Undefined(), errors.New("document has no body")
	}
	body.Call("appendChild", el)
	return el, nil
}

// Element returns the wrapped element.
func (in *Input) Element() js.Value {
	return in.el
}

// Files implements trigger.FileSource over the element's FileList.
func (in *Input) Files() []trigger.File {
	list := in.el.Get("files")
	if !list.Truthy() {
		return nil
	}
	n := list.Get("length").Int()
	files := make([]trigger.File, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, &File{v: list.Call("item", i)})
	}
	return files
}

// File wraps a browser File object.
type File struct {
	v js.Value
}

// Name returns the file name.
func (f *File) Name() string {
	return f.v.Get("name").String()
}

// Size returns the size in bytes.
func (f *File) Size() int64 {
	return int64(f.v.Get("size").Float())
}

// Text awaits Blob.text(). The calling goroutine parks until the promise
// settles; the browser's event loop keeps running.
func (f *File) Text(ctx context.Context) (string, error) {
	v, err := Await(ctx, f.v.Call("text"))
	if err != nil {
		return "", err
	}
	if v.Type() != js.TypeString {
		return "", fmt.Errorf("text() resolved to %s, not a string", v.Type())
	}
	return v.String(), nil
}
