package testutil

import (
	"context"
	"sync"

	"github.com/roach88/wasmbridge/internal/trigger"
)

// File is an in-memory trigger.File.
//
// A gated file blocks in Text until Release is called, which lets a test
// decide the order in which overlapping reads complete.
//
// Thread-safety: all methods are safe for concurrent use.
type File struct {
	name string
	text string
	err  error
	size int64

	gate        chan struct{}
	releaseOnce sync.Once
	started     chan struct{}
	startOnce   sync.Once
}

// NewFile returns a file whose read succeeds immediately with text.
func NewFile(name, text string) *File {
	return &File{
		name:    name,
		text:    text,
		size:    int64(len(text)),
		started: make(chan struct{}),
	}
}

// NewGatedFile returns a file whose read blocks until Release.
func NewGatedFile(name, text string) *File {
	f := NewFile(name, text)
	f.gate = make(chan struct{})
	return f
}

// NewFailingFile returns a file whose read fails with err.
func NewFailingFile(name string, err error) *File {
	f := NewFile(name, "")
	f.err = err
	return f
}

// WithSize overrides the reported size.
func (f *File) WithSize(n int64) *File {
	f.size = n
	return f
}

// Name implements trigger.File.
func (f *File) Name() string { return f.name }

// Size implements trigger.File.
func (f *File) Size() int64 { return f.size }

// Text implements trigger.File.
func (f *File) Text(ctx context.Context) (string, error) {
	f.startOnce.Do(func() { close(f.started) })

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// Release unblocks a gated read. Safe to call more than once.
func (f *File) Release() {
	if f.gate == nil {
		return
	}
	f.releaseOnce.Do(func() { close(f.gate) })
}

// Started is closed once a read has begun.
func (f *File) Started() <-chan struct{} {
	return f.started
}

// Source is a trigger.FileSource with a settable selection.
type Source struct {
	mu    sync.Mutex
	files []trigger.File
}

// NewSource returns a source selecting files.
func NewSource(files ...trigger.File) *Source {
	s := &Source{}
	s.Select(files...)
	return s
}

// Select replaces the current selection.
func (s *Source) Select(files ...trigger.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]trigger.File(nil), files...)
}

// Files implements trigger.FileSource.
func (s *Source) Files() []trigger.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trigger.File(nil), s.files...)
}
