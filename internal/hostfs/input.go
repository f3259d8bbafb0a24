package hostfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/wasmbridge/internal/trigger"
)

// Uploader is the trigger side an Input feeds. *trigger.Trigger[T] satisfies
// it for every payload type.
type Uploader interface {
	Handle(ev trigger.Event) *trigger.Task
}

// Input is the headless stand-in for a browser file input: a settable list of
// selected paths.
//
// Thread-safety: all methods are safe for concurrent use.
type Input struct {
	mu    sync.Mutex
	paths []string

	// uploadMu makes select-then-fire atomic across concurrent Upload calls.
	uploadMu sync.Mutex
}

// NewInput returns an input with paths selected.
func NewInput(paths ...string) *Input {
	in := &Input{}
	in.Select(paths...)
	return in
}

// Select replaces the current selection.
func (in *Input) Select(paths ...string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.paths = append([]string(nil), paths...)
}

// Files implements trigger.FileSource. Each call stats the selected paths
// again; a path that cannot be stat'ed still appears and fails on read.
func (in *Input) Files() []trigger.File {
	in.mu.Lock()
	paths := append([]string(nil), in.paths...)
	in.mu.Unlock()

	files := make([]trigger.File, len(paths))
	for i, p := range paths {
		files[i] = openDiskFile(p)
	}
	return files
}

// Upload selects paths and fires a change event at up, the way picking files
// in the browser dialog does.
func (in *Input) Upload(up Uploader, paths ...string) *trigger.Task {
	in.uploadMu.Lock()
	defer in.uploadMu.Unlock()

	in.Select(paths...)
	return up.Handle(trigger.Event{Kind: trigger.KindChange, Target: in})
}

// DiskFile is a trigger.File backed by a path on the local filesystem.
type DiskFile struct {
	path    string
	size    int64
	statErr error
}

func openDiskFile(path string) *DiskFile {
	f := &DiskFile{path: path}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		f.statErr = err
	case info.IsDir():
		f.statErr = fmt.Errorf("%s: is a directory", path)
	default:
		f.size = info.Size()
	}
	return f
}

// Name returns the base name, as a browser File would.
func (f *DiskFile) Name() string {
	return filepath.Base(f.path)
}

// Path returns the full path.
func (f *DiskFile) Path() string {
	return f.path
}

// Size returns the size seen when the file was selected.
func (f *DiskFile) Size() int64 {
	return f.size
}

// Text reads the whole file.
func (f *DiskFile) Text(ctx context.Context) (string, error) {
	if f.statErr != nil {
		return "", f.statErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
