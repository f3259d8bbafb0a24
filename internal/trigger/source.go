package trigger

import "context"

// Kind identifies which browser notification started an ingestion.
type Kind int

const (
	// KindChange is fired by the file input itself when its selection changes.
	KindChange Kind = iota + 1
	// KindClick is fired by a button bound to a file input. The files are read
	// from the bound input, not from the button.
	KindClick
)

// String returns the event kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindChange:
		return "change"
	case KindClick:
		return "click"
	default:
		return "unknown"
	}
}

// Event is a UI notification delivered to a Trigger.
//
// Target is untyped because the event system hands out a generic element
// handle. The trigger checks at the boundary that it provides FileSource.
type Event struct {
	Kind   Kind
	Target any
}

// FileSource is the capability the trigger needs from an element: access to
// its currently selected files. The list may be empty or hold more than one
// file.
type FileSource interface {
	Files() []File
}

// File is one selected file.
//
// Text reads the full contents. It is the only suspension point of an
// ingestion task and may fail at the I/O level.
type File interface {
	Name() string
	Size() int64
	Text(ctx context.Context) (string, error)
}
