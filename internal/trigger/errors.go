package trigger

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped by read failures for files above the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrNotFileSource is wrapped by cast failures when an event target does not
// expose a file list.
var ErrNotFileSource = errors.New("event target is not a file source")

// ErrorCode categorizes ingestion failures.
type ErrorCode string

const (
	// ErrCodeCast indicates the event target lacked the FileSource capability.
	ErrCodeCast ErrorCode = "CAST_FAILURE"

	// ErrCodeRead indicates the asynchronous file read failed.
	ErrCodeRead ErrorCode = "READ_FAILURE"

	// ErrCodeDecode indicates the file contents did not decode into a payload.
	ErrCodeDecode ErrorCode = "DECODE_FAILURE"

	// ErrCodeClosed indicates the send happened after the consumer was gone.
	ErrCodeClosed ErrorCode = "CHANNEL_CLOSED"
)

// IngestError describes why one ingestion task did not produce a payload.
//
// It never leaves the task that created it: the engine side only sees values
// that made it into the channel.
type IngestError struct {
	// Code identifies the error category.
	Code ErrorCode

	// TaskID identifies the failing task.
	TaskID string

	// File is the name of the file being ingested, if one was selected.
	File string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %v (task=%s, file=%s)", e.Code, e.Err, e.TaskID, e.File)
	}
	return fmt.Sprintf("%s: %v (task=%s)", e.Code, e.Err, e.TaskID)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// IsCastError reports whether err is an element cast failure.
func IsCastError(err error) bool { return hasCode(err, ErrCodeCast) }

// IsReadError reports whether err is a file read failure.
func IsReadError(err error) bool { return hasCode(err, ErrCodeRead) }

// IsDecodeError reports whether err is a payload decode failure.
func IsDecodeError(err error) bool { return hasCode(err, ErrCodeDecode) }

// IsClosedError reports whether err is a send on a closed channel.
func IsClosedError(err error) bool { return hasCode(err, ErrCodeClosed) }
