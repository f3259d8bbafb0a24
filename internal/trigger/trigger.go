package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/wasmbridge/internal/channel"
	"github.com/roach88/wasmbridge/internal/payload"
)

// DefaultMaxBytes is the default upper bound on the size of an uploaded file.
const DefaultMaxBytes int64 = 1 << 20

// options configures a Trigger. It is not generic so that Option values can be
// built without naming the payload type.
type options struct {
	logger   *slog.Logger
	ids      IDGenerator
	source   FileSource
	maxBytes int64
	fatal    func(error)
	observer func(*Task)
	ctx      context.Context
}

// Option configures a Trigger.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithIDGenerator sets the task ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithSource binds the file input read by KindClick events.
func WithSource(src FileSource) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithMaxBytes sets the file size limit. Zero or less disables the check.
// Default: DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithFatalHandler sets the function called when a send finds the consumer
// gone. The default panics: the consumer is supposed to outlive every
// producer, so a closed channel is a broken invariant.
func WithFatalHandler(fn func(error)) Option {
	return func(o *options) {
		o.fatal = fn
	}
}

// WithObserver registers fn to be called once with every finished task, after
// its outcome is recorded. fn runs on the task's goroutine.
func WithObserver(fn func(*Task)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithContext sets the context passed to File.Text. In-flight reads are not
// cancelled by the trigger itself. Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// Trigger is the browser-side event handler that ingests uploaded files.
//
// Each call to Handle starts an independent task that reads the first
// selected file, decodes it and sends the payload through its own clone of
// the producer handle. Handle itself never waits on the read.
//
// Overlapping tasks deliver in the order their reads complete, not the order
// their events fired.
//
// Thread-safety: Handle may be called from any goroutine.
type Trigger[T any] struct {
	producer *channel.Producer[T]
	decoder  payload.Decoder[T]
	opts     options
	wg       sync.WaitGroup
}

// New creates a Trigger that owns producer.
func New[T any](producer *channel.Producer[T], decoder payload.Decoder[T], opts ...Option) *Trigger[T] {
	o := options{
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		maxBytes: DefaultMaxBytes,
		fatal:    func(err error) { panic(err) },
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Trigger[T]{
		producer: producer,
		decoder:  decoder,
		opts:     o,
	}
}

// Handle reacts to one UI event.
//
// The capability check and file selection happen synchronously, so a task
// that finds no file (or a target without files) is already finished when
// Handle returns. Otherwise the read and decode continue on a new goroutine.
func (t *Trigger[T]) Handle(ev Event) *Task {
	task := newTask(t.opts.ids.Generate(), ev.Kind)
	log := t.opts.logger.With("task", task.ID, "kind", ev.Kind.String())
	log.Debug("checking event target")

	target := ev.Target
	if ev.Kind == KindClick {
		target = t.opts.source
	}

	src, ok := target.(FileSource)
	if !ok || src == nil {
		err := &IngestError{
			Code:   ErrCodeCast,
			TaskID: task.ID,
			Err:    fmt.Errorf("%w: %T", ErrNotFileSource, target),
		}
		log.Error("event target has no file list", "target", fmt.Sprintf("%T", target))
		t.complete(task, CastFailure, err)
		return task
	}

	files := src.Files()
	if len(files) == 0 {
		log.Debug("no file selected")
		t.complete(task, NoSelection, nil)
		return task
	}
	if len(files) > 1 {
		log.Debug("multiple files selected, using the first", "count", len(files))
	}

	f := files[0]
	task.file = f.Name()

	t.wg.Add(1)
	go t.ingest(log, task, f, t.producer.Clone())

	return task
}

// Wait blocks until every task started so far has finished.
func (t *Trigger[T]) Wait() {
	t.wg.Wait()
}

// ingest is the suspended continuation of one task.
func (t *Trigger[T]) ingest(log *slog.Logger, task *Task, f File, producer *channel.Producer[T]) {
	defer t.wg.Done()

	log = log.With("file", f.Name())
	outcome, err := t.run(log, task, f, producer)
	t.complete(task, outcome, err)

	if outcome == ChannelClosed {
		t.opts.fatal(err)
	}
}

func (t *Trigger[T]) run(log *slog.Logger, task *Task, f File, producer *channel.Producer[T]) (outcome Outcome, err error) {
	fail := func(code ErrorCode, cause error) error {
		return &IngestError{Code: code, TaskID: task.ID, File: f.Name(), Err: cause}
	}

	// A panicking File implementation only takes down its own task.
	defer func() {
		if r := recover(); r != nil {
			log.Error("file read panicked", "panic", r)
			outcome, err = ReadFailure, fail(ErrCodeRead, fmt.Errorf("panic: %v", r))
		}
	}()

	if t.opts.maxBytes > 0 && f.Size() > t.opts.maxBytes {
		log.Error("file too large", "size", f.Size(), "limit", t.opts.maxBytes)
		return ReadFailure, fail(ErrCodeRead, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, f.Size(), t.opts.maxBytes))
	}

	text, readErr := f.Text(t.opts.ctx)
	if readErr != nil {
		log.Error("file read failed", "error", readErr)
		return ReadFailure, fail(ErrCodeRead, readErr)
	}

	v, decodeErr := t.decode(text)
	if decodeErr != nil {
		log.Warn("provided file does not have right shape", "format", t.decoder.Format(), "error", decodeErr)
		return DecodeFailure, fail(ErrCodeDecode, decodeErr)
	}

	if sendErr := producer.Send(v); sendErr != nil {
		log.Error("payload send failed", "error", sendErr)
		return ChannelClosed, fail(ErrCodeClosed, sendErr)
	}

	log.Info("payload sent")
	return Sent, nil
}

// decode runs the decoder, reporting a panic as a decode error.
func (t *Trigger[T]) decode(text string) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return t.decoder.Decode(text)
}

func (t *Trigger[T]) complete(task *Task, outcome Outcome, err error) {
	task.finish(outcome, err)
	if t.opts.observer != nil {
		t.opts.observer(task)
	}
}
