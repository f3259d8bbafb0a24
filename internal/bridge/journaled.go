package bridge

import (
	"context"
	"fmt"

	"github.com/roach88/wasmbridge/internal/journal"
	"github.com/roach88/wasmbridge/internal/payload"
)

// Appender is the part of the journal a journaled handler writes to.
type Appender interface {
	Append(ctx context.Context, e journal.Entry) (int64, error)
}

// Journaled wraps next so every payload is appended to j before next sees it.
//
// A journal write failure is returned and next still runs: losing an audit
// record must not cost the application the payload.
func Journaled[T any](j Appender, next Handler[T]) Handler[T] {
	return func(ctx context.Context, tick int64, v T) error {
		jerr := record(ctx, j, tick, v)
		if err := next(ctx, tick, v); err != nil {
			if jerr != nil {
				return fmt.Errorf("%w; %w", jerr, err)
			}
			return err
		}
		return jerr
	}
}

func record(ctx context.Context, j Appender, tick int64, v any) error {
	body, err := payload.Canonical(v)
	if err != nil {
		return fmt.Errorf("journal payload: %w", err)
	}
	digest, err := payload.Digest(v)
	if err != nil {
		return fmt.Errorf("journal payload: %w", err)
	}
	if _, err := j.Append(ctx, journal.Entry{Tick: tick, Digest: digest, Body: string(body)}); err != nil {
		return fmt.Errorf("journal payload: %w", err)
	}
	return nil
}
