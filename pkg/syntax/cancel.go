package syntax

import "sync/atomic"

// CancellationFlag is a shared flag that halts a parse when set.
//
// The parser polls the flag at bounded intervals; setting it never
// interrupts a read that is already in progress. The flag is never cleared
// by the parser, so callers that want to resume must call Clear first.
type CancellationFlag struct {
	v atomic.Bool
}

// Set requests cancellation.
func (f *CancellationFlag) Set() { f.v.Store(true) }

// Clear withdraws a cancellation request.
func (f *CancellationFlag) Clear() { f.v.Store(false) }

// IsSet reports whether cancellation was requested.
func (f *CancellationFlag) IsSet() bool { return f.v.Load() }
