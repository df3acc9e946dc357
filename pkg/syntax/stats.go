package syntax

// HaltReason records why the most recent parse stopped early.
type HaltReason uint8

const (
	HaltNone HaltReason = iota
	HaltTimeout
	HaltCancelled
	HaltContext
)

func (r HaltReason) String() string {
	switch r {
	case HaltTimeout:
		return "timeout"
	case HaltCancelled:
		return "cancelled"
	case HaltContext:
		return "context"
	default:
		return "none"
	}
}

// Stats are counters for the most recent parse call.
type Stats struct {
	// Reads counts calls to Input.Read, including the final empty one.
	Reads int

	// ChunksAcquired and ChunksReleased count parser-owned copies of Read
	// results. They are equal whenever a parse call returns.
	ChunksAcquired int
	ChunksReleased int

	BytesRead      uint64
	Tokens         int
	ReusedSubtrees int

	// Resumed is set when the call continued a halted parse.
	Resumed bool
	Halt    HaltReason
}
