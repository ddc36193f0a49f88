package editor

import "fmt"

// OpKind represents a remote mutation kind.
type OpKind int

const (
	OpRemoveTrack  OpKind = iota // remove every occurrence of a URI
	OpReorderRange               // move a contiguous range to a new position
)

// RemoteOp is one remote playlist mutation. The Spotify API offers
// exactly two primitives: delete all occurrences of a URI, and move a
// contiguous range of rangeLength items starting at rangeStart to
// immediately before insertBefore.
type RemoteOp struct {
	Kind OpKind

	// OpRemoveTrack
	URI string

	// OpReorderRange
	RangeStart   int
	InsertBefore int
	RangeLength  int
}

// String returns a compact human-readable form, used by CLI plan output
// and logs.
func (op RemoteOp) String() string {
	switch op.Kind {
	case OpRemoveTrack:
		return fmt.Sprintf("remove %s", op.URI)
	case OpReorderRange:
		return fmt.Sprintf("reorder [%d..%d) -> before %d", op.RangeStart, op.RangeStart+op.RangeLength, op.InsertBefore)
	default:
		return "unknown"
	}
}
