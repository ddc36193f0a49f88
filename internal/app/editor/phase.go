// Package editor provides the playlist edit session: local reorder and
// delete operations against a loaded playlist, dirty tracking, and the
// reconciliation plan that converges the remote playlist to the local
// working order.
package editor

// Phase represents the edit session lifecycle phase.
type Phase int

const (
	PhaseEmpty   Phase = iota // No data loaded yet
	PhaseLoading              // Initial page fetch in flight
	PhaseLoaded               // Working order matches last-synced order
	PhaseDirty                // Working order diverges from last-synced order
	PhaseSyncing              // Sync plan executing against the remote
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseDirty:
		return "dirty"
	case PhaseSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// EventType represents an edit session event type.
type EventType int

const (
	EventPageLoaded  EventType = iota // A page of entries was appended
	EventEdited                       // A local mutation changed the working order
	EventSyncStarted                  // Sync plan execution began
	EventSynced                       // Sync completed, remote converged
	EventSyncFailed                   // Sync aborted, local edits preserved
	EventDiscarded                    // Local edits reset to the last-synced order
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventPageLoaded:
		return "page_loaded"
	case EventEdited:
		return "edited"
	case EventSyncStarted:
		return "sync_started"
	case EventSynced:
		return "synced"
	case EventSyncFailed:
		return "sync_failed"
	case EventDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Event represents an edit session state change. Seq increases
// monotonically per hub, letting subscribers detect missed or
// out-of-order deliveries.
type Event struct {
	Seq        uint64
	Type       EventType
	PlaylistID string
	Phase      Phase
	Dirty      bool
	Err        error // set for EventSyncFailed
}
