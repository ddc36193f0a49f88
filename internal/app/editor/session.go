package editor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/trackdeck/trackdeck/internal/app/group"
	"github.com/trackdeck/trackdeck/internal/app/notify"
	"github.com/trackdeck/trackdeck/internal/domain/playlist"
)

// Errors
var (
	ErrSyncInFlight    = errors.New("sync already in progress")
	ErrLoadInFlight    = errors.New("page load already in progress")
	ErrSessionBusy     = errors.New("session is syncing")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDuplicateIndex  = errors.New("duplicate move index")
	ErrNotPermutation  = errors.New("grouped entries are not a permutation of the working order")
)

// TrackSource fetches one page of playlist entries.
type TrackSource interface {
	TracksPage(ctx context.Context, playlistID string, offset, limit int) ([]playlist.Entry, int, error)
}

// RemoteExecutor applies remote playlist mutations.
type RemoteExecutor interface {
	Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int) error
	RemoveTrack(ctx context.Context, playlistID, uri string) error
}

// Options holds session tuning knobs.
type Options struct {
	PageLimit int           // entries per track page (API max 100)
	Pacing    time.Duration // delay between remote calls during sync
}

// DefaultOptions are used where a zero Options is supplied.
var DefaultOptions = Options{
	PageLimit: 100,
	Pacing:    100 * time.Millisecond,
}

// Session holds the local edit state for one selected playlist.
//
// original is the last known remote truth; working carries the local
// edits. working is always a permutation-with-deletions of entries that
// originated from original plus newly paginated entries appended at the
// tail; entries are never fabricated locally. All mutations happen under
// the session mutex, so pagination is serialized against local edits.
type Session struct {
	mu sync.Mutex

	playlistID string
	phase      Phase
	loading    bool
	everLoaded bool

	original     []playlist.Entry
	working      []playlist.Entry
	totalRemote  int
	loadedOffset int

	source TrackSource
	exec   RemoteExecutor
	events *notify.Hub[Event]
	opts   Options
}

// NewSession creates an edit session for a playlist. The events hub may
// be shared across sessions; events carry the playlist ID.
func NewSession(playlistID string, source TrackSource, exec RemoteExecutor, events *notify.Hub[Event], opts Options) *Session {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultOptions.PageLimit
	}
	if opts.Pacing < 0 {
		opts.Pacing = DefaultOptions.Pacing
	}
	if events == nil {
		events = notify.NewHub[Event]()
	}
	return &Session{
		playlistID: playlistID,
		phase:      PhaseEmpty,
		source:     source,
		exec:       exec,
		events:     events,
		opts:       opts,
	}
}

// PlaylistID returns the playlist this session edits.
func (s *Session) PlaylistID() string {
	return s.playlistID
}

// Events returns the session's event hub.
func (s *Session) Events() *notify.Hub[Event] {
	return s.events
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Dirty reports whether the working order's identity-key sequence
// differs from the last-synced original order.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !playlist.SameOrder(s.original, s.working)
}

// Working returns a copy of the working order.
func (s *Session) Working() []playlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]playlist.Entry(nil), s.working...)
}

// Original returns a copy of the last-synced order.
func (s *Session) Original() []playlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]playlist.Entry(nil), s.original...)
}

// TotalRemote returns the remote track count reported by the last page
// fetch, or 0 before the first page.
func (s *Session) TotalRemote() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalRemote
}

// FullyLoaded reports whether every remote entry has been paginated in.
func (s *Session) FullyLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.everLoaded && s.loadedOffset >= s.totalRemote
}

// LoadNextPage fetches the next page of entries and appends them to the
// tail of both the original and working orders, never reordering
// existing entries. Returns whether more pages remain. On fetch failure
// partial data already loaded is retained.
func (s *Session) LoadNextPage(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return false, ErrSessionBusy
	}
	if s.loading {
		s.mu.Unlock()
		return false, ErrLoadInFlight
	}
	s.loading = true
	if !s.everLoaded {
		s.phase = PhaseLoading
	}
	offset := s.loadedOffset
	s.mu.Unlock()

	entries, total, err := s.source.TracksPage(ctx, s.playlistID, offset, s.opts.PageLimit)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.recomputePhaseLocked()
		s.mu.Unlock()
		return false, errors.Wrapf(err, "load tracks page at offset %d", offset)
	}
	if ctx.Err() != nil {
		// Selection changed while the page was in flight; drop the result.
		s.recomputePhaseLocked()
		s.mu.Unlock()
		return false, ctx.Err()
	}
	s.original = append(s.original, entries...)
	s.working = append(s.working, entries...)
	s.loadedOffset = offset + len(entries)
	s.totalRemote = total
	s.everLoaded = true
	s.recomputePhaseLocked()
	more := len(entries) > 0 && s.loadedOffset < s.totalRemote
	ev := s.eventLocked(EventPageLoaded)
	s.mu.Unlock()

	s.events.Publish(ev)
	return more, nil
}

// LoadAll follows pagination until the playlist is fully loaded or the
// context is cancelled.
func (s *Session) LoadAll(ctx context.Context) error {
	for {
		more, err := s.LoadNextPage(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Move removes the entries at the given working-order positions (their
// relative order preserved) and reinserts them as a contiguous block
// starting at toPosition, expressed in the post-removal index space.
func (s *Session) Move(fromIndices []int, toPosition int) error {
	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	moved, err := moveEntries(s.working, fromIndices, toPosition)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.working = moved
	s.recomputePhaseLocked()
	ev := s.eventLocked(EventEdited)
	s.mu.Unlock()

	s.events.Publish(ev)
	return nil
}

// Delete removes the entry with the given identity key from the working
// order. Duplicate tracks carry distinct keys, so deleting one
// occurrence leaves the others in place locally (the remote delete
// primitive is coarser; see Plan).
func (s *Session) Delete(key string) error {
	return s.deleteWhere(func(e playlist.Entry) bool {
		return e.Key() == key
	})
}

// DeleteAllByArtist removes every working-order entry whose primary
// artist matches name.
func (s *Session) DeleteAllByArtist(name string) error {
	return s.deleteWhere(func(e playlist.Entry) bool {
		return e.PrimaryArtist() == name
	})
}

func (s *Session) deleteWhere(match func(playlist.Entry) bool) error {
	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	kept := s.working[:0:0]
	for _, e := range s.working {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	s.working = kept
	s.recomputePhaseLocked()
	ev := s.eventLocked(EventEdited)
	s.mu.Unlock()

	s.events.Publish(ev)
	return nil
}

// GroupByArtist rewrites the working order as per-artist runs in
// first-appearance order. This is an explicit bulk reorder, unlike the
// grouped view projection, so it marks the session dirty when the order
// changes. The partition is stable, which makes the operation
// idempotent.
func (s *Session) GroupByArtist() error {
	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.working = group.Flatten(group.ByArtist(s.working))
	s.recomputePhaseLocked()
	ev := s.eventLocked(EventEdited)
	s.mu.Unlock()

	s.events.Publish(ev)
	return nil
}

// GroupedView returns the per-artist projection of the working order.
// It does not modify the session and never marks it dirty.
func (s *Session) GroupedView() []group.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return group.ByArtist(s.working)
}

// ApplyGroups writes a reordered grouped view back into the working
// order. The flattened groups must be a permutation of the current
// working entries; the result is dirty-checked exactly as any other
// move.
func (s *Session) ApplyGroups(groups []group.Group) error {
	flat := group.Flatten(groups)

	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	if !samePermutation(s.working, flat) {
		s.mu.Unlock()
		return ErrNotPermutation
	}
	s.working = flat
	s.recomputePhaseLocked()
	ev := s.eventLocked(EventEdited)
	s.mu.Unlock()

	s.events.Publish(ev)
	return nil
}

// Discard resets the working order to the last-synced original order.
func (s *Session) Discard() {
	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return
	}
	s.working = append([]playlist.Entry(nil), s.original...)
	s.recomputePhaseLocked()
	ev := s.eventLocked(EventDiscarded)
	s.mu.Unlock()

	s.events.Publish(ev)
}

// Plan computes the ordered remote operations that converge the remote
// playlist to the working order. See plan.go for the algorithm.
func (s *Session) Plan() []RemoteOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computePlan(s.original, s.working)
}

// Sync executes the plan serially against the remote, one call at a
// time with a pacing delay between calls. The first failing operation
// aborts the remaining plan and leaves the working order untouched so
// the user can retry or discard. On success the working order becomes
// the new original. Concurrent Sync calls are rejected, not queued.
func (s *Session) Sync(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseSyncing {
		s.mu.Unlock()
		return ErrSyncInFlight
	}
	plan := computePlan(s.original, s.working)
	if len(plan) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.phase = PhaseSyncing
	startEv := s.eventLocked(EventSyncStarted)
	s.mu.Unlock()

	s.events.Publish(startEv)
	zlog.Info().
		Str("playlist_id", s.playlistID).
		Int("ops", len(plan)).
		Msg("Sync started")

	if err := s.execute(ctx, plan); err != nil {
		s.mu.Lock()
		s.recomputePhaseLocked()
		ev := s.eventLocked(EventSyncFailed)
		ev.Err = err
		s.mu.Unlock()

		s.events.Publish(ev)
		zlog.Warn().
			Str("playlist_id", s.playlistID).
			Err(err).
			Msg("Sync aborted")
		return err
	}

	s.mu.Lock()
	s.original = append([]playlist.Entry(nil), s.working...)
	s.recomputePhaseLocked()
	ev := s.eventLocked(EventSynced)
	s.mu.Unlock()

	s.events.Publish(ev)
	zlog.Info().
		Str("playlist_id", s.playlistID).
		Msg("Sync completed")
	return nil
}

func (s *Session) execute(ctx context.Context, plan []RemoteOp) error {
	for i, op := range plan {
		if i > 0 && s.opts.Pacing > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "sync aborted before op %d/%d", i+1, len(plan))
			case <-time.After(s.opts.Pacing):
			}
		}

		var err error
		switch op.Kind {
		case OpRemoveTrack:
			err = s.exec.RemoveTrack(ctx, s.playlistID, op.URI)
		case OpReorderRange:
			err = s.exec.Reorder(ctx, s.playlistID, op.RangeStart, op.InsertBefore, op.RangeLength)
		}
		if err != nil {
			return errors.Wrapf(err, "op %d/%d (%s)", i+1, len(plan), op)
		}
		zlog.Debug().
			Str("playlist_id", s.playlistID).
			Str("op", op.String()).
			Msg("Sync op applied")
	}
	return nil
}

// recomputePhaseLocked derives the phase from loaded/dirty state.
// Callers hold s.mu.
func (s *Session) recomputePhaseLocked() {
	switch {
	case !s.everLoaded && s.loading:
		s.phase = PhaseLoading
	case !s.everLoaded:
		s.phase = PhaseEmpty
	case !playlist.SameOrder(s.original, s.working):
		s.phase = PhaseDirty
	default:
		s.phase = PhaseLoaded
	}
}

func (s *Session) eventLocked(t EventType) Event {
	return Event{
		Seq:        s.events.NextSequenceNo(),
		Type:       t,
		PlaylistID: s.playlistID,
		Phase:      s.phase,
		Dirty:      !playlist.SameOrder(s.original, s.working),
	}
}

// moveEntries removes the entries at the given positions, preserving
// their relative order, and reinserts them as a block at toPosition in
// the post-removal index space. toPosition is clamped to the valid
// range, matching list-reorder UI semantics.
func moveEntries(entries []playlist.Entry, fromIndices []int, toPosition int) ([]playlist.Entry, error) {
	if len(fromIndices) == 0 {
		return entries, nil
	}

	idx := append([]int(nil), fromIndices...)
	sort.Ints(idx)

	picked := make([]playlist.Entry, 0, len(idx))
	pickedAt := make(map[int]bool, len(idx))
	for i, f := range idx {
		if f < 0 || f >= len(entries) {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "index %d of %d entries", f, len(entries))
		}
		if i > 0 && idx[i-1] == f {
			return nil, errors.Wrapf(ErrDuplicateIndex, "index %d", f)
		}
		picked = append(picked, entries[f])
		pickedAt[f] = true
	}

	rest := make([]playlist.Entry, 0, len(entries)-len(picked))
	for i, e := range entries {
		if !pickedAt[i] {
			rest = append(rest, e)
		}
	}

	if toPosition < 0 {
		toPosition = 0
	}
	if toPosition > len(rest) {
		toPosition = len(rest)
	}

	out := make([]playlist.Entry, 0, len(entries))
	out = append(out, rest[:toPosition]...)
	out = append(out, picked...)
	out = append(out, rest[toPosition:]...)
	return out, nil
}

// samePermutation reports whether b contains exactly the same identity
// keys as a, in any order.
func samePermutation(a, b []playlist.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, e := range a {
		counts[e.Key()]++
	}
	for _, e := range b {
		counts[e.Key()]--
		if counts[e.Key()] < 0 {
			return false
		}
	}
	return true
}
