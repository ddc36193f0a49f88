package editor

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/trackdeck/trackdeck/internal/app/notify"
)

// Manager owns the current edit session. Selecting a playlist replaces
// the previous session and cancels its pagination context, so pages
// still in flight for the old selection are discarded by the abandoned
// session rather than applied to the new one.
type Manager struct {
	mu sync.Mutex

	source TrackSource
	exec   RemoteExecutor
	events *notify.Hub[Event]
	opts   Options

	current *Session
	cancel  context.CancelFunc
}

// NewManager creates a session manager. All sessions it creates share
// one event hub.
func NewManager(source TrackSource, exec RemoteExecutor, opts Options) *Manager {
	return &Manager{
		source: source,
		exec:   exec,
		events: notify.NewHub[Event](),
		opts:   opts,
	}
}

// Events returns the hub shared by all sessions this manager creates.
func (m *Manager) Events() *notify.Hub[Event] {
	return m.events
}

// Select replaces the current session with a fresh one for playlistID
// and returns it together with a context derived from parent that is
// cancelled on the next selection. A dirty session is discarded without
// confirmation; the lost edits are logged.
func (m *Manager) Select(parent context.Context, playlistID string) (*Session, context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if m.current != nil && m.current.Dirty() {
		zlog.Warn().
			Str("playlist_id", m.current.PlaylistID()).
			Msg("Discarding unsynced edits on playlist change")
	}

	ctx, cancel := context.WithCancel(parent)
	m.current = NewSession(playlistID, m.source, m.exec, m.events, m.opts)
	m.cancel = cancel
	return m.current, ctx
}

// Current returns the current session, or nil before the first Select.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close drops the current session and stops its pagination, used on
// sign-out.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.current = nil
}
