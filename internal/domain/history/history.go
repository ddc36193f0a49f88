// Package history provides play-history domain entities.
package history

import (
	"strings"
	"time"

	"github.com/trackdeck/trackdeck/internal/domain/track"
)

const playlistURIPrefix = "spotify:playlist:"

// Play represents one entry from the user's recently-played history.
type Play struct {
	Track      track.Track // the played track
	PlayedAt   time.Time   // when playback occurred
	ContextURI string      // playback context URI, empty when none
}

// PlaylistID returns the playlist ID referenced by the play's context,
// or "" when the play did not happen inside a playlist.
func (p Play) PlaylistID() string {
	if strings.HasPrefix(p.ContextURI, playlistURIPrefix) {
		return strings.TrimPrefix(p.ContextURI, playlistURIPrefix)
	}
	return ""
}

// LatestByPlaylist builds a playlistID -> most recent played-at mapping.
// Plays without a playlist context are ignored; only the maximum
// timestamp per playlist is kept.
func LatestByPlaylist(plays []Play) map[string]time.Time {
	latest := make(map[string]time.Time)
	for _, p := range plays {
		id := p.PlaylistID()
		if id == "" {
			continue
		}
		if cur, ok := latest[id]; !ok || p.PlayedAt.After(cur) {
			latest[id] = p.PlayedAt
		}
	}
	return latest
}
