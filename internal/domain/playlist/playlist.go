// Package playlist provides the Playlist domain entity and playlist
// membership entries.
package playlist

import (
	"time"

	"github.com/trackdeck/trackdeck/internal/domain/track"
)

// UnknownArtist is the bucket name for entries whose track is missing
// or carries no artist information.
const UnknownArtist = "Unknown Artist"

// Playlist represents a Spotify playlist summary.
// Identity is the ID alone; all other fields are display metadata.
type Playlist struct {
	ID            string        // Spotify Playlist ID
	Name          string        // Playlist name
	Description   string        // Playlist description
	Images        []track.Image // Cover images
	Owner         string        // Owner display name
	TrackTotal    int           // Track count as reported by the API
	Public        bool          // Public flag
	Collaborative bool          // Collaborative flag
	SnapshotID    string        // Remote snapshot identifier
	URL           string        // Spotify web URL
}

// Entry is a track's membership record within one playlist.
// Track is nil when the API returns a tombstoned/removed track; the
// identity key then falls back to the added-at/added-by composite.
type Entry struct {
	Track   *track.Track // nil for tombstoned tracks
	AddedAt time.Time    // when the entry was added to the playlist
	AddedBy string       // user ID that added the entry
	IsLocal bool         // local-file flag
}

// Key returns the identity key used to compare entries across snapshots.
// The same track can appear in a playlist more than once with different
// added-at timestamps, so the key is (trackID, addedAt), never the track
// ID alone.
func (e Entry) Key() string {
	ts := e.AddedAt.UTC().Format(time.RFC3339)
	if e.Track != nil {
		return e.Track.ID + "|" + ts
	}
	return "-|" + ts + "|" + e.AddedBy
}

// URI returns the playback URI for the entry's track, or "" when the
// track is absent and no remote operation can target it.
func (e Entry) URI() string {
	if e.Track == nil {
		return ""
	}
	return e.Track.URI
}

// PrimaryArtist returns the first listed artist of the entry's track,
// or UnknownArtist when the track is absent or has no artists.
func (e Entry) PrimaryArtist() string {
	if e.Track == nil {
		return UnknownArtist
	}
	if name := e.Track.PrimaryArtist(); name != "" {
		return name
	}
	return UnknownArtist
}

// Keys returns the identity-key sequence for a slice of entries.
func Keys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key()
	}
	return keys
}

// SameOrder reports whether two entry sequences have identical
// identity-key sequences.
func SameOrder(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key() != b[i].Key() {
			return false
		}
	}
	return true
}
