package spotify

import (
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/trackdeck/trackdeck/internal/domain/history"
	"github.com/trackdeck/trackdeck/internal/domain/playlist"
	"github.com/trackdeck/trackdeck/internal/domain/track"
)

const trackURIPrefix = "spotify:track:"

// trackIDFromURI extracts the track ID from a Spotify track URI.
// Returns "" for URIs that do not name a regular track (local files,
// episodes).
func trackIDFromURI(uri string) string {
	if strings.HasPrefix(uri, trackURIPrefix) {
		return strings.TrimPrefix(uri, trackURIPrefix)
	}
	return ""
}

func convertPlaylist(p *spotify.SimplePlaylist) playlist.Playlist {
	return playlist.Playlist{
		ID:            string(p.ID),
		Name:          p.Name,
		Description:   p.Description,
		Images:        convertImages(p.Images),
		Owner:         p.Owner.DisplayName,
		TrackTotal:    int(p.Tracks.Total),
		Public:        p.IsPublic,
		Collaborative: p.Collaborative,
		SnapshotID:    p.SnapshotID,
		URL:           p.ExternalURLs["spotify"],
	}
}

func convertEntry(item *spotify.PlaylistItem) playlist.Entry {
	entry := playlist.Entry{
		AddedAt: parseTimestamp(item.AddedAt),
		AddedBy: item.AddedBy.ID,
		IsLocal: item.IsLocal,
	}
	// Episodes and tombstoned tracks leave Track nil; the entry's
	// identity then falls back to the added-at/added-by composite.
	if item.Track.Track != nil {
		t := convertFullTrack(item.Track.Track)
		entry.Track = &t
	}
	return entry
}

func convertFullTrack(t *spotify.FullTrack) track.Track {
	converted := convertSimpleTrack(&t.SimpleTrack)
	converted.Album = convertAlbum(&t.Album)
	return converted
}

func convertSimpleTrack(t *spotify.SimpleTrack) track.Track {
	artists := make([]track.Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = track.Artist{ID: string(a.ID), Name: a.Name}
	}

	uri := string(t.URI)
	if uri == "" && t.ID != "" {
		uri = trackURIPrefix + string(t.ID)
	}

	return track.Track{
		ID:       string(t.ID),
		Name:     t.Name,
		Artists:  artists,
		Album:    convertAlbum(&t.Album),
		Duration: time.Duration(t.Duration) * time.Millisecond,
		Explicit: t.Explicit,
		URL:      t.ExternalURLs["spotify"],
		URI:      uri,
	}
}

func convertAlbum(a *spotify.SimpleAlbum) track.Album {
	return track.Album{
		Name:        a.Name,
		Images:      convertImages(a.Images),
		ReleaseDate: a.ReleaseDate,
	}
}

func convertImages(images []spotify.Image) []track.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]track.Image, len(images))
	for i, img := range images {
		out[i] = track.Image{
			URL:    img.URL,
			Width:  int(img.Width),
			Height: int(img.Height),
		}
	}
	return out
}

func convertPlay(item *spotify.RecentlyPlayedItem) history.Play {
	return history.Play{
		Track:      convertSimpleTrack(&item.Track),
		PlayedAt:   item.PlayedAt,
		ContextURI: string(item.PlaybackContext.URI),
	}
}

// parseTimestamp parses the API's added-at format, tolerating the
// RFC3339 variant some responses carry. A zero time marks very old
// entries the API reports with an empty timestamp.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(spotify.TimestampLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
