// Package track provides the Track domain entity.
package track

import "time"

// Artist represents a track artist as returned by Spotify.
type Artist struct {
	ID   string // Spotify Artist ID
	Name string // Artist name
}

// Image represents one rendition of a cover image.
type Image struct {
	URL    string
	Width  int
	Height int
}

// Album represents the album a track belongs to.
type Album struct {
	Name        string
	Images      []Image
	ReleaseDate string // as reported by the API, precision varies
}

// Track represents a Spotify track entity.
// Contains only information retrieved from the Spotify API; tracks are
// never mutated locally and are replaced wholesale on every fetch.
type Track struct {
	ID       string        // Spotify Track ID
	Name     string        // Track name
	Artists  []Artist      // Artists in API order
	Album    Album         // Album info
	Duration time.Duration // Track duration
	Explicit bool          // Explicit content flag
	URL      string        // Spotify web URL
	URI      string        // Spotify URI (spotify:track:...)
}

// PrimaryArtist returns the first listed artist's name, or "" if the
// track has no artists.
func (t *Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// ArtistNames returns all artist names in API order.
func (t *Track) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}
