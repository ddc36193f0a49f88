// Package rank orders playlists by most-recent listening activity.
package rank

import (
	"sort"
	"time"

	"github.com/trackdeck/trackdeck/internal/domain/history"
	"github.com/trackdeck/trackdeck/internal/domain/playlist"
)

// Rank returns playlists ordered by most-recent play activity derived
// from the given history. Playlists with a ranking timestamp sort before
// those without; ranked ties break by descending timestamp; unranked
// playlists keep their relative input order. The input slice is not
// modified.
func Rank(playlists []playlist.Playlist, plays []history.Play) []playlist.Playlist {
	return RankByTimestamp(playlists, history.LatestByPlaylist(plays))
}

// RankByTimestamp ranks against a prebuilt playlistID -> last-played
// mapping. A stable sort is required here: unranked playlists must keep
// their input order.
func RankByTimestamp(playlists []playlist.Playlist, latest map[string]time.Time) []playlist.Playlist {
	ranked := make([]playlist.Playlist, len(playlists))
	copy(ranked, playlists)

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, iok := latest[ranked[i].ID]
		tj, jok := latest[ranked[j].ID]
		switch {
		case iok && jok:
			return ti.After(tj)
		case iok:
			return true
		default:
			return false
		}
	})
	return ranked
}
