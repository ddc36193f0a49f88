// Package group provides stable grouping of playlist entries by primary
// artist. Grouping is a projection: it never fabricates or drops entries,
// so flattening a grouped view yields a permutation of the input.
package group

import "github.com/trackdeck/trackdeck/internal/domain/playlist"

// Group is one per-artist run of playlist entries.
type Group struct {
	Artist  string
	Entries []playlist.Entry
}

// ByArtist partitions entries into per-artist groups keyed by each
// track's first listed artist. This is a stable bucket partition, not a
// comparison sort: artists appear in first-appearance order and entries
// keep their original relative order within an artist, so ties never
// reorder.
func ByArtist(entries []playlist.Entry) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, e := range entries {
		artist := e.PrimaryArtist()
		i, ok := index[artist]
		if !ok {
			i = len(groups)
			index[artist] = i
			groups = append(groups, Group{Artist: artist})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// Flatten is the inverse of ByArtist: it concatenates group entries in
// group order. Used when a grouped view is reordered (group-level or
// intra-group drag) and the result is written back as a working order.
func Flatten(groups []Group) []playlist.Entry {
	var total int
	for _, g := range groups {
		total += len(g.Entries)
	}
	entries := make([]playlist.Entry, 0, total)
	for _, g := range groups {
		entries = append(entries, g.Entries...)
	}
	return entries
}
