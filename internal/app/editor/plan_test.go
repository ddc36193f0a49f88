package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackdeck/trackdeck/internal/domain/playlist"
	"github.com/trackdeck/trackdeck/internal/domain/track"
)

// entry builds a playlist entry for track id added at the given
// RFC3339 timestamp. The URI follows the Spotify track URI scheme so
// duplicate entries of the same track share a URI but not a key.
func entry(id, addedAt string) playlist.Entry {
	ts, err := time.Parse(time.RFC3339, addedAt)
	if err != nil {
		panic(err)
	}
	return playlist.Entry{
		Track: &track.Track{
			ID:  id,
			URI: "spotify:track:" + id,
		},
		AddedAt: ts,
		AddedBy: "user-1",
	}
}

func tombstone(addedAt, addedBy string) playlist.Entry {
	ts, err := time.Parse(time.RFC3339, addedAt)
	if err != nil {
		panic(err)
	}
	return playlist.Entry{AddedAt: ts, AddedBy: addedBy}
}

// replayReorders applies the plan's reorder ops to a copy of order the
// way the remote would.
func replayReorders(order []playlist.Entry, ops []RemoteOp) []playlist.Entry {
	out := append([]playlist.Entry(nil), order...)
	for _, op := range ops {
		if op.Kind != OpReorderRange {
			continue
		}
		moved := out[op.RangeStart]
		out = append(out[:op.RangeStart], out[op.RangeStart+1:]...)

		at := op.InsertBefore
		if op.RangeStart < op.InsertBefore {
			at--
		}
		rest := append([]playlist.Entry{moved}, out[at:]...)
		out = append(out[:at], rest...)
	}
	return out
}

func TestComputePlan_NoChanges(t *testing.T) {
	original := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		entry("b", "2024-01-02T00:00:00Z"),
	}
	working := append([]playlist.Entry(nil), original...)

	assert.Empty(t, computePlan(original, working))
}

func TestComputePlan_MoveToFront(t *testing.T) {
	original := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		entry("b", "2024-01-02T00:00:00Z"),
		entry("c", "2024-01-03T00:00:00Z"),
	}
	// C moved to index 0.
	working := []playlist.Entry{original[2], original[0], original[1]}

	ops := computePlan(original, working)
	require.Len(t, ops, 1)
	assert.Equal(t, RemoteOp{
		Kind:         OpReorderRange,
		RangeStart:   2,
		InsertBefore: 0,
		RangeLength:  1,
	}, ops[0])
}

func TestComputePlan_DeleteSingle(t *testing.T) {
	original := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		entry("b", "2024-01-02T00:00:00Z"),
		entry("c", "2024-01-03T00:00:00Z"),
	}
	working := []playlist.Entry{original[0], original[2]}

	ops := computePlan(original, working)
	require.Len(t, ops, 1)
	assert.Equal(t, RemoteOp{Kind: OpRemoveTrack, URI: "spotify:track:b"}, ops[0])
}

func TestComputePlan_DuplicateURIRemovedOnce(t *testing.T) {
	// The same track appears twice with different added-at timestamps.
	// Deleting one occurrence locally still emits a single remove op;
	// the remote delete removes both occurrences. This divergence from
	// user intent is documented behavior, not something the plan hides.
	original := []playlist.Entry{
		entry("x", "2024-01-01T00:00:00Z"),
		entry("y", "2024-01-02T00:00:00Z"),
		entry("x", "2024-01-03T00:00:00Z"),
	}
	working := []playlist.Entry{original[1], original[2]}

	ops := computePlan(original, working)
	removals := 0
	for _, op := range ops {
		if op.Kind == OpRemoveTrack {
			removals++
			assert.Equal(t, "spotify:track:x", op.URI)
		}
	}
	assert.Equal(t, 1, removals)
}

func TestComputePlan_BothDuplicatesDeleted(t *testing.T) {
	original := []playlist.Entry{
		entry("x", "2024-01-01T00:00:00Z"),
		entry("y", "2024-01-02T00:00:00Z"),
		entry("x", "2024-01-03T00:00:00Z"),
	}
	working := []playlist.Entry{original[1]}

	ops := computePlan(original, working)
	require.Len(t, ops, 1, "one remove per distinct URI, not per deleted entry")
	assert.Equal(t, RemoteOp{Kind: OpRemoveTrack, URI: "spotify:track:x"}, ops[0])
}

func TestComputePlan_DeletionsPrecedeReorders(t *testing.T) {
	original := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		entry("b", "2024-01-02T00:00:00Z"),
		entry("c", "2024-01-03T00:00:00Z"),
		entry("d", "2024-01-04T00:00:00Z"),
	}
	// B deleted, D moved to the front of the survivors.
	working := []playlist.Entry{original[3], original[0], original[2]}

	ops := computePlan(original, working)
	require.NotEmpty(t, ops)
	assert.Equal(t, OpRemoveTrack, ops[0].Kind)
	for _, op := range ops[1:] {
		assert.Equal(t, OpReorderRange, op.Kind)
	}

	// Reorder indices must be valid in the post-deletion order.
	postDelete := []playlist.Entry{original[0], original[2], original[3]}
	replayed := replayReorders(postDelete, ops)
	assert.Equal(t, playlist.Keys(working), playlist.Keys(replayed))
}

func TestComputePlan_TombstonedDeletionSkipped(t *testing.T) {
	// A tombstoned entry has no URI, so no remote op can target it.
	original := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		tombstone("2024-01-02T00:00:00Z", "user-2"),
	}
	working := []playlist.Entry{original[0]}

	assert.Empty(t, computePlan(original, working))
}

func TestComputePlan_LocalFileDeletionSkipped(t *testing.T) {
	// The delete primitive addresses tracks by ID; a local-file URI
	// would yield an op the executor can never apply, wedging every
	// sync attempt. The plan must not emit it.
	local := entry("ignored", "2024-01-02T00:00:00Z")
	local.Track.ID = ""
	local.Track.URI = "spotify:local:artist:album:song:180"
	local.IsLocal = true

	original := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		local,
		entry("b", "2024-01-03T00:00:00Z"),
	}
	working := []playlist.Entry{original[0], original[2]}

	for _, op := range computePlan(original, working) {
		assert.NotEqual(t, OpRemoveTrack, op.Kind)
	}
}

func TestComputePlan_ReplayConvergence(t *testing.T) {
	base := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		entry("b", "2024-01-02T00:00:00Z"),
		entry("c", "2024-01-03T00:00:00Z"),
		entry("d", "2024-01-04T00:00:00Z"),
		entry("e", "2024-01-05T00:00:00Z"),
	}

	tests := []struct {
		name  string
		order []int // working order as indices into base
	}{
		{name: "identity", order: []int{0, 1, 2, 3, 4}},
		{name: "reversal", order: []int{4, 3, 2, 1, 0}},
		{name: "rotation", order: []int{1, 2, 3, 4, 0}},
		{name: "swap ends", order: []int{4, 1, 2, 3, 0}},
		{name: "interleave", order: []int{2, 0, 4, 1, 3}},
		{name: "adjacent swap", order: []int{0, 2, 1, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			working := make([]playlist.Entry, len(tt.order))
			for i, idx := range tt.order {
				working[i] = base[idx]
			}

			ops := computePlan(base, working)
			for _, op := range ops {
				assert.Equal(t, OpReorderRange, op.Kind)
				assert.Equal(t, 1, op.RangeLength)
			}

			replayed := replayReorders(base, ops)
			assert.Equal(t, playlist.Keys(working), playlist.Keys(replayed))
		})
	}
}

func TestMoveEntries(t *testing.T) {
	base := []playlist.Entry{
		entry("a", "2024-01-01T00:00:00Z"),
		entry("b", "2024-01-02T00:00:00Z"),
		entry("c", "2024-01-03T00:00:00Z"),
		entry("d", "2024-01-04T00:00:00Z"),
	}

	tests := []struct {
		name     string
		from     []int
		to       int
		expected []string // track IDs in expected order
		wantErr  error
	}{
		{
			name:     "single to front",
			from:     []int{3},
			to:       0,
			expected: []string{"d", "a", "b", "c"},
		},
		{
			name:     "single to end",
			from:     []int{0},
			to:       3,
			expected: []string{"b", "c", "d", "a"},
		},
		{
			name:     "non-contiguous block keeps relative order",
			from:     []int{0, 2},
			to:       1,
			expected: []string{"b", "a", "c", "d"},
		},
		{
			name:     "unsorted indices are normalized",
			from:     []int{2, 0},
			to:       1,
			expected: []string{"b", "a", "c", "d"},
		},
		{
			name:     "target clamped to tail",
			from:     []int{0},
			to:       99,
			expected: []string{"b", "c", "d", "a"},
		},
		{
			name:    "out of range",
			from:    []int{4},
			to:      0,
			wantErr: ErrIndexOutOfRange,
		},
		{
			name:    "duplicate index",
			from:    []int{1, 1},
			to:      0,
			wantErr: ErrDuplicateIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := moveEntries(append([]playlist.Entry(nil), base...), tt.from, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.Track.ID
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}
