package editor

import (
	"strings"

	"github.com/trackdeck/trackdeck/internal/domain/playlist"
)

// removableURIPrefix limits remove ops to regular track URIs. The
// delete primitive addresses tracks by ID, so local files
// (spotify:local:...) and episodes cannot be targeted any more than
// tombstoned entries can.
const removableURIPrefix = "spotify:track:"

// computePlan derives the ordered remote operations that transform the
// remote playlist (assumed to match original) into working.
//
// Deletions are emitted first: the reorder primitive operates on remote
// positional indices, which shift once deletions land. Every identity
// key present in original but absent from working yields one remove op,
// in original order, deduplicated by URI because the remote delete
// removes every occurrence of a URI. Entries whose URI cannot be
// targeted remotely (tombstoned tracks, local files) are skipped.
//
// Reorders are then emitted by walking working by target index over a
// simulated copy of original with the deletions applied. Each entry
// whose simulated position differs from its target yields one
// single-element range move, applied to the simulation before
// continuing. Keeping the simulation synchronized with each emitted op
// guarantees convergence; the op count is not guaranteed minimal for
// arbitrary permutations, a tradeoff that favors correctness over
// optimality.
func computePlan(original, working []playlist.Entry) []RemoteOp {
	var ops []RemoteOp

	workingKeys := make(map[string]bool, len(working))
	for _, e := range working {
		workingKeys[e.Key()] = true
	}

	deletedKeys := make(map[string]bool)
	removedURIs := make(map[string]bool)
	for _, e := range original {
		key := e.Key()
		if workingKeys[key] {
			continue
		}
		deletedKeys[key] = true

		uri := e.URI()
		if !strings.HasPrefix(uri, removableURIPrefix) || removedURIs[uri] {
			continue
		}
		removedURIs[uri] = true
		ops = append(ops, RemoteOp{Kind: OpRemoveTrack, URI: uri})
	}

	sim := make([]playlist.Entry, 0, len(working))
	for _, e := range original {
		if !deletedKeys[e.Key()] {
			sim = append(sim, e)
		}
	}

	pos := make(map[string]int, len(sim))
	for i, e := range sim {
		pos[e.Key()] = i
	}

	for target, e := range working {
		cur, ok := pos[e.Key()]
		if !ok || cur == target {
			continue
		}

		insertBefore := target
		if target > cur {
			insertBefore = target + 1
		}
		ops = append(ops, RemoteOp{
			Kind:         OpReorderRange,
			RangeStart:   cur,
			InsertBefore: insertBefore,
			RangeLength:  1,
		})

		moved := sim[cur]
		sim = append(sim[:cur], sim[cur+1:]...)
		sim = append(sim[:target], append([]playlist.Entry{moved}, sim[target:]...)...)

		lo := target
		if cur < lo {
			lo = cur
		}
		for i := lo; i < len(sim); i++ {
			pos[sim[i].Key()] = i
		}
	}

	return ops
}
