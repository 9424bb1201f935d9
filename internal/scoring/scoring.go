// Package scoring converts reaction set changes into point deltas.
package scoring

// ReactionDelta is the difference between two reaction sets on a message.
type ReactionDelta struct {
	Added   []string
	Removed []string
}

// ComputeReactionDelta compares the previous and current reaction sets of a
// single reactor and returns which emoji keys were added and removed.
// Inputs may contain duplicates; the result is set-valued.
func ComputeReactionDelta(oldSet, newSet []string) ReactionDelta {
	old := toSet(oldSet)
	cur := toSet(newSet)

	var delta ReactionDelta

	for emoji := range cur {
		if _, ok := old[emoji]; !ok {
			delta.Added = append(delta.Added, emoji)
		}
	}

	for emoji := range old {
		if _, ok := cur[emoji]; !ok {
			delta.Removed = append(delta.Removed, emoji)
		}
	}

	return delta
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	return set
}
