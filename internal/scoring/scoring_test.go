package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azubrytski-dev/challange-bot/internal/scoring"
)

func TestComputeReactionDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		oldSet      []string
		newSet      []string
		wantAdded   []string
		wantRemoved []string
	}{
		{
			name:      "first reaction",
			newSet:    []string{"🔥"},
			wantAdded: []string{"🔥"},
		},
		{
			name:        "reaction retracted",
			oldSet:      []string{"🔥"},
			wantRemoved: []string{"🔥"},
		},
		{
			name:        "reaction swapped",
			oldSet:      []string{"🔥"},
			newSet:      []string{"❤️"},
			wantAdded:   []string{"❤️"},
			wantRemoved: []string{"🔥"},
		},
		{
			name:   "unchanged set has no delta",
			oldSet: []string{"🔥", "❤️"},
			newSet: []string{"❤️", "🔥"},
		},
		{
			name:      "addition on top of existing",
			oldSet:    []string{"🔥"},
			newSet:    []string{"🔥", "❤️"},
			wantAdded: []string{"❤️"},
		},
		{
			name:      "duplicates in input count once",
			newSet:    []string{"🔥", "🔥"},
			wantAdded: []string{"🔥"},
		},
		{
			name:      "custom emoji keys",
			oldSet:    []string{"custom:123"},
			newSet:    []string{"custom:123", "custom:456"},
			wantAdded: []string{"custom:456"},
		},
		{
			name: "both empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			delta := scoring.ComputeReactionDelta(tt.oldSet, tt.newSet)

			assert.ElementsMatch(t, tt.wantAdded, delta.Added)
			assert.ElementsMatch(t, tt.wantRemoved, delta.Removed)
		})
	}
}
