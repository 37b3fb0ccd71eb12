package generator

import (
	"testing"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketSize(t *testing.T) {
	tests := []struct {
		count    int
		expected int
	}{
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{8, 8},
		{9, 16},
		{16, 16},
		{17, 32},
		{100, 128},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BracketSize(tt.count), "count %d", tt.count)
	}
}

func TestBracketSizeIsSmallestPowerOfTwo(t *testing.T) {
	for n := 2; n <= 600; n++ {
		size := BracketSize(n)
		assert.GreaterOrEqual(t, size, n)
		assert.Less(t, size/2, n, "n=%d size=%d", n, size)
		assert.Zero(t, size&(size-1), "size %d is not a power of two", size)
		assert.Equal(t, size, 1<<TotalRounds(size))
	}
}

func TestSeedPairs(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 1}}, SeedPairs(2))
	assert.Equal(t, [][2]int{{0, 3}, {1, 2}}, SeedPairs(4))
	assert.Equal(t, [][2]int{{0, 7}, {3, 4}, {1, 6}, {2, 5}}, SeedPairs(8))
	assert.Empty(t, SeedPairs(0))
}

func TestSeedPairsDeterministic(t *testing.T) {
	for _, size := range []int{2, 4, 8, 16, 32, 64} {
		assert.Equal(t, SeedPairs(size), SeedPairs(size))

		seen := make(map[int]bool)
		for _, pair := range SeedPairs(size) {
			// each pair sums to size-1 in 0-based seeds
			assert.Equal(t, size-1, pair[0]+pair[1])
			seen[pair[0]] = true
			seen[pair[1]] = true
		}
		assert.Len(t, seen, size)
	}
}

// Walks each seed up the tree and checks seeds 1 and 2 only share a match
// in the final.
func TestTopSeedsMeetInFinal(t *testing.T) {
	for _, size := range []int{4, 8, 16, 32, 64, 128} {
		var slot1, slot2 int
		for i, pair := range SeedPairs(size) {
			for _, s := range pair {
				switch s {
				case 0:
					slot1 = i
				case 1:
					slot2 = i
				}
			}
		}

		total := TotalRounds(size)
		for r := 1; r < total; r++ {
			require.NotEqual(t, slot1, slot2, "size %d: seeds 1 and 2 meet in round %d", size, r)
			_, slot1, _ = ParentSlot(r, slot1)
			_, slot2, _ = ParentSlot(r, slot2)
		}
		assert.Equal(t, slot1, slot2)
	}
}

func TestRoundName(t *testing.T) {
	tests := []struct {
		round, total int
		name         string
		matchType    bracket.MatchType
	}{
		{3, 3, "Final", bracket.MatchFinal},
		{2, 3, "Semi-Final", bracket.MatchSemiFinal},
		{1, 3, "Quarter-Final", bracket.MatchQuarterFinal},
		{1, 4, "Round of 16", bracket.MatchRegular},
		{1, 6, "Round of 64", bracket.MatchRegular},
	}

	for _, tt := range tests {
		name, matchType := RoundName(tt.round, tt.total)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.matchType, matchType)
	}
}

func TestBuildStructure(t *testing.T) {
	s, err := BuildStructure(5)
	require.NoError(t, err)
	assert.Equal(t, 8, s.BracketSize)
	assert.Equal(t, 3, s.TotalRounds)
	assert.Equal(t, 3, s.ByeCount)
	require.Len(t, s.Rounds, 3)
	assert.Equal(t, 4, s.Rounds[0].MatchCount)
	assert.Equal(t, "Quarter-Final", s.Rounds[0].RoundName)
	assert.Equal(t, 1, s.Rounds[2].MatchCount)

	_, err = BuildStructure(1)
	assert.ErrorIs(t, err, bracket.ErrInsufficientParticipants)
}

func TestParentSlot(t *testing.T) {
	tests := []struct {
		round, slot         int
		nextRound, nextSlot int
		side                bracket.Slot
	}{
		{1, 0, 2, 0, bracket.SlotPlayer1},
		{1, 1, 2, 0, bracket.SlotPlayer2},
		{1, 6, 2, 3, bracket.SlotPlayer1},
		{2, 3, 3, 1, bracket.SlotPlayer2},
	}

	for _, tt := range tests {
		nextRound, nextSlot, side := ParentSlot(tt.round, tt.slot)
		assert.Equal(t, tt.nextRound, nextRound)
		assert.Equal(t, tt.nextSlot, nextSlot)
		assert.Equal(t, tt.side, side)
	}
}
