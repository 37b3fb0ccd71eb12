package generator

import (
	"fmt"
	"math"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
)

const ThirdPlaceRoundName = "Third Place"

// Structure is the skeleton of a single-elimination bracket.
type Structure struct {
	BracketSize int
	TotalRounds int
	ByeCount    int
	Rounds      []bracket.RoundInfo
}

// BracketSize gets the nearest power of 2 while rounding up, so with input 5
// it returns 8. The smallest bracket has two slots.
func BracketSize(count int) int {
	if count <= 2 {
		return 2
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

func TotalRounds(bracketSize int) int {
	return int(math.Log2(float64(bracketSize)))
}

// SeedPairs returns the round 1 pairs as 0-based seed indexes, in slot order.
// Each doubling pairs seed k with its mirror in the bigger bracket, which
// keeps the top seeds apart for as long as possible.
func SeedPairs(bracketSize int) [][2]int {
	if bracketSize < 2 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

// RoundName names a round by how far it is from the final.
func RoundName(round, totalRounds int) (string, bracket.MatchType) {
	switch d := totalRounds - round; d {
	case 0:
		return "Final", bracket.MatchFinal
	case 1:
		return "Semi-Final", bracket.MatchSemiFinal
	case 2:
		return "Quarter-Final", bracket.MatchQuarterFinal
	default:
		return fmt.Sprintf("Round of %d", 1<<(d+1)), bracket.MatchRegular
	}
}

func BuildStructure(participantCount int) (Structure, error) {
	if participantCount < 2 {
		return Structure{}, bracket.ErrInsufficientParticipants
	}

	size := BracketSize(participantCount)
	total := TotalRounds(size)

	rounds := make([]bracket.RoundInfo, 0, total)
	for r := 1; r <= total; r++ {
		name, matchType := RoundName(r, total)
		rounds = append(rounds, bracket.RoundInfo{
			RoundNumber: r,
			RoundName:   name,
			MatchCount:  size >> r,
			MatchType:   matchType,
		})
	}

	return Structure{
		BracketSize: size,
		TotalRounds: total,
		ByeCount:    size - participantCount,
		Rounds:      rounds,
	}, nil
}
