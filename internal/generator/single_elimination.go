package generator

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/utils"
	"github.com/google/uuid"
)

const SingleEliminationName = "single_elimination"

type SingleElimination struct {
	seeder Seeder
}

// NewSingleElimination returns the single-elimination generator. A nil
// seeder means rating order.
func NewSingleElimination(seeder Seeder) *SingleElimination {
	if seeder == nil {
		seeder = RatingSeeder{}
	}
	return &SingleElimination{seeder: seeder}
}

func (g *SingleElimination) Name() string {
	return SingleEliminationName
}

func (g *SingleElimination) Format() bracket.TournamentFormat {
	return bracket.SingleElimination
}

func (g *SingleElimination) MinimumParticipants() int {
	return 2
}

func (g *SingleElimination) Supports(t *bracket.Tournament, participantCount int) bool {
	return t.Format == bracket.SingleElimination &&
		t.Status == bracket.TournamentRegistration &&
		participantCount >= g.MinimumParticipants()
}

func (g *SingleElimination) AdvanceWinner(completed, next *bracket.Match) (bool, error) {
	return bracket.PlaceWinner(completed, next)
}

func (g *SingleElimination) Generate(ctx context.Context, params GenerateParams) (*Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := params.Tournament
	n := len(params.Participants)
	if n < g.MinimumParticipants() {
		return nil, fmt.Errorf("single elimination needs %d participants, got %d: %w", g.MinimumParticipants(), n, bracket.ErrInsufficientParticipants)
	}

	seeds, err := g.seeder.Seed(params.Participants)
	if err != nil {
		return nil, err
	}

	structure, err := BuildStructure(n)
	if err != nil {
		return nil, err
	}

	now := params.Now
	var matches []*bracket.Match
	var thirdPlace *bracket.Match
	var round1 []*bracket.Match
	nextRoundMatchIDs := make(map[int]uuid.UUID)

	// Significantly easier to start from the last round and work backwards
	for r := structure.TotalRounds; r >= 1; r-- {
		roundName, matchType := RoundName(r, structure.TotalRounds)
		matchesInCurrentRound := structure.BracketSize >> r
		currentRoundMatchIDs := make(map[int]uuid.UUID)

		for i := 0; i < matchesInCurrentRound; i++ {
			m := &bracket.Match{
				ID:              uuid.New(),
				TournamentID:    t.ID,
				RoundNumber:     r,
				RoundName:       roundName,
				BracketPosition: i,
				MatchType:       matchType,
				RaceTo:          t.RaceToFor(matchType),
				Status:          bracket.MatchScheduled,
				CreatedAt:       now,
				UpdatedAt:       now,
			}

			if r < structure.TotalRounds {
				_, parentPos, side := ParentSlot(r, i)
				parentID := nextRoundMatchIDs[parentPos]
				m.NextMatchID = &parentID
				m.NextMatchSlot = utils.Ptr(side)
			}

			if thirdPlace != nil && r == structure.TotalRounds-1 {
				m.LoserNextMatchID = &thirdPlace.ID
				m.LoserNextSlot = utils.Ptr(bracket.SlotPlayer1)
				if i%2 != 0 {
					m.LoserNextSlot = utils.Ptr(bracket.SlotPlayer2)
				}
			}

			matches = append(matches, m)
			currentRoundMatchIDs[i] = m.ID
			if r == 1 {
				round1 = append(round1, m)
			}
		}
		nextRoundMatchIDs = currentRoundMatchIDs

		if r == structure.TotalRounds && t.HasThirdPlaceMatch(n) {
			thirdPlace = &bracket.Match{
				ID:              uuid.New(),
				TournamentID:    t.ID,
				RoundNumber:     r,
				RoundName:       ThirdPlaceRoundName,
				BracketPosition: 1,
				MatchType:       bracket.MatchThirdPlace,
				RaceTo:          t.RaceToFor(bracket.MatchThirdPlace),
				Status:          bracket.MatchScheduled,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			matches = append(matches, thirdPlace)
		}
	}

	for i, pair := range SeedPairs(structure.BracketSize) {
		m := round1[i]
		if pair[0] < n {
			m.Player1ID = utils.Ptr(seeds[pair[0]].ParticipantID)
		}
		if pair[1] < n {
			m.Player2ID = utils.Ptr(seeds[pair[1]].ParticipantID)
		}
	}

	byes, err := ProcessByes(matches, now, g.AdvanceWinner)
	if err != nil {
		return nil, err
	}

	if expiry := t.ExpiryWindow(); expiry > 0 {
		for _, m := range matches {
			if m.Status == bracket.MatchScheduled && m.HasBothPlayers() {
				m.ExpiresAt = utils.Ptr(now.Add(expiry))
			}
		}
	}

	rounds := structure.Rounds
	if thirdPlace != nil {
		rounds = append(rounds, bracket.RoundInfo{
			RoundNumber: thirdPlace.RoundNumber,
			RoundName:   ThirdPlaceRoundName,
			MatchCount:  1,
			MatchType:   bracket.MatchThirdPlace,
		})
	}

	return &Bracket{
		Matches: matches,
		Seeds:   seeds,
		Result: bracket.BracketResult{
			Generator:           g.Name(),
			ParticipantCount:    n,
			BracketSize:         structure.BracketSize,
			TotalRounds:         structure.TotalRounds,
			ByeCount:            structure.ByeCount,
			MatchesCreated:      len(matches),
			ByeMatchesProcessed: byes,
			RoundStructure:      rounds,
		},
	}, nil
}
