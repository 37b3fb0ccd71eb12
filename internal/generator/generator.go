// Package generator builds brackets for a tournament: seeding, structure,
// slot wiring and bye resolution. Nothing in here touches the database.
package generator

import (
	"context"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
)

type GenerateParams struct {
	Tournament   *bracket.Tournament
	Participants []bracket.Participant
	Now          time.Time
}

// Bracket is a fully wired set of matches ready to be persisted. Matches are
// ordered so that every match comes after the match it feeds into.
type Bracket struct {
	Matches []*bracket.Match
	Seeds   []bracket.SeedAssignment
	Result  bracket.BracketResult
}

// AdvanceFunc writes the winner of a completed match into next and reports
// whether anything changed.
type AdvanceFunc func(completed, next *bracket.Match) (bool, error)

// Generator is one tournament format. Once a bracket exists, AdvanceWinner is
// the only way a winner moves forward in it.
type Generator interface {
	Name() string
	Format() bracket.TournamentFormat
	Supports(t *bracket.Tournament, participantCount int) bool
	MinimumParticipants() int
	Generate(ctx context.Context, params GenerateParams) (*Bracket, error)
	AdvanceWinner(completed, next *bracket.Match) (bool, error)
}
