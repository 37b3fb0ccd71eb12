package bracket

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantStatus string

const (
	ParticipantRegistered   ParticipantStatus = "registered"
	ParticipantActive       ParticipantStatus = "active"
	ParticipantEliminated   ParticipantStatus = "eliminated"
	ParticipantDisqualified ParticipantStatus = "disqualified"
	ParticipantWinner       ParticipantStatus = "winner"
)

type Participant struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	TournamentID uuid.UUID         `db:"tournament_id" json:"tournament_id"`
	PlayerID     uuid.UUID         `db:"player_id" json:"player_id"`
	Name         string            `db:"name" json:"name"`
	Rating       int               `db:"rating" json:"rating"`
	Status       ParticipantStatus `db:"status" json:"status"`

	// ManualSeed is only read by the manual seeding strategy
	ManualSeed *int `db:"manual_seed" json:"manual_seed,omitempty"`
	Seed       *int `db:"seed" json:"seed,omitempty"`

	MatchesPlayed int `db:"matches_played" json:"matches_played"`
	MatchesWon    int `db:"matches_won" json:"matches_won"`
	FramesWon     int `db:"frames_won" json:"frames_won"`
	FramesLost    int `db:"frames_lost" json:"frames_lost"`

	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// SeedAssignment is the immutable outcome of seeding one participant.
type SeedAssignment struct {
	ParticipantID uuid.UUID
	Seed          int
	Rating        int
}

// RecordResult adds one played match to the participant's statistics.
func (p *Participant) RecordResult(won bool, framesFor, framesAgainst int) {
	p.MatchesPlayed++
	if won {
		p.MatchesWon++
	}
	p.FramesWon += framesFor
	p.FramesLost += framesAgainst
}
