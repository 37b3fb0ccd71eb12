package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft        TournamentStatus = "draft"
	TournamentRegistration TournamentStatus = "registration"
	TournamentActive       TournamentStatus = "active"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCancelled    TournamentStatus = "cancelled"
)

func (s TournamentStatus) IsTerminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

type TournamentFormat string

const (
	SingleElimination TournamentFormat = "single_elimination"
)

type Tournament struct {
	ID      uuid.UUID        `db:"id" json:"id"`
	OwnerID uuid.UUID        `db:"owner_id" json:"owner_id"`
	Name    string           `db:"name" json:"name"`
	Format  TournamentFormat `db:"format" json:"format"`
	Status  TournamentStatus `db:"status" json:"status"`

	// Frames a player needs to win a match, the final can override it
	RaceTo            int  `db:"race_to" json:"race_to"`
	FinalsRaceTo      *int `db:"finals_race_to" json:"finals_race_to,omitempty"`
	ConfirmationHours int  `db:"confirmation_hours" json:"confirmation_hours"`
	MatchExpiryHours  int  `db:"match_expiry_hours" json:"match_expiry_hours"`
	WinnersCount      int  `db:"winners_count" json:"winners_count"`

	WinnerParticipantID *uuid.UUID `db:"winner_participant_id" json:"winner_participant_id,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// RaceToFor returns the race-to value for a match of the given type.
func (t *Tournament) RaceToFor(matchType MatchType) int {
	if matchType == MatchFinal && t.FinalsRaceTo != nil && *t.FinalsRaceTo > 0 {
		return *t.FinalsRaceTo
	}
	return t.RaceTo
}

func (t *Tournament) ConfirmationWindow() time.Duration {
	return time.Duration(t.ConfirmationHours) * time.Hour
}

func (t *Tournament) ExpiryWindow() time.Duration {
	return time.Duration(t.MatchExpiryHours) * time.Hour
}

// HasThirdPlaceMatch reports whether a bracket for n participants gets a
// third-place match. Semi-finals are only guaranteed to be played (no bye
// losers) from four participants up.
func (t *Tournament) HasThirdPlaceMatch(n int) bool {
	return t.WinnersCount >= 3 && n >= 4
}
