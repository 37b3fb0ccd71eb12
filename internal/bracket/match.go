package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled           MatchStatus = "scheduled"
	MatchPendingConfirmation MatchStatus = "pending_confirmation"
	MatchCompleted           MatchStatus = "completed"
	MatchDisputed            MatchStatus = "disputed"
	MatchExpired             MatchStatus = "expired"
	MatchCancelled           MatchStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave this status.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchCompleted || s == MatchExpired || s == MatchCancelled
}

type MatchType string

const (
	MatchRegular      MatchType = "regular"
	MatchQuarterFinal MatchType = "quarter_final"
	MatchSemiFinal    MatchType = "semi_final"
	MatchFinal        MatchType = "final"
	MatchThirdPlace   MatchType = "third_place"
	MatchBye          MatchType = "bye"
	MatchGroup        MatchType = "group"
)

// Slot names one of the two player positions of a match.
type Slot string

const (
	SlotPlayer1 Slot = "player1"
	SlotPlayer2 Slot = "player2"
)

type Match struct {
	ID              uuid.UUID `db:"id" json:"id"`
	TournamentID    uuid.UUID `db:"tournament_id" json:"tournament_id"`
	RoundNumber     int       `db:"round_number" json:"round_number"`
	RoundName       string    `db:"round_name" json:"round_name"`
	BracketPosition int       `db:"bracket_position" json:"bracket_position"`
	MatchType       MatchType `db:"match_type" json:"match_type"`

	// Participant ids, nil while waiting on a feeder match or when the slot is a bye
	Player1ID    *uuid.UUID `db:"player1_id" json:"player1_id,omitempty"`
	Player2ID    *uuid.UUID `db:"player2_id" json:"player2_id,omitempty"`
	Player1Score *int       `db:"player1_score" json:"player1_score,omitempty"`
	Player2Score *int       `db:"player2_score" json:"player2_score,omitempty"`
	RaceTo       int        `db:"race_to" json:"race_to"`

	Status   MatchStatus `db:"status" json:"status"`
	WinnerID *uuid.UUID  `db:"winner_id" json:"winner_id,omitempty"`
	LoserID  *uuid.UUID  `db:"loser_id" json:"loser_id,omitempty"`

	NextMatchID      *uuid.UUID `db:"next_match_id" json:"next_match_id,omitempty"`
	NextMatchSlot    *Slot      `db:"next_match_slot" json:"next_match_slot,omitempty"`
	LoserNextMatchID *uuid.UUID `db:"loser_next_match_id" json:"loser_next_match_id,omitempty"`
	LoserNextSlot    *Slot      `db:"loser_next_slot" json:"loser_next_slot,omitempty"`

	SubmittedBy *uuid.UUID `db:"submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ConfirmedBy *uuid.UUID `db:"confirmed_by" json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`

	DisputedBy         *uuid.UUID `db:"disputed_by" json:"disputed_by,omitempty"`
	DisputedAt         *time.Time `db:"disputed_at" json:"disputed_at,omitempty"`
	DisputeReason      *string    `db:"dispute_reason" json:"dispute_reason,omitempty"`
	DisputeEvidenceURL *string    `db:"dispute_evidence_url" json:"dispute_evidence_url,omitempty"`

	ResolvedBy      *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolutionNotes *string    `db:"resolution_notes" json:"resolution_notes,omitempty"`

	PlayedAt             *time.Time `db:"played_at" json:"played_at,omitempty"`
	ExpiresAt            *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	ConfirmationDeadline *time.Time `db:"confirmation_deadline" json:"confirmation_deadline,omitempty"`
	RemindedAt           *time.Time `db:"reminded_at" json:"reminded_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (m *Match) IsPlayer1Winner() bool {
	return m.WinnerID != nil && m.Player1ID != nil && *m.WinnerID == *m.Player1ID
}

func (m *Match) IsPlayer2Winner() bool {
	return m.WinnerID != nil && m.Player2ID != nil && *m.WinnerID == *m.Player2ID
}

// HasBothPlayers reports whether both slots are filled.
func (m *Match) HasBothPlayers() bool {
	return m.Player1ID != nil && m.Player2ID != nil
}

func (m *Match) IsFinal() bool {
	return m.MatchType == MatchFinal
}

// EndsBracket reports whether no match follows this one. That holds for the
// final and the third-place match.
func (m *Match) EndsBracket() bool {
	return m.NextMatchID == nil && m.LoserNextMatchID == nil
}

// DecidesChampion reports whether this is the match whose winner wins the
// tournament. It stays true after the final was closed as a bye.
func (m *Match) DecidesChampion() bool {
	return m.EndsBracket() && m.BracketPosition == 0
}

// PlayerIn returns the participant held by the given slot.
func (m *Match) PlayerIn(slot Slot) *uuid.UUID {
	if slot == SlotPlayer2 {
		return m.Player2ID
	}
	return m.Player1ID
}

// SlotOf returns the slot held by the participant, false when they are not in
// this match.
func (m *Match) SlotOf(participantID uuid.UUID) (Slot, bool) {
	switch {
	case m.Player1ID != nil && *m.Player1ID == participantID:
		return SlotPlayer1, true
	case m.Player2ID != nil && *m.Player2ID == participantID:
		return SlotPlayer2, true
	}
	return "", false
}

// Opponent returns the other participant of the match.
func (m *Match) Opponent(participantID uuid.UUID) *uuid.UUID {
	slot, ok := m.SlotOf(participantID)
	if !ok {
		return nil
	}
	if slot == SlotPlayer1 {
		return m.Player2ID
	}
	return m.Player1ID
}

// ScoreFor returns the frames won and lost by the participant in this match.
func (m *Match) ScoreFor(participantID uuid.UUID) (int, int) {
	p1, p2 := 0, 0
	if m.Player1Score != nil {
		p1 = *m.Player1Score
	}
	if m.Player2Score != nil {
		p2 = *m.Player2Score
	}
	if slot, _ := m.SlotOf(participantID); slot == SlotPlayer2 {
		return p2, p1
	}
	return p1, p2
}
