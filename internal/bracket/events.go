package bracket

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMatchResultSubmitted EventType = "match.result_submitted"
	EventMatchResultConfirmed EventType = "match.result_confirmed"
	EventMatchDisputed        EventType = "match.disputed"
	EventMatchResolved        EventType = "match.resolved"
	EventMatchExpired         EventType = "match.expired"
	EventMatchCancelled       EventType = "match.cancelled"
	EventMatchWalkover        EventType = "match.walkover"
	EventMatchReminder        EventType = "match.reminder"
	EventTournamentStarted    EventType = "tournament.started"
	EventTournamentCompleted  EventType = "tournament.completed"
)

// Event is emitted by every state change. Player user ids are filled in by
// the service layer, which knows the participant to player mapping.
type Event struct {
	Type         EventType  `json:"type"`
	TournamentID uuid.UUID  `json:"tournament_id"`
	MatchID      *uuid.UUID `json:"match_id,omitempty"`

	Player1ID     *uuid.UUID `json:"player1_id,omitempty"`
	Player2ID     *uuid.UUID `json:"player2_id,omitempty"`
	Player1UserID *uuid.UUID `json:"player1_user_id,omitempty"`
	Player2UserID *uuid.UUID `json:"player2_user_id,omitempty"`
	Player1Score  *int       `json:"player1_score,omitempty"`
	Player2Score  *int       `json:"player2_score,omitempty"`
	WinnerID      *uuid.UUID `json:"winner_id,omitempty"`

	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewMatchEvent(eventType EventType, m *Match, actor Actor, at time.Time) Event {
	id := m.ID
	return Event{
		Type:         eventType,
		TournamentID: m.TournamentID,
		MatchID:      &id,
		Player1ID:    m.Player1ID,
		Player2ID:    m.Player2ID,
		Player1Score: m.Player1Score,
		Player2Score: m.Player2Score,
		WinnerID:     m.WinnerID,
		ActorID:      actor.UserID,
		OccurredAt:   at,
	}
}

func NewTournamentEvent(eventType EventType, t *Tournament, actor Actor, at time.Time) Event {
	return Event{
		Type:         eventType,
		TournamentID: t.ID,
		WinnerID:     t.WinnerParticipantID,
		ActorID:      actor.UserID,
		OccurredAt:   at,
	}
}
