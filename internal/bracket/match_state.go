package bracket

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AdamBeresnev/cue-bracket/internal/utils"
	"github.com/google/uuid"
)

const MinDisputeReasonLength = 10

// The transitions below validate everything before touching the match, so a
// returned error always leaves it unchanged. Participant arguments are
// participant ids, the Actor is the authenticated user behind the call.

// ValidateScores checks a final score against the race-to value: both scores
// are non-negative, exactly one side reached raceTo and the other is lower.
func ValidateScores(player1Score, player2Score, raceTo int) error {
	if player1Score < 0 || player2Score < 0 {
		return ErrInvalidScore
	}
	if raceTo <= 0 {
		if player1Score == player2Score {
			return ErrInvalidScore
		}
		return nil
	}
	if player1Score > raceTo || player2Score > raceTo {
		return ErrInvalidScore
	}
	if (player1Score == raceTo) == (player2Score == raceTo) {
		return ErrInvalidScore
	}
	return nil
}

// Submit records a result reported by one of the two players, scores given
// from the submitter's point of view.
func (m *Match) Submit(submitter uuid.UUID, actor Actor, myScore, opponentScore int, now time.Time, confirmWindow time.Duration) (Event, error) {
	if m.Status != MatchScheduled {
		return Event{}, ErrInvalidTransition
	}
	if !m.HasBothPlayers() {
		return Event{}, ErrMatchNotReady
	}
	slot, ok := m.SlotOf(submitter)
	if !ok {
		return Event{}, ErrNotMatchPlayer
	}

	p1, p2 := myScore, opponentScore
	if slot == SlotPlayer2 {
		p1, p2 = opponentScore, myScore
	}
	if err := ValidateScores(p1, p2, m.RaceTo); err != nil {
		return Event{}, err
	}

	deadline := now.Add(confirmWindow)
	m.Player1Score = &p1
	m.Player2Score = &p2
	m.SubmittedBy = &submitter
	m.SubmittedAt = &now
	m.ConfirmationDeadline = &deadline
	m.Status = MatchPendingConfirmation
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchResultSubmitted, m, actor, now), nil
}

// Confirm accepts the submitted result on behalf of the opponent.
func (m *Match) Confirm(confirmer uuid.UUID, actor Actor, now time.Time) (Event, error) {
	if err := m.checkResponder(confirmer); err != nil {
		return Event{}, err
	}

	m.ConfirmedBy = &confirmer
	m.ConfirmedAt = &now
	m.PlayedAt = m.SubmittedAt
	m.decideWinner()
	m.Status = MatchCompleted
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchResultConfirmed, m, actor, now), nil
}

// Dispute rejects the submitted result. evidenceURL is optional.
func (m *Match) Dispute(disputer uuid.UUID, actor Actor, reason, evidenceURL string, now time.Time) (Event, error) {
	if err := m.checkResponder(disputer); err != nil {
		return Event{}, err
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < MinDisputeReasonLength {
		return Event{}, ErrDisputeReasonTooShort
	}

	m.DisputedBy = &disputer
	m.DisputedAt = &now
	m.DisputeReason = &reason
	m.DisputeEvidenceURL = utils.StringOrNil(evidenceURL)
	m.Status = MatchDisputed
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchDisputed, m, actor, now), nil
}

// Resolve settles a disputed match with the arbiter's scores, which replace
// whatever was submitted.
func (m *Match) Resolve(arbiter Actor, player1Score, player2Score int, notes string, now time.Time) (Event, error) {
	if !arbiter.CanArbitrate() {
		return Event{}, ErrNotArbiter
	}
	if m.Status != MatchDisputed {
		return Event{}, ErrInvalidTransition
	}
	if err := ValidateScores(player1Score, player2Score, m.RaceTo); err != nil {
		return Event{}, err
	}

	resolvedBy := arbiter.UserID
	m.Player1Score = &player1Score
	m.Player2Score = &player2Score
	m.ResolvedBy = &resolvedBy
	m.ResolvedAt = &now
	m.ResolutionNotes = utils.StringOrNil(notes)
	if m.SubmittedAt != nil {
		m.PlayedAt = m.SubmittedAt
	} else {
		m.PlayedAt = &now
	}
	m.decideWinner()
	m.Status = MatchCompleted
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchResolved, m, arbiter, now), nil
}

// AutoConfirm finalizes the submitted result once the confirmation deadline
// has passed without an answer from the opponent.
func (m *Match) AutoConfirm(now time.Time) (Event, error) {
	if m.Status != MatchPendingConfirmation {
		return Event{}, ErrInvalidTransition
	}
	if m.ConfirmationDeadline == nil || now.Before(*m.ConfirmationDeadline) {
		return Event{}, ErrDeadlineNotReached
	}

	m.ConfirmedAt = &now
	m.PlayedAt = m.SubmittedAt
	m.decideWinner()
	m.Status = MatchCompleted
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchResultConfirmed, m, System, now), nil
}

// Expire closes a scheduled match whose deadline passed with no submission.
// No winner is produced.
func (m *Match) Expire(now time.Time) (Event, error) {
	if m.Status != MatchScheduled {
		return Event{}, ErrInvalidTransition
	}
	if m.ExpiresAt == nil || now.Before(*m.ExpiresAt) {
		return Event{}, ErrDeadlineNotReached
	}

	m.Status = MatchExpired
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchExpired, m, System, now), nil
}

// Cancel is the administrative exit from any non-terminal status.
func (m *Match) Cancel(arbiter Actor, notes string, now time.Time) (Event, error) {
	if !arbiter.CanArbitrate() {
		return Event{}, ErrNotArbiter
	}
	if m.Status.IsTerminal() {
		return Event{}, ErrInvalidTransition
	}

	resolvedBy := arbiter.UserID
	m.ResolvedBy = &resolvedBy
	m.ResolvedAt = &now
	m.ResolutionNotes = utils.StringOrNil(notes)
	m.Status = MatchCancelled
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchCancelled, m, arbiter, now), nil
}

// Walkover awards a scheduled match to one player without scores, used when
// the opponent forfeits.
func (m *Match) Walkover(arbiter Actor, winner uuid.UUID, notes string, now time.Time) (Event, error) {
	if !arbiter.CanArbitrate() {
		return Event{}, ErrNotArbiter
	}
	if m.Status != MatchScheduled {
		return Event{}, ErrInvalidTransition
	}
	if !m.HasBothPlayers() {
		return Event{}, ErrMatchNotReady
	}
	if _, ok := m.SlotOf(winner); !ok {
		return Event{}, ErrInvalidWinner
	}

	resolvedBy := arbiter.UserID
	m.WinnerID = &winner
	m.LoserID = m.Opponent(winner)
	m.ResolvedBy = &resolvedBy
	m.ResolvedAt = &now
	m.ResolutionNotes = utils.StringOrNil(notes)
	m.Status = MatchCompleted
	m.UpdatedAt = now

	return NewMatchEvent(EventMatchWalkover, m, arbiter, now), nil
}

// MarkBye completes the match without play. winner is nil when neither slot
// can ever be filled.
func (m *Match) MarkBye(winner *uuid.UUID, now time.Time) {
	m.MatchType = MatchBye
	m.Status = MatchCompleted
	m.WinnerID = winner
	m.LoserID = nil
	m.Player1Score = nil
	m.Player2Score = nil
	m.ExpiresAt = nil
	m.UpdatedAt = now
}

// checkResponder validates a confirm or dispute call.
func (m *Match) checkResponder(participantID uuid.UUID) error {
	if m.Status != MatchPendingConfirmation {
		return ErrInvalidTransition
	}
	if _, ok := m.SlotOf(participantID); !ok {
		return ErrNotMatchPlayer
	}
	if m.SubmittedBy != nil && *m.SubmittedBy == participantID {
		return ErrSubmitterCannotConfirm
	}
	return nil
}

func (m *Match) decideWinner() {
	p1, p2 := 0, 0
	if m.Player1Score != nil {
		p1 = *m.Player1Score
	}
	if m.Player2Score != nil {
		p2 = *m.Player2Score
	}
	if p1 > p2 {
		m.WinnerID, m.LoserID = m.Player1ID, m.Player2ID
	} else {
		m.WinnerID, m.LoserID = m.Player2ID, m.Player1ID
	}
}
