package bracket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newScheduledMatch() (*Match, uuid.UUID, uuid.UUID) {
	p1, p2 := uuid.New(), uuid.New()
	expires := testNow.Add(72 * time.Hour)
	return &Match{
		ID:           uuid.New(),
		TournamentID: uuid.New(),
		RoundNumber:  1,
		MatchType:    MatchRegular,
		Player1ID:    &p1,
		Player2ID:    &p2,
		RaceTo:       2,
		Status:       MatchScheduled,
		ExpiresAt:    &expires,
	}, p1, p2
}

func playerActor() Actor {
	return Actor{UserID: uuid.New(), Role: RolePlayer}
}

func adminActor() Actor {
	return Actor{UserID: uuid.New(), Role: RoleAdmin}
}

func TestValidateScores(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 int
		raceTo int
		valid  bool
	}{
		{"player1 wins", 2, 1, 2, true},
		{"player2 wins shutout", 0, 2, 2, true},
		{"nobody reached race", 1, 1, 2, false},
		{"both reached race", 2, 2, 2, false},
		{"over the race", 3, 1, 2, false},
		{"negative score", -1, 2, 2, false},
		{"no race configured, decisive", 5, 3, 0, true},
		{"no race configured, draw", 3, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScores(tt.p1, tt.p2, tt.raceTo)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidScore)
			}
		})
	}
}

func TestSubmitAndConfirm(t *testing.T) {
	m, p1, p2 := newScheduledMatch()
	actor := playerActor()

	ev, err := m.Submit(p1, actor, 2, 1, testNow, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, EventMatchResultSubmitted, ev.Type)
	assert.Equal(t, MatchPendingConfirmation, m.Status)
	assert.Equal(t, 2, *m.Player1Score)
	assert.Equal(t, 1, *m.Player2Score)
	assert.Equal(t, p1, *m.SubmittedBy)
	assert.Equal(t, testNow.Add(24*time.Hour), *m.ConfirmationDeadline)

	ev, err = m.Confirm(p2, playerActor(), testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, EventMatchResultConfirmed, ev.Type)
	assert.Equal(t, MatchCompleted, m.Status)
	assert.Equal(t, p1, *m.WinnerID)
	assert.Equal(t, p2, *m.LoserID)
	assert.Equal(t, testNow, *m.PlayedAt)
	assert.True(t, m.IsPlayer1Winner())
}

func TestSubmitFromPlayer2Perspective(t *testing.T) {
	m, _, p2 := newScheduledMatch()

	_, err := m.Submit(p2, playerActor(), 2, 0, testNow, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, *m.Player1Score)
	assert.Equal(t, 2, *m.Player2Score)
}

func TestSubmitRejections(t *testing.T) {
	t.Run("not a player", func(t *testing.T) {
		m, _, _ := newScheduledMatch()
		_, err := m.Submit(uuid.New(), playerActor(), 2, 1, testNow, time.Hour)
		assert.ErrorIs(t, err, ErrNotMatchPlayer)
		assert.Equal(t, MatchScheduled, m.Status)
		assert.Nil(t, m.Player1Score)
	})

	t.Run("invalid score", func(t *testing.T) {
		m, p1, _ := newScheduledMatch()
		_, err := m.Submit(p1, playerActor(), 1, 1, testNow, time.Hour)
		assert.ErrorIs(t, err, ErrInvalidScore)
		assert.Nil(t, m.SubmittedAt)
	})

	t.Run("missing opponent", func(t *testing.T) {
		m, p1, _ := newScheduledMatch()
		m.Player2ID = nil
		_, err := m.Submit(p1, playerActor(), 2, 1, testNow, time.Hour)
		assert.ErrorIs(t, err, ErrMatchNotReady)
	})
}

func TestConfirmRejections(t *testing.T) {
	m, p1, _ := newScheduledMatch()
	_, err := m.Submit(p1, playerActor(), 2, 1, testNow, time.Hour)
	require.NoError(t, err)

	_, err = m.Confirm(p1, playerActor(), testNow)
	assert.ErrorIs(t, err, ErrSubmitterCannotConfirm)

	_, err = m.Confirm(uuid.New(), playerActor(), testNow)
	assert.ErrorIs(t, err, ErrNotMatchPlayer)

	assert.Equal(t, MatchPendingConfirmation, m.Status)
	assert.Nil(t, m.WinnerID)
	assert.Nil(t, m.ConfirmedAt)
}

func TestDisputeAndResolve(t *testing.T) {
	m, p1, p2 := newScheduledMatch()
	_, err := m.Submit(p1, playerActor(), 2, 1, testNow, time.Hour)
	require.NoError(t, err)

	_, err = m.Dispute(p2, playerActor(), "too short", "", testNow)
	assert.ErrorIs(t, err, ErrDisputeReasonTooShort)
	assert.Equal(t, MatchPendingConfirmation, m.Status)

	ev, err := m.Dispute(p2, playerActor(), "I won the deciding frame", "https://youtu.be/abc123", testNow)
	require.NoError(t, err)
	assert.Equal(t, EventMatchDisputed, ev.Type)
	assert.Equal(t, MatchDisputed, m.Status)
	assert.Equal(t, "I won the deciding frame", *m.DisputeReason)
	assert.Equal(t, "https://youtu.be/abc123", *m.DisputeEvidenceURL)

	_, err = m.Resolve(playerActor(), 0, 2, "", testNow)
	assert.ErrorIs(t, err, ErrNotArbiter)

	_, err = m.Resolve(adminActor(), 2, 2, "", testNow)
	assert.ErrorIs(t, err, ErrInvalidScore)
	assert.Equal(t, MatchDisputed, m.Status)

	arbiter := adminActor()
	ev, err = m.Resolve(arbiter, 0, 2, "video shows player 2 won", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, EventMatchResolved, ev.Type)
	assert.Equal(t, arbiter.UserID, ev.ActorID)
	assert.Equal(t, MatchCompleted, m.Status)
	assert.Equal(t, p2, *m.WinnerID)
	assert.Equal(t, 0, *m.Player1Score)
	assert.Equal(t, 2, *m.Player2Score)
	assert.Equal(t, arbiter.UserID, *m.ResolvedBy)
}

func TestAutoConfirm(t *testing.T) {
	m, _, p2 := newScheduledMatch()
	_, err := m.Submit(p2, playerActor(), 2, 0, testNow, 24*time.Hour)
	require.NoError(t, err)

	_, err = m.AutoConfirm(testNow.Add(23 * time.Hour))
	assert.ErrorIs(t, err, ErrDeadlineNotReached)
	assert.Equal(t, MatchPendingConfirmation, m.Status)

	ev, err := m.AutoConfirm(testNow.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, EventMatchResultConfirmed, ev.Type)
	assert.Equal(t, MatchCompleted, m.Status)
	assert.Equal(t, p2, *m.WinnerID)
	assert.Nil(t, m.ConfirmedBy)
	assert.Equal(t, testNow, *m.PlayedAt)
}

func TestExpire(t *testing.T) {
	m, _, _ := newScheduledMatch()

	_, err := m.Expire(testNow)
	assert.ErrorIs(t, err, ErrDeadlineNotReached)

	_, err = m.Expire(testNow.Add(72 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, MatchExpired, m.Status)
	assert.Nil(t, m.WinnerID)
}

func TestCancelAndWalkover(t *testing.T) {
	m, p1, _ := newScheduledMatch()

	_, err := m.Cancel(playerActor(), "", testNow)
	assert.ErrorIs(t, err, ErrNotArbiter)

	_, err = m.Walkover(adminActor(), uuid.New(), "", testNow)
	assert.ErrorIs(t, err, ErrInvalidWinner)

	ev, err := m.Walkover(Actor{UserID: uuid.New(), Role: RoleSupport}, p1, "no show", testNow)
	require.NoError(t, err)
	assert.Equal(t, EventMatchWalkover, ev.Type)
	assert.Equal(t, MatchCompleted, m.Status)
	assert.Equal(t, p1, *m.WinnerID)
	assert.Nil(t, m.Player1Score)

	_, err = m.Cancel(adminActor(), "", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	other, _, _ := newScheduledMatch()
	_, err = other.Cancel(adminActor(), "venue closed", testNow)
	require.NoError(t, err)
	assert.Equal(t, MatchCancelled, other.Status)
	assert.Equal(t, "venue closed", *other.ResolutionNotes)
}

func TestBlankNotesAreNotStored(t *testing.T) {
	m, p1, p2 := newScheduledMatch()
	_, err := m.Submit(p1, playerActor(), 2, 1, testNow, time.Hour)
	require.NoError(t, err)

	_, err = m.Dispute(p2, playerActor(), "  the score is the other way round  ", "   ", testNow)
	require.NoError(t, err)
	assert.Equal(t, "the score is the other way round", *m.DisputeReason)
	assert.Nil(t, m.DisputeEvidenceURL)

	_, err = m.Resolve(adminActor(), 2, 0, " \t ", testNow)
	require.NoError(t, err)
	assert.Nil(t, m.ResolutionNotes)

	other, _, _ := newScheduledMatch()
	_, err = other.Cancel(adminActor(), "  rain  ", testNow)
	require.NoError(t, err)
	assert.Equal(t, "rain", *other.ResolutionNotes)
}

// Player-driven transitions only succeed from their documented source status.
func TestIllegalTransitionsDoNotMutate(t *testing.T) {
	statuses := []MatchStatus{
		MatchScheduled, MatchPendingConfirmation, MatchCompleted,
		MatchDisputed, MatchExpired, MatchCancelled,
	}
	late := testNow.Add(1000 * time.Hour)

	type call struct {
		name    string
		allowed MatchStatus
		run     func(m *Match, p1, p2 uuid.UUID) error
	}
	calls := []call{
		{"submit", MatchScheduled, func(m *Match, p1, _ uuid.UUID) error {
			_, err := m.Submit(p1, playerActor(), 2, 0, late, time.Hour)
			return err
		}},
		{"expire", MatchScheduled, func(m *Match, _, _ uuid.UUID) error {
			_, err := m.Expire(late)
			return err
		}},
		{"confirm", MatchPendingConfirmation, func(m *Match, _, p2 uuid.UUID) error {
			_, err := m.Confirm(p2, playerActor(), late)
			return err
		}},
		{"dispute", MatchPendingConfirmation, func(m *Match, _, p2 uuid.UUID) error {
			_, err := m.Dispute(p2, playerActor(), "score was wrong", "", late)
			return err
		}},
		{"auto confirm", MatchPendingConfirmation, func(m *Match, _, _ uuid.UUID) error {
			_, err := m.AutoConfirm(late)
			return err
		}},
		{"resolve", MatchDisputed, func(m *Match, _, _ uuid.UUID) error {
			_, err := m.Resolve(adminActor(), 2, 0, "", late)
			return err
		}},
	}

	for _, c := range calls {
		for _, status := range statuses {
			if status == c.allowed {
				continue
			}
			t.Run(c.name+" from "+string(status), func(t *testing.T) {
				m, p1, p2 := newScheduledMatch()
				score1, score2 := 2, 1
				deadline := testNow
				m.Status = status
				m.Player1Score = &score1
				m.Player2Score = &score2
				m.SubmittedBy = &p1
				m.ConfirmationDeadline = &deadline
				before := *m

				err := c.run(m, p1, p2)
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, before, *m)
			})
		}
	}
}
