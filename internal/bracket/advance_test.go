package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkedPair(slot Slot) (*Match, *Match) {
	winner, loser := uuid.New(), uuid.New()
	next := &Match{ID: uuid.New(), Status: MatchScheduled}
	completed := &Match{
		ID:            uuid.New(),
		Status:        MatchCompleted,
		Player1ID:     &winner,
		Player2ID:     &loser,
		WinnerID:      &winner,
		LoserID:       &loser,
		NextMatchID:   &next.ID,
		NextMatchSlot: &slot,
	}
	return completed, next
}

func TestPlaceWinnerIsIdempotent(t *testing.T) {
	completed, next := linkedPair(SlotPlayer2)

	changed, err := PlaceWinner(completed, next)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, next.Player2ID)
	assert.Equal(t, *completed.WinnerID, *next.Player2ID)
	assert.Nil(t, next.Player1ID)

	snapshot := *next
	changed, err = PlaceWinner(completed, next)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, snapshot, *next)
}

func TestPlaceWinnerErrors(t *testing.T) {
	t.Run("slot held by someone else", func(t *testing.T) {
		completed, next := linkedPair(SlotPlayer1)
		other := uuid.New()
		next.Player1ID = &other

		_, err := PlaceWinner(completed, next)
		assert.ErrorIs(t, err, ErrSlotOccupied)
		assert.Equal(t, other, *next.Player1ID)
	})

	t.Run("match not completed", func(t *testing.T) {
		completed, next := linkedPair(SlotPlayer1)
		completed.Status = MatchPendingConfirmation

		_, err := PlaceWinner(completed, next)
		assert.ErrorIs(t, err, ErrMatchNotCompleted)
	})

	t.Run("wrong next match", func(t *testing.T) {
		completed, _ := linkedPair(SlotPlayer1)

		_, err := PlaceWinner(completed, &Match{ID: uuid.New()})
		assert.ErrorIs(t, err, ErrWrongNextMatch)
	})

	t.Run("final has nowhere to go", func(t *testing.T) {
		completed, _ := linkedPair(SlotPlayer1)
		completed.NextMatchID = nil

		changed, err := PlaceWinner(completed, nil)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestPlaceLoser(t *testing.T) {
	completed, _ := linkedPair(SlotPlayer1)
	thirdPlace := &Match{ID: uuid.New(), MatchType: MatchThirdPlace}
	slot := SlotPlayer2
	completed.LoserNextMatchID = &thirdPlace.ID
	completed.LoserNextSlot = &slot

	changed, err := PlaceLoser(completed, thirdPlace)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, *completed.LoserID, *thirdPlace.Player2ID)
}
