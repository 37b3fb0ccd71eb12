package bracket

import "github.com/google/uuid"

// PlaceWinner writes the winner of a completed match into its designated slot
// of next. It is the only way a participant moves forward in a bracket, for
// played matches and byes alike.
//
// The call is idempotent: placing the same winner twice reports false the
// second time and leaves next unchanged. A slot already held by someone else
// is ErrSlotOccupied. A completed match without a winner (a void bye) or
// without a next match places nothing.
func PlaceWinner(completed, next *Match) (bool, error) {
	if completed.Status != MatchCompleted {
		return false, ErrMatchNotCompleted
	}
	if completed.WinnerID == nil || completed.NextMatchID == nil {
		return false, nil
	}
	return place(*completed.WinnerID, *completed.NextMatchID, completed.NextMatchSlot, next)
}

// PlaceLoser routes the loser of a completed match into the match named by
// its loser link, the third-place match in single elimination.
func PlaceLoser(completed, next *Match) (bool, error) {
	if completed.Status != MatchCompleted {
		return false, ErrMatchNotCompleted
	}
	if completed.LoserID == nil || completed.LoserNextMatchID == nil {
		return false, nil
	}
	return place(*completed.LoserID, *completed.LoserNextMatchID, completed.LoserNextSlot, next)
}

func place(participantID, nextID uuid.UUID, slot *Slot, next *Match) (bool, error) {
	if next == nil || next.ID != nextID || slot == nil {
		return false, ErrWrongNextMatch
	}

	current := next.PlayerIn(*slot)
	if current != nil {
		if *current == participantID {
			return false, nil
		}
		return false, ErrSlotOccupied
	}

	id := participantID
	if *slot == SlotPlayer2 {
		next.Player2ID = &id
	} else {
		next.Player1ID = &id
	}
	return true, nil
}
