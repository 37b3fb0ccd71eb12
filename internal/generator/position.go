package generator

import "github.com/AdamBeresnev/cue-bracket/internal/bracket"

// ParentSlot maps a match to the match its winner plays next. Slot i of
// round r feeds slot i/2 of round r+1, even slots as player1 and odd slots
// as player2.
func ParentSlot(round, slotIndex int) (int, int, bracket.Slot) {
	side := bracket.SlotPlayer1
	if slotIndex%2 != 0 {
		side = bracket.SlotPlayer2
	}
	return round + 1, slotIndex / 2, side
}
