package generator

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
)

// ProcessByes resolves every match of a freshly wired bracket that can never
// be played and returns how many it closed. It starts from round 1 and
// follows each resolved match downstream, so a double bye further up the
// tree is handled in the same pass.
func ProcessByes(matches []*bracket.Match, now time.Time, advance AdvanceFunc) (int, error) {
	var round1 []*bracket.Match
	for _, m := range matches {
		if m.RoundNumber == 1 {
			round1 = append(round1, m)
		}
	}

	resolved, _, err := ResolveVoids(matches, round1, now, advance)
	return resolved, err
}

// ResolveVoids runs the bye rules over a bracket in progress, starting at the
// given matches. It returns how many matches it closed and every match it
// changed, closed or filled, so the caller can persist them.
//
// A slot is void when it is empty and every match that could still fill it
// has finished. A match with one player and one void slot becomes a bye won
// by that player. A match with two void slots is closed as a bye with no
// winner. Bye winners move forward through advance, bracket.PlaceWinner when
// nil.
func ResolveVoids(matches []*bracket.Match, start []*bracket.Match, now time.Time, advance AdvanceFunc) (int, []*bracket.Match, error) {
	if advance == nil {
		advance = bracket.PlaceWinner
	}

	byID := make(map[uuid.UUID]*bracket.Match, len(matches))
	feeders := make(map[uuid.UUID][]*bracket.Match)
	for _, m := range matches {
		byID[m.ID] = m
		if m.NextMatchID != nil {
			feeders[*m.NextMatchID] = append(feeders[*m.NextMatchID], m)
		}
		if m.LoserNextMatchID != nil {
			feeders[*m.LoserNextMatchID] = append(feeders[*m.LoserNextMatchID], m)
		}
	}

	isVoid := func(m *bracket.Match, slot bracket.Slot) bool {
		if m.PlayerIn(slot) != nil {
			return false
		}
		for _, f := range feeders[m.ID] {
			if f.Status.IsTerminal() {
				continue
			}
			if f.NextMatchID != nil && *f.NextMatchID == m.ID && *f.NextMatchSlot == slot {
				return false
			}
			if f.LoserNextMatchID != nil && *f.LoserNextMatchID == m.ID && *f.LoserNextSlot == slot {
				return false
			}
		}
		return true
	}

	queue := append([]*bracket.Match(nil), start...)
	touched := make(map[uuid.UUID]bool)
	var changed []*bracket.Match
	touch := func(m *bracket.Match) {
		if !touched[m.ID] {
			touched[m.ID] = true
			changed = append(changed, m)
		}
	}

	resolved := 0
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		if m == nil || m.Status != bracket.MatchScheduled {
			continue
		}

		void1, void2 := isVoid(m, bracket.SlotPlayer1), isVoid(m, bracket.SlotPlayer2)
		switch {
		case void1 && void2:
			m.MarkBye(nil, now)
		case void1 && m.Player2ID != nil:
			m.MarkBye(m.Player2ID, now)
		case void2 && m.Player1ID != nil:
			m.MarkBye(m.Player1ID, now)
		default:
			continue
		}
		resolved++
		touch(m)

		if m.NextMatchID == nil {
			continue
		}
		next, ok := byID[*m.NextMatchID]
		if !ok {
			return resolved, changed, fmt.Errorf("match %s links to unknown match %s", m.ID, *m.NextMatchID)
		}
		placed, err := advance(m, next)
		if err != nil {
			return resolved, changed, fmt.Errorf("failed to advance bye winner of match %s: %w", m.ID, err)
		}
		if placed {
			touch(next)
		}
		queue = append(queue, next)
	}

	return resolved, changed, nil
}
