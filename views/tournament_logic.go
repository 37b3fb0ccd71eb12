package views

import (
	"sort"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
)

type BracketData struct {
	Rounds         map[int][]bracket.Match
	RoundNums      []int
	RoundNames     map[int]string
	ThirdPlace     *bracket.Match
	ParticipantMap map[uuid.UUID]bracket.Participant
}

func PrepareBracketData(participants []bracket.Participant, matches []bracket.Match) BracketData {
	participantMap := make(map[uuid.UUID]bracket.Participant)
	for _, p := range participants {
		participantMap[p.ID] = p
	}

	rounds := make(map[int][]bracket.Match)
	roundNames := make(map[int]string)
	var roundNums []int
	var thirdPlace *bracket.Match

	for _, m := range matches {
		if m.MatchType == bracket.MatchThirdPlace {
			m := m
			thirdPlace = &m
			continue
		}
		if _, exists := rounds[m.RoundNumber]; !exists {
			roundNums = append(roundNums, m.RoundNumber)
		}
		rounds[m.RoundNumber] = append(rounds[m.RoundNumber], m)
		if m.MatchType != bracket.MatchBye {
			roundNames[m.RoundNumber] = m.RoundName
		} else if _, ok := roundNames[m.RoundNumber]; !ok {
			roundNames[m.RoundNumber] = m.RoundName
		}
	}

	sort.Ints(roundNums)
	for _, r := range roundNums {
		sort.Slice(rounds[r], func(i, j int) bool {
			return rounds[r][i].BracketPosition < rounds[r][j].BracketPosition
		})
	}

	return BracketData{
		Rounds:         rounds,
		RoundNums:      roundNums,
		RoundNames:     roundNames,
		ThirdPlace:     thirdPlace,
		ParticipantMap: participantMap,
	}
}

// PlayerName is what a bracket slot shows. Empty slots read "BYE" once the
// match is decided and "TBD" while a feeder is still open.
func (d BracketData) PlayerName(m bracket.Match, id *uuid.UUID) string {
	if id == nil {
		if m.Status.IsTerminal() {
			return "BYE"
		}
		return "TBD"
	}
	p, ok := d.ParticipantMap[*id]
	if !ok {
		return "Unknown"
	}
	return p.Name
}
