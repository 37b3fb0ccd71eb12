package views

import (
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/a-h/templ"
	"github.com/google/uuid"
)

//go:generate templ generate

func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	return component.Render(r.Context(), w)
}

// TournamentView renders the bracket. The page subscribes to the tournament
// websocket and reloads the bracket fragment on every event.
func TournamentView(t *bracket.Tournament, participants []bracket.Participant, matches []bracket.Match) templ.Component {
	return tournamentPage(t, PrepareBracketData(participants, matches))
}

func isWinner(m bracket.Match, id *uuid.UUID) bool {
	return id != nil && m.WinnerID != nil && *id == *m.WinnerID
}

func score(s *int) string {
	if s == nil {
		return ""
	}
	return strconv.Itoa(*s)
}
