package main

import (
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/httputil"
	"github.com/AdamBeresnev/cue-bracket/internal/middleware"
	"github.com/google/uuid"
)

// matchAction is the shape shared by the match transition handlers: parse the
// match id and form, run the transition as the logged in user, answer with
// the updated match.
func (s *server) matchAction(w http.ResponseWriter, r *http.Request, msg string, fn func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error)) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())
	m, err := fn(actor, id)
	if err != nil {
		httputil.WriteError(w, msg, err)
		return
	}
	respond(w, r, http.StatusOK, m)
}

func (s *server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	m, err := s.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get match", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) submitResult(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, "Failed to submit result", func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error) {
		mine, theirs, err := scorePair(r, "my_score", "opponent_score")
		if err != nil {
			return nil, err
		}
		return s.matches.SubmitResult(r.Context(), actor, id, mine, theirs)
	})
}

func (s *server) confirmResult(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, "Failed to confirm result", func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error) {
		return s.matches.ConfirmResult(r.Context(), actor, id)
	})
}

func (s *server) disputeResult(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, "Failed to dispute result", func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error) {
		return s.matches.DisputeResult(r.Context(), actor, id, r.Form.Get("reason"), r.Form.Get("evidence_url"))
	})
}

func (s *server) resolveDispute(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, "Failed to resolve dispute", func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error) {
		p1, p2, err := scorePair(r, "player1_score", "player2_score")
		if err != nil {
			return nil, err
		}
		return s.matches.ResolveDispute(r.Context(), actor, id, p1, p2, r.Form.Get("notes"))
	})
}

func (s *server) cancelMatch(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, "Failed to cancel match", func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error) {
		return s.matches.CancelMatch(r.Context(), actor, id, r.Form.Get("notes"))
	})
}

func (s *server) awardWalkover(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, "Failed to award walkover", func(actor bracket.Actor, id uuid.UUID) (*bracket.Match, error) {
		winner, err := uuid.Parse(r.Form.Get("winner_id"))
		if err != nil {
			return nil, bracket.ErrInvalidWinner
		}
		return s.matches.AwardWalkover(r.Context(), actor, id, winner, r.Form.Get("notes"))
	})
}

// advanceWinner retries the advancement of a completed match. Only arbiters
// may trigger it.
func (s *server) advanceWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())
	if !actor.CanArbitrate() {
		httputil.WriteError(w, "Failed to advance winner", bracket.ErrNotArbiter)
		return
	}
	changed, err := s.matches.AdvanceWinner(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to advance winner", err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"changed": changed})
}

// scorePair reads two score fields. Anything unparsable is reported as an
// invalid score.
func scorePair(r *http.Request, first, second string) (int, int, error) {
	a, err := strconv.Atoi(r.Form.Get(first))
	if err != nil {
		return 0, 0, bracket.ErrInvalidScore
	}
	b, err := strconv.Atoi(r.Form.Get(second))
	if err != nil {
		return 0, 0, bracket.ErrInvalidScore
	}
	return a, b, nil
}
