package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/httputil"
	"github.com/AdamBeresnev/cue-bracket/internal/middleware"
	"github.com/AdamBeresnev/cue-bracket/internal/notify"
	"github.com/AdamBeresnev/cue-bracket/internal/service"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	"github.com/AdamBeresnev/cue-bracket/views"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type server struct {
	sessions    *scs.SessionManager
	userStore   *store.UserStore
	tournaments *service.TournamentService
	matches     *service.MatchService
	users       *service.UserService
	hub         *notify.Hub

	allowGuestAdmin bool
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	// The session middleware buffers responses, which rules out the upgrade.
	// Bracket events are public, so the socket lives outside it.
	r.Get("/ws/tournaments/{id}", s.tournamentSocket)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(s.sessions, s.userStore))

		r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
			views.Render(w, r, views.LoginPage(s.allowGuestAdmin))
		})
		if s.allowGuestAdmin {
			r.Post("/auth/guest", s.guestLogin)
		}
		r.Post("/auth/player", s.playerLogin)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/", s.index)

			r.Post("/tournaments", s.createTournament)
			r.Route("/tournaments/{id}", func(r chi.Router) {
				r.Get("/", s.tournamentPage)
				r.Get("/bracket", s.bracketFragment)
				r.Post("/open", s.openRegistration)
				r.Post("/register", s.registerParticipant)
				r.Post("/start", s.startTournament)
				r.Post("/cancel", s.cancelTournament)
			})
			r.Get("/api/tournaments/{id}/bracket", s.bracketJSON)

			r.Route("/matches/{id}", func(r chi.Router) {
				r.Get("/", s.getMatch)
				r.Post("/submit", s.submitResult)
				r.Post("/confirm", s.confirmResult)
				r.Post("/dispute", s.disputeResult)
				r.Post("/resolve", s.resolveDispute)
				r.Post("/cancel", s.cancelMatch)
				r.Post("/walkover", s.awardWalkover)
				r.Post("/advance", s.advanceWinner)
			})

			r.Post("/users/{id}/rating", s.setRating)
		})
	})

	return r
}

func (s *server) guestLogin(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.EnsureGuestUser(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to login as guest", err)
		return
	}
	s.login(w, r, user.ID)
}

func (s *server) playerLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return
	}
	user, err := s.users.FindOrCreatePlayer(r.Context(), r.Form.Get("email"), r.Form.Get("username"))
	if err != nil {
		httputil.WriteError(w, "Failed to log in", err)
		return
	}
	s.login(w, r, user.ID)
}

func (s *server) login(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if err := s.sessions.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	s.sessions.Put(r.Context(), middleware.SessionUserKey, userID.String())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to log out", err)
		return
	}
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	tournaments, err := s.tournaments.GetTournamentsForOwner(r.Context(), user.ID)
	if err != nil {
		httputil.InternalServerError(w, "Failed to get tournaments", err)
		return
	}
	views.Render(w, r, views.Index(tournaments))
}

func (s *server) createTournament(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return
	}

	var input service.CreateTournamentInput
	input.Name = r.Form.Get("name")
	input.Format = bracket.TournamentFormat(r.Form.Get("format"))

	ints := map[string]*int{
		"race_to":            &input.RaceTo,
		"confirmation_hours": &input.ConfirmationHours,
		"match_expiry_hours": &input.MatchExpiryHours,
		"winners_count":      &input.WinnersCount,
	}
	for field, dst := range ints {
		v, err := optionalInt(r, field)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("Invalid %s", field), err)
			return
		}
		if v != nil {
			*dst = *v
		}
	}
	finals, err := optionalInt(r, "finals_race_to")
	if err != nil {
		httputil.BadRequest(w, "Invalid finals_race_to", err)
		return
	}
	input.FinalsRaceTo = finals

	actor, _ := middleware.ActorFromContext(r.Context())
	t, err := s.tournaments.CreateTournament(r.Context(), actor, input)
	if err != nil {
		httputil.WriteError(w, "Failed to create tournament", err)
		return
	}
	w.Header().Set("HX-Redirect", fmt.Sprintf("/tournaments/%s", t.ID))
	respond(w, r, http.StatusCreated, t)
}

func (s *server) tournamentPage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	data, err := s.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get tournament", err)
		return
	}
	views.Render(w, r, views.TournamentView(data.Tournament, data.Participants, data.Matches))
}

func (s *server) bracketFragment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	data, err := s.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get bracket", err)
		return
	}
	views.Render(w, r, views.Bracket(views.PrepareBracketData(data.Participants, data.Matches)))
}

func (s *server) bracketJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	data, err := s.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get bracket", err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *server) tournamentSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := s.tournaments.GetTournamentData(r.Context(), id); err != nil {
		httputil.WriteError(w, "Failed to get tournament", err)
		return
	}
	s.hub.ServeWS(w, r, id)
}

func (s *server) openRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())
	if err := s.tournaments.OpenRegistration(r.Context(), actor, id); err != nil {
		httputil.WriteError(w, "Failed to open registration", err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "registration"})
}

// registerParticipant registers the caller, or the player named by
// player_id when an organizer registers someone else.
func (s *server) registerParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	playerID := actor.UserID
	if raw := r.Form.Get("player_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(w, "Invalid player ID", err)
			return
		}
		playerID = parsed
	}
	manualSeed, err := optionalInt(r, "manual_seed")
	if err != nil {
		httputil.BadRequest(w, "Invalid manual_seed", err)
		return
	}

	p, err := s.tournaments.RegisterParticipant(r.Context(), actor, id, playerID, manualSeed)
	if err != nil {
		httputil.WriteError(w, "Failed to register participant", err)
		return
	}
	respond(w, r, http.StatusCreated, p)
}

func (s *server) startTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())
	result, err := s.tournaments.StartTournament(r.Context(), actor, id)
	if err != nil {
		httputil.WriteError(w, "Failed to start tournament", err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (s *server) cancelTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())
	if err := s.tournaments.CancelTournament(r.Context(), actor, id); err != nil {
		httputil.WriteError(w, "Failed to cancel tournament", err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *server) setRating(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return
	}
	rating, err := strconv.Atoi(r.Form.Get("rating"))
	if err != nil {
		httputil.BadRequest(w, "Invalid rating", err)
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())
	if err := s.users.SetRating(r.Context(), actor, id, rating); err != nil {
		httputil.WriteError(w, "Failed to set rating", err)
		return
	}
	respond(w, r, http.StatusOK, map[string]int{"rating": rating})
}

func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func optionalInt(r *http.Request, field string) (*int, error) {
	raw := r.Form.Get(field)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// respond tells htmx to refresh the bracket, everyone else gets JSON.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Trigger", "bracket-changed")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		httputil.InternalServerError(w, "Failed to encode response", err)
	}
}
