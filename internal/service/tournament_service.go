package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/notify"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	maxWinnersCount = 3
	startRetries    = 3
)

// TournamentDefaults fill in settings a new tournament leaves at zero.
type TournamentDefaults struct {
	RaceTo            int
	ConfirmationHours int
	MatchExpiryHours  int
}

type TournamentService struct {
	db         *sqlx.DB
	store      *store.TournamentStore
	matches    *store.MatchStore
	users      *store.UserStore
	brackets   *BracketService
	dispatcher notify.Dispatcher
	metrics    *metrics.Metrics
	clock      bracket.Clock
	logger     *slog.Logger
	defaults   TournamentDefaults

	// starts collapses concurrent StartTournament calls per tournament and actor
	starts singleflight.Group
}

func NewTournamentService(db *sqlx.DB, deps Deps, brackets *BracketService, defaults TournamentDefaults) *TournamentService {
	deps = deps.withDefaults()
	return &TournamentService{
		db:         db,
		store:      deps.Tournaments,
		matches:    deps.Matches,
		users:      deps.Users,
		brackets:   brackets,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     deps.Logger,
		defaults:   defaults,
	}
}

type CreateTournamentInput struct {
	Name              string
	Format            bracket.TournamentFormat
	RaceTo            int
	FinalsRaceTo      *int
	ConfirmationHours int
	MatchExpiryHours  int
	WinnersCount      int
}

type TournamentData struct {
	Tournament   *bracket.Tournament   `json:"tournament"`
	Participants []bracket.Participant `json:"participants"`
	Matches      []bracket.Match       `json:"matches"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, actor bracket.Actor, input CreateTournamentInput) (*bracket.Tournament, error) {
	tournament, err := s.newTournament(actor, input)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament created", "tournament_id", tournament.ID, "owner_id", tournament.OwnerID)
	return tournament, nil
}

func (s *TournamentService) newTournament(actor bracket.Actor, input CreateTournamentInput) (*bracket.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", bracket.ErrInvalidSettings)
	}

	format := input.Format
	if format == "" {
		format = bracket.SingleElimination
	}
	if format != bracket.SingleElimination {
		return nil, fmt.Errorf("%q: %w", format, bracket.ErrUnsupportedFormat)
	}

	raceTo := orDefault(input.RaceTo, s.defaults.RaceTo)
	confirmation := orDefault(input.ConfirmationHours, s.defaults.ConfirmationHours)
	expiry := orDefault(input.MatchExpiryHours, s.defaults.MatchExpiryHours)
	winners := orDefault(input.WinnersCount, 1)

	switch {
	case raceTo <= 0:
		return nil, fmt.Errorf("race to must be positive: %w", bracket.ErrInvalidSettings)
	case input.FinalsRaceTo != nil && *input.FinalsRaceTo <= 0:
		return nil, fmt.Errorf("finals race to must be positive: %w", bracket.ErrInvalidSettings)
	case confirmation < 0 || expiry < 0:
		return nil, fmt.Errorf("deadlines cannot be negative: %w", bracket.ErrInvalidSettings)
	case winners < 1 || winners > maxWinnersCount:
		return nil, fmt.Errorf("winners count must be between 1 and %d: %w", maxWinnersCount, bracket.ErrInvalidSettings)
	}

	return &bracket.Tournament{
		ID:                uuid.New(),
		OwnerID:           actor.UserID,
		Name:              name,
		Format:            format,
		Status:            bracket.TournamentDraft,
		RaceTo:            raceTo,
		FinalsRaceTo:      input.FinalsRaceTo,
		ConfirmationHours: confirmation,
		MatchExpiryHours:  expiry,
		WinnersCount:      winners,
		CreatedAt:         s.clock.Now(),
	}, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// OpenRegistration moves a draft tournament to registration.
func (s *TournamentService) OpenRegistration(ctx context.Context, actor bracket.Actor, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := s.store.GetTournamentTx(ctx, tx, id)
	if err != nil {
		return notFound(err, bracket.ErrTournamentNotFound)
	}
	if err := canManage(actor, t); err != nil {
		return err
	}

	ok, err := s.store.UpdateTournamentStatusTx(ctx, tx, id, bracket.TournamentDraft, bracket.TournamentRegistration)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tournament is %s: %w", t.Status, bracket.ErrTournamentNotDraft)
	}
	return tx.Commit()
}

// RegisterParticipant enters a player into a tournament that is open for
// registration. Players register themselves, organizers may register anyone.
// The participant's rating is the player's rating at registration time.
func (s *TournamentService) RegisterParticipant(ctx context.Context, actor bracket.Actor, tournamentID, playerID uuid.UUID, manualSeed *int) (*bracket.Participant, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, notFound(err, bracket.ErrTournamentNotFound)
	}
	if actor.UserID != playerID {
		if err := canManage(actor, t); err != nil {
			return nil, err
		}
	}
	if t.Status != bracket.TournamentRegistration {
		return nil, fmt.Errorf("tournament is %s: %w", t.Status, bracket.ErrTournamentNotInRegistration)
	}

	player, err := s.users.GetUserTx(ctx, tx, playerID)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", playerID, notFound(err, bracket.ErrParticipantNotFound))
	}

	_, err = s.store.GetParticipantByPlayerTx(ctx, tx, tournamentID, playerID)
	switch {
	case err == nil:
		return nil, bracket.ErrParticipantAlreadyRegistered
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	p := &bracket.Participant{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		PlayerID:     playerID,
		Name:         player.Username,
		Rating:       player.Rating,
		Status:       bracket.ParticipantRegistered,
		ManualSeed:   manualSeed,
		RegisteredAt: s.clock.Now(),
	}
	if err := s.store.CreateParticipant(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}
	return p, tx.Commit()
}

// StartTournament closes registration and generates the bracket in one
// transaction. Concurrent calls by the same actor for the same tournament
// share one attempt, and a call after a successful start fails with
// ErrTournamentNotInRegistration. Transient failures are retried, every
// attempt starting from a rolled back state.
func (s *TournamentService) StartTournament(ctx context.Context, actor bracket.Actor, id uuid.UUID) (*bracket.BracketResult, error) {
	t, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, notFound(err, bracket.ErrTournamentNotFound)
	}
	if err := canManage(actor, t); err != nil {
		return nil, err
	}

	// The shared attempt outlives any single caller, each caller only stops
	// waiting when its own context ends.
	work := context.WithoutCancel(ctx)
	ch := s.starts.DoChan(id.String()+"/"+actor.UserID.String(), func() (any, error) {
		return backoff.RetryWithData(func() (*bracket.BracketResult, error) {
			result, events, err := s.startOnce(work, actor, id)
			if err != nil {
				if isPermanent(err) {
					return nil, backoff.Permanent(err)
				}
				s.logger.WarnContext(work, "tournament start failed", "tournament_id", id, "error", err)
				return nil, err
			}
			s.dispatcher.Dispatch(work, events...)
			return result, nil
		}, s.retryPolicy(work))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*bracket.BracketResult), nil
	}
}

func (s *TournamentService) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, startRetries), ctx)
}

func (s *TournamentService) startOnce(ctx context.Context, actor bracket.Actor, id uuid.UUID) (*bracket.BracketResult, []bracket.Event, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	t, err := s.store.GetTournamentTx(ctx, tx, id)
	if err != nil {
		return nil, nil, notFound(err, bracket.ErrTournamentNotFound)
	}
	if err := canManage(actor, t); err != nil {
		return nil, nil, err
	}
	if t.Status != bracket.TournamentRegistration {
		return nil, nil, fmt.Errorf("tournament is %s: %w", t.Status, bracket.ErrTournamentNotInRegistration)
	}

	participants, err := s.store.GetParticipantsTx(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	switch len(participants) {
	case 0:
		return nil, nil, bracket.ErrInsufficientParticipants
	case 1:
		return s.completeUncontested(ctx, tx, actor, t, &participants[0], now)
	}

	b, err := s.brackets.Generate(ctx, tx, t, participants, now)
	if err != nil {
		return nil, nil, err
	}

	ok, err := s.store.MarkTournamentStartedTx(ctx, tx, id, now)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, bracket.ErrTournamentNotInRegistration
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	t.Status = bracket.TournamentActive
	t.StartedAt = &now
	return &b.Result, []bracket.Event{bracket.NewTournamentEvent(bracket.EventTournamentStarted, t, actor, now)}, nil
}

// completeUncontested declares a lone participant the winner without
// creating any matches.
func (s *TournamentService) completeUncontested(ctx context.Context, tx *sqlx.Tx, actor bracket.Actor, t *bracket.Tournament, p *bracket.Participant, now time.Time) (*bracket.BracketResult, []bracket.Event, error) {
	if err := s.store.ApplySeedsTx(ctx, tx, []bracket.SeedAssignment{{ParticipantID: p.ID, Seed: 1, Rating: p.Rating}}); err != nil {
		return nil, nil, err
	}
	if err := s.store.UpdateParticipantStatusTx(ctx, tx, p.ID, bracket.ParticipantWinner); err != nil {
		return nil, nil, err
	}

	ok, err := s.store.CompleteTournamentTx(ctx, tx, t.ID, bracket.TournamentRegistration, &p.ID, now)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, bracket.ErrTournamentNotInRegistration
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "tournament completed without matches", "tournament_id", t.ID, "winner_id", p.ID)

	t.Status = bracket.TournamentCompleted
	t.WinnerParticipantID = &p.ID
	t.StartedAt = &now
	t.CompletedAt = &now
	events := []bracket.Event{
		bracket.NewTournamentEvent(bracket.EventTournamentStarted, t, actor, now),
		bracket.NewTournamentEvent(bracket.EventTournamentCompleted, t, actor, now),
	}
	return &bracket.BracketResult{ParticipantCount: 1}, events, nil
}

// CancelTournament stops a tournament that has not finished and cancels every
// match still open.
func (s *TournamentService) CancelTournament(ctx context.Context, actor bracket.Actor, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := s.store.GetTournamentTx(ctx, tx, id)
	if err != nil {
		return notFound(err, bracket.ErrTournamentNotFound)
	}
	if err := canManage(actor, t); err != nil {
		return err
	}

	now := s.clock.Now()
	ok, err := s.store.CancelTournamentTx(ctx, tx, id, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tournament is %s: %w", t.Status, bracket.ErrTournamentClosed)
	}

	matches, err := s.matches.GetMatchesTx(ctx, tx, id)
	if err != nil {
		return err
	}

	// The organizer arbitrates the matches of their own tournament
	organizer := bracket.Actor{UserID: actor.UserID, Role: bracket.RoleAdmin}

	var events []bracket.Event
	for i := range matches {
		m := &matches[i]
		if m.Status.IsTerminal() {
			continue
		}
		expected := m.Status
		ev, err := m.Cancel(organizer, "tournament cancelled", now)
		if err != nil {
			return err
		}
		ok, err := s.matches.UpdateMatchTx(ctx, tx, m, expected)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("match %s changed while cancelling: %w", m.ID, bracket.ErrInvalidTransition)
		}
		events = append(events, ev)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "tournament cancelled", "tournament_id", id, "matches_cancelled", len(events))
	s.dispatcher.Dispatch(ctx, events...)
	return nil
}

// GetTournamentData loads a tournament with its participants and matches.
func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	var data TournamentData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.store.GetTournament(gctx, id)
		if err != nil {
			return notFound(err, bracket.ErrTournamentNotFound)
		}
		data.Tournament = t
		return nil
	})
	g.Go(func() error {
		participants, err := s.store.GetParticipants(gctx, id)
		data.Participants = participants
		return err
	})
	g.Go(func() error {
		matches, err := s.matches.GetMatches(gctx, id)
		data.Matches = matches
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *TournamentService) GetTournamentsForOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	return s.store.GetTournamentsByOwner(ctx, ownerID)
}

func canManage(actor bracket.Actor, t *bracket.Tournament) error {
	if actor.UserID == t.OwnerID || actor.CanArbitrate() {
		return nil
	}
	return bracket.ErrNotOrganizer
}

// isPermanent reports whether retrying a start could not change the outcome.
func isPermanent(err error) bool {
	for _, target := range []error{
		bracket.ErrInsufficientParticipants,
		bracket.ErrTournamentNotInRegistration,
		bracket.ErrNoMatchingGenerator,
		bracket.ErrUnsupportedFormat,
		bracket.ErrTournamentNotFound,
		bracket.ErrNotOrganizer,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
