package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/evidence"
	"github.com/AdamBeresnev/cue-bracket/internal/generator"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/notify"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	"github.com/AdamBeresnev/cue-bracket/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Transition names used as metric labels.
const (
	transitionSubmit      = "submit"
	transitionConfirm     = "confirm"
	transitionDispute     = "dispute"
	transitionResolve     = "resolve"
	transitionAutoConfirm = "auto_confirm"
	transitionExpire      = "expire"
	transitionCancel      = "cancel"
	transitionWalkover    = "walkover"
	transitionAdvance     = "advance"
	transitionRemind      = "remind"
)

// GeneratorLookup finds the generator that owns a running bracket.
type GeneratorLookup interface {
	GeneratorFor(t *bracket.Tournament) (generator.Generator, error)
}

type MatchService struct {
	db          *sqlx.DB
	generators  GeneratorLookup
	store       *store.MatchStore
	tournaments *store.TournamentStore
	dispatcher  notify.Dispatcher
	metrics     *metrics.Metrics
	clock       bracket.Clock
	logger      *slog.Logger
}

func NewMatchService(db *sqlx.DB, deps Deps, generators GeneratorLookup) *MatchService {
	deps = deps.withDefaults()
	return &MatchService{
		db:          db,
		generators:  generators,
		store:       deps.Matches,
		tournaments: deps.Tournaments,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// matchContext is everything a transition reads, loaded inside its
// transaction.
type matchContext struct {
	tx           *sqlx.Tx
	tournament   *bracket.Tournament
	match        *bracket.Match
	participants map[uuid.UUID]*bracket.Participant
	now          time.Time
}

// participantFor maps a user to their participant id in this tournament.
// uuid.Nil is returned for outsiders so the state machine reports them.
func (mc *matchContext) participantFor(userID uuid.UUID) uuid.UUID {
	for id, p := range mc.participants {
		if p.PlayerID == userID {
			return id
		}
	}
	return uuid.Nil
}

func (mc *matchContext) playerOf(participantID *uuid.UUID) *uuid.UUID {
	if participantID == nil {
		return nil
	}
	if p, ok := mc.participants[*participantID]; ok {
		return &p.PlayerID
	}
	return nil
}

// enrich adds the player ids behind the participants of match events.
func (mc *matchContext) enrich(events []bracket.Event) {
	for i := range events {
		events[i].Player1UserID = mc.playerOf(events[i].Player1ID)
		events[i].Player2UserID = mc.playerOf(events[i].Player2ID)
	}
}

type transition func(mc *matchContext) (bracket.Event, error)

func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	m, err := s.store.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err, bracket.ErrMatchNotFound)
	}
	return m, nil
}

// SubmitResult records the score reported by one of the players, given from
// their own point of view.
func (s *MatchService) SubmitResult(ctx context.Context, actor bracket.Actor, matchID uuid.UUID, myScore, opponentScore int) (*bracket.Match, error) {
	return s.apply(ctx, transitionSubmit, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Submit(mc.participantFor(actor.UserID), actor, myScore, opponentScore, mc.now, mc.tournament.ConfirmationWindow())
	})
}

func (s *MatchService) ConfirmResult(ctx context.Context, actor bracket.Actor, matchID uuid.UUID) (*bracket.Match, error) {
	return s.apply(ctx, transitionConfirm, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Confirm(mc.participantFor(actor.UserID), actor, mc.now)
	})
}

func (s *MatchService) DisputeResult(ctx context.Context, actor bracket.Actor, matchID uuid.UUID, reason, evidenceURL string) (*bracket.Match, error) {
	if err := evidence.Validate(evidenceURL); err != nil {
		return nil, err
	}
	return s.apply(ctx, transitionDispute, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Dispute(mc.participantFor(actor.UserID), actor, reason, evidenceURL, mc.now)
	})
}

// ResolveDispute settles a disputed match with the arbiter's scores.
func (s *MatchService) ResolveDispute(ctx context.Context, actor bracket.Actor, matchID uuid.UUID, player1Score, player2Score int, notes string) (*bracket.Match, error) {
	return s.apply(ctx, transitionResolve, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Resolve(actor, player1Score, player2Score, notes, mc.now)
	})
}

func (s *MatchService) CancelMatch(ctx context.Context, actor bracket.Actor, matchID uuid.UUID, notes string) (*bracket.Match, error) {
	return s.apply(ctx, transitionCancel, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Cancel(actor, notes, mc.now)
	})
}

// AwardWalkover gives a scheduled match to winnerID, a participant id.
func (s *MatchService) AwardWalkover(ctx context.Context, actor bracket.Actor, matchID, winnerID uuid.UUID, notes string) (*bracket.Match, error) {
	return s.apply(ctx, transitionWalkover, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Walkover(actor, winnerID, notes, mc.now)
	})
}

// AutoConfirm completes a pending result whose confirmation deadline passed.
// It reports false when the match was no longer eligible.
func (s *MatchService) AutoConfirm(ctx context.Context, matchID uuid.UUID) (bool, error) {
	return s.applySweep(ctx, transitionAutoConfirm, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.AutoConfirm(mc.now)
	})
}

// Expire closes a scheduled match nobody reported before its deadline.
func (s *MatchService) Expire(ctx context.Context, matchID uuid.UUID) (bool, error) {
	return s.applySweep(ctx, transitionExpire, matchID, func(mc *matchContext) (bracket.Event, error) {
		return mc.match.Expire(mc.now)
	})
}

// applySweep runs a system transition. Losing a race against a player or
// another sweep is not an error.
func (s *MatchService) applySweep(ctx context.Context, name string, matchID uuid.UUID, fn transition) (bool, error) {
	_, err := s.apply(ctx, name, matchID, fn)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bracket.ErrInvalidTransition), errors.Is(err, bracket.ErrDeadlineNotReached):
		return false, nil
	}
	return false, err
}

func (s *MatchService) apply(ctx context.Context, name string, matchID uuid.UUID, fn transition) (*bracket.Match, error) {
	m, events, err := s.applyTx(ctx, matchID, fn)
	if err != nil {
		s.metrics.ObserveTransition(name, outcomeOf(err))
		return nil, err
	}

	s.metrics.ObserveTransition(name, metrics.OutcomeOK)
	s.logger.InfoContext(ctx, "match updated", "transition", name, "match_id", m.ID, "status", m.Status)
	s.dispatcher.Dispatch(ctx, events...)
	return m, nil
}

func (s *MatchService) applyTx(ctx context.Context, matchID uuid.UUID, fn transition) (*bracket.Match, []bracket.Event, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	mc, err := s.load(ctx, tx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if mc.tournament.Status != bracket.TournamentActive {
		return nil, nil, fmt.Errorf("tournament is %s: %w", mc.tournament.Status, bracket.ErrInvalidTransition)
	}

	expected := mc.match.Status
	ev, err := fn(mc)
	if err != nil {
		return nil, nil, err
	}

	ok, err := s.store.UpdateMatchTx(ctx, tx, mc.match, expected)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update match: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("match %s is no longer %s: %w", matchID, expected, bracket.ErrInvalidTransition)
	}

	events := []bracket.Event{ev}
	if mc.match.Status.IsTerminal() {
		if err := s.recordOutcome(ctx, mc); err != nil {
			return nil, nil, err
		}
		_, more, err := s.propagate(ctx, mc)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, more...)
	}
	mc.enrich(events)

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return mc.match, events, nil
}

// AdvanceWinner pushes the result of a completed match into the rest of the
// bracket. Completing a match already does this, so the call is only needed to
// finish an interrupted advancement. Repeating it is a no-op that reports
// false.
func (s *MatchService) AdvanceWinner(ctx context.Context, matchID uuid.UUID) (bool, error) {
	changed, events, err := s.advanceTx(ctx, matchID)
	if err != nil {
		s.metrics.ObserveTransition(transitionAdvance, outcomeOf(err))
		return false, err
	}
	if !changed {
		s.metrics.ObserveTransition(transitionAdvance, metrics.OutcomeSkipped)
		return false, nil
	}

	s.metrics.ObserveTransition(transitionAdvance, metrics.OutcomeOK)
	s.dispatcher.Dispatch(ctx, events...)
	return true, nil
}

func (s *MatchService) advanceTx(ctx context.Context, matchID uuid.UUID) (bool, []bracket.Event, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback()

	mc, err := s.load(ctx, tx, matchID)
	if err != nil {
		return false, nil, err
	}
	if mc.match.Status != bracket.MatchCompleted {
		return false, nil, bracket.ErrMatchNotCompleted
	}
	if mc.tournament.Status != bracket.TournamentActive {
		return false, nil, nil
	}

	changed, events, err := s.propagate(ctx, mc)
	if err != nil {
		return false, nil, err
	}
	if !changed {
		return false, nil, nil
	}
	return true, events, tx.Commit()
}

// SendReminder marks the play reminder of a scheduled match as sent and
// emits it. Each match is reminded at most once.
func (s *MatchService) SendReminder(ctx context.Context, matchID uuid.UUID) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	mc, err := s.load(ctx, tx, matchID)
	if err != nil {
		return false, err
	}
	m := mc.match
	if mc.tournament.Status != bracket.TournamentActive || m.Status != bracket.MatchScheduled || !m.HasBothPlayers() || m.ExpiresAt == nil {
		return false, nil
	}

	ok, err := s.store.MarkRemindedTx(ctx, tx, m.ID, mc.now)
	if err != nil || !ok {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	m.RemindedAt = &mc.now
	events := []bracket.Event{bracket.NewMatchEvent(bracket.EventMatchReminder, m, bracket.System, mc.now)}
	mc.enrich(events)
	s.metrics.ObserveTransition(transitionRemind, metrics.OutcomeOK)
	s.dispatcher.Dispatch(ctx, events...)
	return true, nil
}

func (s *MatchService) load(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) (*matchContext, error) {
	m, err := s.store.GetMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, notFound(err, bracket.ErrMatchNotFound)
	}
	t, err := s.tournaments.GetTournamentTx(ctx, tx, m.TournamentID)
	if err != nil {
		return nil, notFound(err, bracket.ErrTournamentNotFound)
	}
	participants, err := s.tournaments.GetParticipantsTx(ctx, tx, m.TournamentID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*bracket.Participant, len(participants))
	for i := range participants {
		byID[participants[i].ID] = &participants[i]
	}
	return &matchContext{
		tx:           tx,
		tournament:   t,
		match:        m,
		participants: byID,
		now:          s.clock.Now(),
	}, nil
}

// recordOutcome updates the statistics and status of the players of a match
// that just ended. A loser routed to the third-place match stays active.
// Nobody advances from an expired or cancelled match, so both players are out.
func (s *MatchService) recordOutcome(ctx context.Context, mc *matchContext) error {
	m := mc.match

	var changed []*bracket.Participant
	switch m.Status {
	case bracket.MatchCompleted:
		if m.WinnerID == nil {
			return nil
		}
		for _, id := range []*uuid.UUID{m.WinnerID, m.LoserID} {
			if id == nil {
				continue
			}
			p, ok := mc.participants[*id]
			if !ok {
				return fmt.Errorf("participant %s: %w", *id, bracket.ErrParticipantNotFound)
			}
			won := *id == *m.WinnerID
			framesFor, framesAgainst := m.ScoreFor(*id)
			p.RecordResult(won, framesFor, framesAgainst)
			if !won && m.LoserNextMatchID == nil {
				p.Status = bracket.ParticipantEliminated
			}
			changed = append(changed, p)
		}
	case bracket.MatchExpired, bracket.MatchCancelled:
		for _, id := range []*uuid.UUID{m.Player1ID, m.Player2ID} {
			if id == nil {
				continue
			}
			if p, ok := mc.participants[*id]; ok {
				p.Status = bracket.ParticipantEliminated
				changed = append(changed, p)
			}
		}
	}

	for _, p := range changed {
		if err := s.tournaments.UpdateParticipantResultTx(ctx, mc.tx, p); err != nil {
			return fmt.Errorf("failed to update participant %s: %w", p.ID, err)
		}
	}
	return nil
}

// propagate moves the result of a finished match into the matches it feeds,
// closes whatever can no longer be played and completes the tournament when
// the bracket is done. It reports whether anything was written.
func (s *MatchService) propagate(ctx context.Context, mc *matchContext) (bool, []bracket.Event, error) {
	m := mc.match
	g, err := s.generators.GeneratorFor(mc.tournament)
	if err != nil {
		return false, nil, err
	}
	stored, err := s.store.GetMatchesTx(ctx, mc.tx, m.TournamentID)
	if err != nil {
		return false, nil, err
	}

	matches := make([]*bracket.Match, len(stored))
	byID := make(map[uuid.UUID]*bracket.Match, len(stored))
	for i := range stored {
		matches[i] = &stored[i]
		if stored[i].ID == m.ID {
			matches[i] = m
		}
		byID[matches[i].ID] = matches[i]
	}

	changed := false
	var start []*bracket.Match

	if m.NextMatchID != nil {
		next := byID[*m.NextMatchID]
		if m.Status == bracket.MatchCompleted {
			placed, err := g.AdvanceWinner(m, next)
			if err != nil {
				return false, nil, fmt.Errorf("failed to advance winner of match %s: %w", m.ID, err)
			}
			if placed {
				if err := s.fillSlot(ctx, mc, next.ID, *m.NextMatchSlot, *m.WinnerID); err != nil {
					return false, nil, err
				}
				changed = true
			}
		}
		start = append(start, next)
	}

	if m.LoserNextMatchID != nil {
		next := byID[*m.LoserNextMatchID]
		if m.Status == bracket.MatchCompleted {
			placed, err := bracket.PlaceLoser(m, next)
			if err != nil {
				return false, nil, fmt.Errorf("failed to route loser of match %s: %w", m.ID, err)
			}
			if placed {
				if err := s.fillSlot(ctx, mc, next.ID, *m.LoserNextSlot, *m.LoserID); err != nil {
					return false, nil, err
				}
				changed = true
			}
		}
		start = append(start, next)
	}

	_, touched, err := generator.ResolveVoids(matches, start, mc.now, g.AdvanceWinner)
	if err != nil {
		return false, nil, err
	}
	for _, t := range touched {
		// Everything the bye rules touch was still scheduled
		ok, err := s.store.UpdateMatchTx(ctx, mc.tx, t, bracket.MatchScheduled)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			return false, nil, fmt.Errorf("match %s changed during advancement: %w", t.ID, bracket.ErrInvalidTransition)
		}
		changed = true
	}

	if err := s.startClocks(ctx, mc, append(start, touched...)); err != nil {
		return false, nil, err
	}

	events, err := s.completeIfDone(ctx, mc, matches)
	if err != nil {
		return false, nil, err
	}
	return changed || len(events) > 0, events, nil
}

func (s *MatchService) fillSlot(ctx context.Context, mc *matchContext, matchID uuid.UUID, slot bracket.Slot, participantID uuid.UUID) error {
	ok, err := s.store.FillSlotTx(ctx, mc.tx, matchID, slot, participantID, mc.now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %s %s: %w", matchID, slot, bracket.ErrSlotOccupied)
	}
	return nil
}

// startClocks sets the play deadline of matches that just got their second
// player.
func (s *MatchService) startClocks(ctx context.Context, mc *matchContext, matches []*bracket.Match) error {
	window := mc.tournament.ExpiryWindow()
	if window <= 0 {
		return nil
	}
	for _, m := range matches {
		if m == nil || m.Status != bracket.MatchScheduled || !m.HasBothPlayers() || m.ExpiresAt != nil {
			continue
		}
		m.ExpiresAt = utils.Ptr(mc.now.Add(window))
		if err := s.store.SetExpiryTx(ctx, mc.tx, m.ID, *m.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}

// completeIfDone closes the tournament once every match that ends the
// bracket is over. The winner of the final is the champion, everyone else
// still active is out.
func (s *MatchService) completeIfDone(ctx context.Context, mc *matchContext, matches []*bracket.Match) ([]bracket.Event, error) {
	var decider *bracket.Match
	for _, m := range matches {
		if !m.EndsBracket() {
			continue
		}
		if !m.Status.IsTerminal() {
			return nil, nil
		}
		if m.DecidesChampion() {
			decider = m
		}
	}
	if decider == nil {
		return nil, nil
	}

	champion := decider.WinnerID
	if decider.Status != bracket.MatchCompleted {
		champion = nil
	}

	t := mc.tournament
	ok, err := s.tournaments.CompleteTournamentTx(ctx, mc.tx, t.ID, bracket.TournamentActive, champion, mc.now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	for _, p := range mc.participants {
		switch {
		case champion != nil && p.ID == *champion:
			p.Status = bracket.ParticipantWinner
		case p.Status == bracket.ParticipantActive:
			p.Status = bracket.ParticipantEliminated
		default:
			continue
		}
		if err := s.tournaments.UpdateParticipantStatusTx(ctx, mc.tx, p.ID, p.Status); err != nil {
			return nil, err
		}
	}

	t.Status = bracket.TournamentCompleted
	t.WinnerParticipantID = champion
	t.CompletedAt = &mc.now

	s.logger.InfoContext(ctx, "tournament completed", "tournament_id", t.ID, "winner_id", champion)
	return []bracket.Event{bracket.NewTournamentEvent(bracket.EventTournamentCompleted, t, bracket.System, mc.now)}, nil
}

// outcomeOf labels a failed call for metrics. Domain rejections are the
// caller's fault, anything else is ours.
func outcomeOf(err error) string {
	for _, target := range []error{
		bracket.ErrInvalidTransition,
		bracket.ErrMatchNotReady,
		bracket.ErrNotMatchPlayer,
		bracket.ErrSubmitterCannotConfirm,
		bracket.ErrNotArbiter,
		bracket.ErrDeadlineNotReached,
		bracket.ErrInvalidScore,
		bracket.ErrDisputeReasonTooShort,
		bracket.ErrInvalidWinner,
		bracket.ErrMatchNotFound,
		bracket.ErrMatchNotCompleted,
		evidence.ErrInvalidURL,
	} {
		if errors.Is(err, target) {
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeError
}
