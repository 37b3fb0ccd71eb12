package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/generator"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	"github.com/jmoiron/sqlx"
)

// BracketService owns the generator registry and writes generated brackets.
type BracketService struct {
	tournaments *store.TournamentStore
	matches     *store.MatchStore
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu         sync.RWMutex
	generators []generator.Generator
}

// NewBracketService returns a service with an empty registry.
func NewBracketService(deps Deps) *BracketService {
	deps = deps.withDefaults()
	return &BracketService{
		tournaments: deps.Tournaments,
		matches:     deps.Matches,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// NewDefaultBracketService registers the formats the app ships with.
func NewDefaultBracketService(deps Deps) *BracketService {
	s := NewBracketService(deps)
	s.RegisterGenerator(generator.NewSingleElimination(nil))
	return s
}

// RegisterGenerator adds g to the registry. Generators are tried in the order
// they were registered.
func (s *BracketService) RegisterGenerator(g generator.Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generators = append(s.generators, g)
}

func (s *BracketService) Generators() []generator.Generator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]generator.Generator(nil), s.generators...)
}

// Select returns the first registered generator that supports the
// tournament.
func (s *BracketService) Select(t *bracket.Tournament, participantCount int) (generator.Generator, error) {
	for _, g := range s.Generators() {
		if g.Supports(t, participantCount) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%s tournament with %d participants: %w", t.Format, participantCount, bracket.ErrNoMatchingGenerator)
}

// GeneratorFor returns the generator that runs the bracket of a tournament
// already under way, the first registered one for its format.
func (s *BracketService) GeneratorFor(t *bracket.Tournament) (generator.Generator, error) {
	for _, g := range s.Generators() {
		if g.Format() == t.Format {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%s tournament: %w", t.Format, bracket.ErrNoMatchingGenerator)
}

// Generate builds the bracket and writes its matches and seeds inside tx. The
// caller owns the transaction, so a failure here rolls back with the
// tournament status change.
func (s *BracketService) Generate(ctx context.Context, tx *sqlx.Tx, t *bracket.Tournament, participants []bracket.Participant, now time.Time) (*generator.Bracket, error) {
	g, err := s.Select(t, len(participants))
	if err != nil {
		s.metrics.ObserveGeneration("none", metrics.OutcomeRejected)
		return nil, err
	}

	b, err := g.Generate(ctx, generator.GenerateParams{
		Tournament:   t,
		Participants: participants,
		Now:          now,
	})
	if err != nil {
		s.metrics.ObserveGeneration(g.Name(), metrics.OutcomeError)
		return nil, fmt.Errorf("failed to generate bracket: %w", err)
	}

	if err := s.matches.CreateMatches(ctx, tx, b.Matches); err != nil {
		s.metrics.ObserveGeneration(g.Name(), metrics.OutcomeError)
		return nil, fmt.Errorf("failed to save matches: %w", err)
	}
	if err := s.tournaments.ApplySeedsTx(ctx, tx, b.Seeds); err != nil {
		s.metrics.ObserveGeneration(g.Name(), metrics.OutcomeError)
		return nil, fmt.Errorf("failed to save seeds: %w", err)
	}

	s.metrics.ObserveGeneration(g.Name(), metrics.OutcomeOK)
	s.logger.InfoContext(ctx, "bracket generated",
		"tournament_id", t.ID,
		"generator", g.Name(),
		"participants", b.Result.ParticipantCount,
		"bracket_size", b.Result.BracketSize,
		"byes", b.Result.ByeCount,
		"matches", b.Result.MatchesCreated,
	)
	return b, nil
}
