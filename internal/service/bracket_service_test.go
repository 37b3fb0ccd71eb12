package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/generator"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedGenerator supports everything and reports a fixed name.
type namedGenerator struct {
	*generator.SingleElimination
	name string
}

func (g namedGenerator) Name() string { return g.name }

func (g namedGenerator) Supports(*bracket.Tournament, int) bool { return true }

func TestBracketService_Select(t *testing.T) {
	env := newTestEnv(t)
	single := &bracket.Tournament{Format: bracket.SingleElimination, Status: bracket.TournamentRegistration}
	other := &bracket.Tournament{Format: "round_robin", Status: bracket.TournamentRegistration}

	t.Run("empty registry", func(t *testing.T) {
		s := NewBracketService(env.deps)
		_, err := s.Select(single, 8)
		assert.ErrorIs(t, err, bracket.ErrNoMatchingGenerator)
	})

	t.Run("default registry", func(t *testing.T) {
		s := NewDefaultBracketService(env.deps)
		require.Len(t, s.Generators(), 1)

		g, err := s.Select(single, 8)
		require.NoError(t, err)
		assert.Equal(t, generator.SingleEliminationName, g.Name())

		_, err = s.Select(other, 8)
		assert.ErrorIs(t, err, bracket.ErrNoMatchingGenerator)
		_, err = s.Select(single, 1)
		assert.ErrorIs(t, err, bracket.ErrNoMatchingGenerator)
	})

	t.Run("first match wins", func(t *testing.T) {
		s := NewBracketService(env.deps)
		s.RegisterGenerator(namedGenerator{generator.NewSingleElimination(nil), "first"})
		s.RegisterGenerator(namedGenerator{generator.NewSingleElimination(nil), "second"})

		g, err := s.Select(other, 8)
		require.NoError(t, err)
		assert.Equal(t, "first", g.Name())
	})
}

func TestBracketService_GeneratorFor(t *testing.T) {
	env := newTestEnv(t)
	s := NewDefaultBracketService(env.deps)

	active := &bracket.Tournament{Format: bracket.SingleElimination, Status: bracket.TournamentActive}
	g, err := s.GeneratorFor(active)
	require.NoError(t, err)
	assert.Equal(t, generator.SingleEliminationName, g.Name())

	_, err = s.GeneratorFor(&bracket.Tournament{Format: "round_robin", Status: bracket.TournamentActive})
	assert.ErrorIs(t, err, bracket.ErrNoMatchingGenerator)
}

func TestBracketService_Generate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament, _ := env.openTournament(t, CreateTournamentInput{}, 1500, 1600, 1700)
	require.Equal(t, bracket.TournamentRegistration, tournament.Status)

	participants, err := env.deps.Tournaments.GetParticipants(ctx, tournament.ID)
	require.NoError(t, err)

	tx, err := env.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	b, err := env.brackets.Generate(ctx, tx, tournament, participants, testNow)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 4, b.Result.BracketSize)
	assert.Equal(t, 1, b.Result.ByeCount)
	assert.Len(t, env.bracketOf(t, tournament.ID), b.Result.MatchesCreated)

	for _, p := range env.participantsByPlayer(t, tournament.ID) {
		assert.NotNil(t, p.Seed)
		assert.Equal(t, bracket.ParticipantActive, p.Status)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Generations.WithLabelValues(generator.SingleEliminationName, "ok")))
}
