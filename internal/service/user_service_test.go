package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreatePlayer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.FindOrCreatePlayer(ctx, " Ronnie@Example.com ", "Ronnie")
	require.NoError(t, err)
	assert.Equal(t, "ronnie@example.com", u.Email)
	assert.Equal(t, bracket.RolePlayer, u.Role)
	assert.Equal(t, defaultRating, u.Rating)

	again, err := env.users.FindOrCreatePlayer(ctx, "ronnie@example.com", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Ronnie", again.Username)

	_, err = env.users.FindOrCreatePlayer(ctx, "", "nobody")
	assert.ErrorIs(t, err, bracket.ErrInvalidSettings)
}

func TestEnsureGuestUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	guest, err := env.users.EnsureGuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(SuperUserID), guest.ID)
	assert.True(t, guest.Actor().CanArbitrate())

	again, err := env.users.EnsureGuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, again.ID)
}

func TestSetRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.player(t, 1500)

	assert.ErrorIs(t, env.users.SetRating(ctx, u.Actor(), u.ID, 2400), bracket.ErrNotArbiter)
	assert.ErrorIs(t, env.users.SetRating(ctx, admin, u.ID, -1), bracket.ErrInvalidSettings)
	assert.ErrorIs(t, env.users.SetRating(ctx, admin, uuid.New(), 1600), bracket.ErrParticipantNotFound)

	require.NoError(t, env.users.SetRating(ctx, admin, u.ID, 1720))
	stored, err := env.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1720, stored.Rating)
}

func TestSetRating_OnlyAffectsNewRegistrations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tournament, players := env.openTournament(t, CreateTournamentInput{}, 1500)

	require.NoError(t, env.users.SetRating(ctx, admin, players[0].ID, 2100))

	p := env.participantsByPlayer(t, tournament.ID)[players[0].ID]
	assert.Equal(t, 1500, p.Rating)
}
