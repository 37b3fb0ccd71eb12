package generator

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registeredBase = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func makeParticipants(ratings ...int) []bracket.Participant {
	participants := make([]bracket.Participant, len(ratings))
	for i, rating := range ratings {
		participants[i] = bracket.Participant{
			ID:           uuid.New(),
			PlayerID:     uuid.New(),
			Rating:       rating,
			Status:       bracket.ParticipantRegistered,
			RegisteredAt: registeredBase.Add(time.Duration(i) * time.Minute),
		}
	}
	return participants
}

func TestRatingSeeder(t *testing.T) {
	participants := makeParticipants(1400, 2000, 1200, 1800, 1600)

	seeds, err := RatingSeeder{}.Seed(participants)
	require.NoError(t, err)
	require.Len(t, seeds, 5)

	expected := []int{2000, 1800, 1600, 1400, 1200}
	for i, s := range seeds {
		assert.Equal(t, i+1, s.Seed)
		assert.Equal(t, expected[i], s.Rating)
	}
}

func TestRatingSeederTieBreak(t *testing.T) {
	participants := makeParticipants(1500, 1500, 1500)
	// same registration time for the last two, so the id decides
	participants[2].RegisteredAt = participants[1].RegisteredAt

	seeds, err := RatingSeeder{}.Seed(participants)
	require.NoError(t, err)
	assert.Equal(t, participants[0].ID, seeds[0].ParticipantID)

	low, high := participants[1].ID, participants[2].ID
	if high.String() < low.String() {
		low, high = high, low
	}
	assert.Equal(t, low, seeds[1].ParticipantID)
	assert.Equal(t, high, seeds[2].ParticipantID)

	// input order does not matter
	reversed := []bracket.Participant{participants[2], participants[1], participants[0]}
	again, err := RatingSeeder{}.Seed(reversed)
	require.NoError(t, err)
	assert.Equal(t, seeds, again)
}

func TestSeederInsufficientParticipants(t *testing.T) {
	seeders := map[string]Seeder{
		"rating": RatingSeeder{},
		"random": RandomSeeder{Rand: rand.New(rand.NewPCG(1, 2))},
		"manual": ManualSeeder{},
	}
	for name, s := range seeders {
		t.Run(name, func(t *testing.T) {
			_, err := s.Seed(makeParticipants(1500))
			assert.ErrorIs(t, err, bracket.ErrInsufficientParticipants)
		})
	}
}

func TestRandomSeederIsReproducible(t *testing.T) {
	participants := makeParticipants(1000, 1100, 1200, 1300, 1400, 1500, 1600, 1700)

	first, err := RandomSeeder{Rand: rand.New(rand.NewPCG(42, 7))}.Seed(participants)
	require.NoError(t, err)
	second, err := RandomSeeder{Rand: rand.New(rand.NewPCG(42, 7))}.Seed(participants)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i, s := range first {
		assert.Equal(t, i+1, s.Seed)
	}
}

func TestManualSeeder(t *testing.T) {
	participants := makeParticipants(2000, 1900, 1800, 1700)
	participants[3].ManualSeed = utils.Ptr(1)
	participants[2].ManualSeed = utils.Ptr(5)

	seeds, err := ManualSeeder{}.Seed(participants)
	require.NoError(t, err)

	got := make([]uuid.UUID, len(seeds))
	for i, s := range seeds {
		got[i] = s.ParticipantID
		assert.Equal(t, i+1, s.Seed)
	}
	assert.Equal(t, []uuid.UUID{
		participants[3].ID,
		participants[2].ID,
		participants[0].ID,
		participants[1].ID,
	}, got)
}
