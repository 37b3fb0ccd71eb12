package generator

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
)

type Seeder interface {
	Seed(participants []bracket.Participant) ([]bracket.SeedAssignment, error)
}

// RatingSeeder orders by rating, highest first. Equal ratings fall back to
// registration time and then participant id so the same input always gives
// the same seeds.
type RatingSeeder struct{}

func (RatingSeeder) Seed(participants []bracket.Participant) ([]bracket.SeedAssignment, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("rating seeder: %w", bracket.ErrInsufficientParticipants)
	}

	ordered := slices.Clone(participants)
	slices.SortStableFunc(ordered, compareByRating)
	return assignSeeds(ordered), nil
}

func compareByRating(a, b bracket.Participant) int {
	if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
		return c
	}
	if c := a.RegisteredAt.Compare(b.RegisteredAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// RandomSeeder draws the seed order from Rand. A fixed source gives a
// reproducible draw.
type RandomSeeder struct {
	Rand *rand.Rand
}

func (s RandomSeeder) Seed(participants []bracket.Participant) ([]bracket.SeedAssignment, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("random seeder: %w", bracket.ErrInsufficientParticipants)
	}

	// Start from the rating order so the shuffle input does not depend on
	// how the caller loaded the rows
	ordered := slices.Clone(participants)
	slices.SortStableFunc(ordered, compareByRating)

	r := s.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	return assignSeeds(ordered), nil
}

// ManualSeeder places participants with a ManualSeed first, in ManualSeed
// order, followed by everyone else in rating order.
type ManualSeeder struct{}

func (ManualSeeder) Seed(participants []bracket.Participant) ([]bracket.SeedAssignment, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("manual seeder: %w", bracket.ErrInsufficientParticipants)
	}

	var seeded, unseeded []bracket.Participant
	for _, p := range participants {
		if p.ManualSeed != nil {
			seeded = append(seeded, p)
		} else {
			unseeded = append(unseeded, p)
		}
	}

	slices.SortStableFunc(seeded, func(a, b bracket.Participant) int {
		if c := cmp.Compare(*a.ManualSeed, *b.ManualSeed); c != 0 {
			return c
		}
		return compareByRating(a, b)
	})
	slices.SortStableFunc(unseeded, compareByRating)

	return assignSeeds(append(seeded, unseeded...)), nil
}

func assignSeeds(ordered []bracket.Participant) []bracket.SeedAssignment {
	seeds := make([]bracket.SeedAssignment, len(ordered))
	for i, p := range ordered {
		seeds[i] = bracket.SeedAssignment{
			ParticipantID: p.ID,
			Seed:          i + 1,
			Rating:        p.Rating,
		}
	}
	return seeds
}
