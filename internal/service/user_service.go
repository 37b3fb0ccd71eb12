package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	users "github.com/AdamBeresnev/cue-bracket/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SuperUserID is the admin seeded by the first migration.
const SuperUserID = "00000000-0000-0000-0000-000000000001"

const defaultRating = 1500

type UserService struct {
	db    *sqlx.DB
	store *store.UserStore
	clock bracket.Clock
}

func NewUserService(db *sqlx.DB, deps Deps) *UserService {
	deps = deps.withDefaults()
	return &UserService{db: db, store: deps.Users, clock: deps.Clock}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.store.GetUser(ctx, id)
}

// FindOrCreatePlayer returns the user with this email, creating a player
// with the default rating the first time it is seen.
func (s *UserService) FindOrCreatePlayer(ctx context.Context, email, username string) (*users.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return nil, fmt.Errorf("email and username are required: %w", bracket.ErrInvalidSettings)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user = &users.User{
		ID:        uuid.New(),
		Email:     email,
		Username:  username,
		Role:      bracket.RolePlayer,
		Rating:    defaultRating,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureGuestUser returns the seeded admin account used by the guest login.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	guestID := uuid.MustParse(SuperUserID)
	user, err := s.store.GetUser(ctx, guestID)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		guestUser := &users.User{
			ID:        guestID,
			Email:     "admin@cue-bracket.local",
			Username:  "Tournament Admin",
			Role:      bracket.RoleAdmin,
			Rating:    defaultRating,
			CreatedAt: s.clock.Now(),
		}
		err := s.store.CreateUser(ctx, guestUser)
		return guestUser, err
	}
	return nil, err
}

// SetRating changes a player's rating. It only affects tournaments they
// register for afterwards.
func (s *UserService) SetRating(ctx context.Context, actor bracket.Actor, userID uuid.UUID, rating int) error {
	if !actor.CanArbitrate() {
		return bracket.ErrNotArbiter
	}
	if rating < 0 {
		return fmt.Errorf("rating cannot be negative: %w", bracket.ErrInvalidSettings)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, notFound(err, bracket.ErrParticipantNotFound))
	}
	return s.store.UpdateUserRating(ctx, userID, rating)
}
