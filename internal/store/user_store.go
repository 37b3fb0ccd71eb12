package store

import (
	"context"

	users "github.com/AdamBeresnev/cue-bracket/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery        = "SELECT * FROM users WHERE id = ?"
	getUserByEmailQuery = "SELECT * FROM users WHERE email = ?"
	createUserQuery     = `
		INSERT INTO users (id, email, username, role, rating, provider, provider_id, avatar_url, created_at) VALUES
		(:id, :email, :username, :role, :rating, :provider, :provider_id, :avatar_url, :created_at)
	`
	updateUserRatingQuery = "UPDATE users SET rating = ? WHERE id = ?"
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := tx.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserByEmailQuery, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

func (s *UserStore) UpdateUserRating(ctx context.Context, id uuid.UUID, rating int) error {
	_, err := s.db.ExecContext(ctx, updateUserRatingQuery, rating, id)
	return err
}
