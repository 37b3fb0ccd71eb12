package users

import (
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

type User struct {
	ID         uuid.UUID    `db:"id"`
	Email      string       `db:"email"`
	Username   string       `db:"username"`
	Role       bracket.Role `db:"role"`
	Rating     int          `db:"rating"`
	CreatedAt  time.Time    `db:"created_at"`
	Provider   *string      `db:"provider"`
	ProviderID *string      `db:"provider_id"`
	AvatarURL  *string      `db:"avatar_url"`
}

// Actor is the identity the bracket engine sees for this user.
func (u *User) Actor() bracket.Actor {
	role := u.Role
	if role == "" {
		role = bracket.RolePlayer
	}
	return bracket.Actor{UserID: u.ID, Role: role}
}
