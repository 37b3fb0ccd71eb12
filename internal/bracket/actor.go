package bracket

import "github.com/google/uuid"

type Role string

const (
	RolePlayer  Role = "player"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// Actor is an already authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// CanArbitrate reports whether the actor may resolve disputes and perform
// administrative match changes.
func (a Actor) CanArbitrate() bool {
	return a.Role == RoleAdmin || a.Role == RoleSupport
}

// System is the actor used by background sweeps.
var System = Actor{UserID: uuid.Nil, Role: RoleAdmin}
