package views

import (
	"context"

	"github.com/AdamBeresnev/cue-bracket/internal/middleware"
	users "github.com/AdamBeresnev/cue-bracket/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}
