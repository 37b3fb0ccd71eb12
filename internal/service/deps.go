package service

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/notify"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
)

// Deps are the collaborators shared by the services. Only the stores are
// required.
type Deps struct {
	Tournaments *store.TournamentStore
	Matches     *store.MatchStore
	Users       *store.UserStore

	Dispatcher notify.Dispatcher
	Metrics    *metrics.Metrics
	Clock      bracket.Clock
	Logger     *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Dispatcher == nil {
		d.Dispatcher = notify.Nop{}
	}
	if d.Clock == nil {
		d.Clock = bracket.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// notFound maps a missing row to the given domain error.
func notFound(err error, target error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return err
}
