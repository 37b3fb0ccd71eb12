// Package notify delivers bracket events to whoever is listening. Services
// dispatch after their transaction commits, so a listener never sees a change
// that was rolled back.
package notify

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, events ...bracket.Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Dispatch(context.Context, ...bracket.Event) {}

type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, events ...bracket.Event) {
	for _, ev := range events {
		attrs := []any{
			"type", ev.Type,
			"tournament_id", ev.TournamentID,
			"actor_id", ev.ActorID,
		}
		if ev.MatchID != nil {
			attrs = append(attrs, "match_id", *ev.MatchID)
		}
		if ev.WinnerID != nil {
			attrs = append(attrs, "winner_id", *ev.WinnerID)
		}
		d.logger.InfoContext(ctx, "bracket event", attrs...)
	}
}

// Multi fans events out to several dispatchers in order.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, events ...bracket.Event) {
	if len(events) == 0 {
		return
	}
	for _, d := range m {
		d.Dispatch(ctx, events...)
	}
}
