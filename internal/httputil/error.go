package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/evidence"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}

func Forbidden(w http.ResponseWriter, msg string, err error) {
	slog.Warn("forbidden", "message", msg, "error", err)
	http.Error(w, msg, http.StatusForbidden)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	http.Error(w, msg, http.StatusConflict)
}

var (
	notFoundErrors = []error{
		bracket.ErrTournamentNotFound,
		bracket.ErrMatchNotFound,
		bracket.ErrParticipantNotFound,
	}
	forbiddenErrors = []error{
		bracket.ErrNotOrganizer,
		bracket.ErrNotArbiter,
		bracket.ErrNotMatchPlayer,
		bracket.ErrSubmitterCannotConfirm,
	}
	badRequestErrors = []error{
		bracket.ErrInvalidScore,
		bracket.ErrDisputeReasonTooShort,
		bracket.ErrInvalidWinner,
		bracket.ErrInvalidSettings,
		bracket.ErrUnsupportedFormat,
		evidence.ErrInvalidURL,
	}
	conflictErrors = []error{
		bracket.ErrInsufficientParticipants,
		bracket.ErrTournamentNotInRegistration,
		bracket.ErrTournamentNotDraft,
		bracket.ErrTournamentClosed,
		bracket.ErrNoMatchingGenerator,
		bracket.ErrParticipantAlreadyRegistered,
		bracket.ErrInvalidTransition,
		bracket.ErrMatchNotReady,
		bracket.ErrDeadlineNotReached,
		bracket.ErrMatchNotCompleted,
		bracket.ErrSlotOccupied,
	}
)

// WriteError maps a service error to a status code. The domain message is
// shown to the user, anything unknown is logged and hidden.
func WriteError(w http.ResponseWriter, msg string, err error) {
	switch {
	case isAny(err, notFoundErrors):
		NotFound(w, err.Error(), err)
	case isAny(err, forbiddenErrors):
		Forbidden(w, err.Error(), err)
	case isAny(err, badRequestErrors):
		BadRequest(w, err.Error(), err)
	case isAny(err, conflictErrors):
		Conflict(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
