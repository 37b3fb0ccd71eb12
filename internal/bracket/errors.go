package bracket

import "errors"

// Precondition errors. Nothing has been written when these are returned.
var (
	ErrInsufficientParticipants     = errors.New("not enough participants to generate a bracket")
	ErrTournamentNotInRegistration  = errors.New("tournament is not open for registration")
	ErrTournamentNotDraft           = errors.New("tournament is not a draft")
	ErrTournamentClosed             = errors.New("tournament is already completed or cancelled")
	ErrNoMatchingGenerator          = errors.New("no bracket generator supports this tournament")
	ErrUnsupportedFormat            = errors.New("unsupported tournament format")
	ErrParticipantAlreadyRegistered = errors.New("player is already registered for this tournament")
	ErrNotOrganizer                 = errors.New("actor may not manage this tournament")
)

// Invalid transition errors. The match is left untouched.
var (
	ErrInvalidTransition      = errors.New("match transition not allowed from the current status")
	ErrMatchNotReady          = errors.New("match does not have both players yet")
	ErrNotMatchPlayer         = errors.New("actor is not one of the match players")
	ErrSubmitterCannotConfirm = errors.New("only the opponent of the submitter can confirm or dispute")
	ErrNotArbiter             = errors.New("actor is not allowed to arbitrate matches")
	ErrDeadlineNotReached     = errors.New("match deadline has not passed yet")
)

// Validation errors.
var (
	ErrInvalidScore          = errors.New("scores must give exactly one player the race-to value")
	ErrDisputeReasonTooShort = errors.New("dispute reason must be at least 10 characters")
	ErrInvalidWinner         = errors.New("winner is not part of this match")
	ErrInvalidSettings       = errors.New("invalid tournament settings")
)

// Advancement errors.
var (
	ErrMatchNotCompleted = errors.New("match is not completed")
	ErrWrongNextMatch    = errors.New("next match does not match the advancement link")
	ErrSlotOccupied      = errors.New("next match slot is held by another participant")
)

var (
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")
)
