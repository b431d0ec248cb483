package progress

import "errors"

var (
	// ErrInvalidTransition is returned when a response is attempted on a
	// participant whose status is no longer pending.
	ErrInvalidTransition = errors.New("invalid participant transition")

	// ErrNotActiveParticipant is returned when progress is submitted by a
	// participant whose status is not active.
	ErrNotActiveParticipant = errors.New("participant is not active")

	// ErrInvalidDistance is returned for non-positive or non-finite distances.
	ErrInvalidDistance = errors.New("distance must be a positive finite number")

	// ErrNoWinner is returned when the challenge has not reached its end
	// date or no participant has logged any progress.
	ErrNoWinner = errors.New("no winner")
)
