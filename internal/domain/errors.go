package domain

import "errors"

var (
	// ErrInvalidTeamName is returned when a raw team name fails the length check.
	ErrInvalidTeamName = errors.New("team name must be at least 3 characters")
	// ErrAlreadySubmitted is returned when a team already has a durable submission.
	ErrAlreadySubmitted = errors.New("team has already submitted")
	// ErrActiveElsewhere is returned when a team is live under another connection.
	ErrActiveElsewhere = errors.New("team is active in another window")
	// ErrInvalidConfig indicates the loaded question config failed structural validation.
	ErrInvalidConfig = errors.New("invalid question config")
	// ErrConfigUnavailable indicates no usable question config is loaded.
	ErrConfigUnavailable = errors.New("question config unavailable")
	// ErrStoreUnavailable indicates the submission store could not be reached.
	ErrStoreUnavailable = errors.New("submission store unavailable")
)
