package models

import "errors"

// Application-wide standard errors
var (
	// Resource errors
	ErrNotFound     = errors.New("resource not found")
	ErrNoCredential = errors.New("no completion API credential stored")

	// Session errors
	ErrSessionInvalid = errors.New("session token is invalid")
	ErrSessionExpired = errors.New("session token has expired")

	// Turn lifecycle errors
	ErrChoiceOutOfRange = errors.New("choice index out of range")
	ErrTurnInProgress   = errors.New("a turn is already in progress for this player")
	ErrNothingToRetry   = errors.New("no previous action to retry")
	ErrNoActiveStory    = errors.New("no active story")

	// Completion API errors
	ErrCompletionFailed = errors.New("completion request failed")
	ErrMalformedReply   = errors.New("malformed completion reply")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
)
