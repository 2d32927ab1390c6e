package session

import "errors"

var (
	// ErrSessionNotFound reports an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrContentNotFound reports that the content id has no transcript.
	ErrContentNotFound = errors.New("content not found")
	// ErrInvalidRequest reports a malformed session request.
	ErrInvalidRequest = errors.New("invalid request")
)
