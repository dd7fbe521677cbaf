package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNoCapacity        = "no_capacity"
	ErrCodeUnknownConnection = "unknown_connection"
	ErrCodeRaceNotFound      = "race_not_found"
	ErrCodeRaceFinished      = "race_finished"
	ErrCodeBadRequest        = "bad_request"
)

var (
	// ErrNoCapacity is returned when the color pool is exhausted.
	ErrNoCapacity = errors.New("identity pool exhausted")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}
