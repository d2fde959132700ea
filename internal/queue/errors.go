package queue

import "errors"

// ErrJobNotFound indicates an operation referenced a job id with no row.
// Read paths return (nil, nil) for missing jobs; mutation paths return this
// sentinel so callers can surface a NotFound condition.
var ErrJobNotFound = errors.New("job not found")

// ErrAccountNotFound indicates a token update referenced an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// ErrInvalidTransition indicates an attempted status change that would move a
// job backward or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")
