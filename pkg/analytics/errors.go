package analytics

import "errors"

var (
	ErrInvalidEvent  = errors.New("analytics: invalid event")
	ErrUnknownAction = errors.New("analytics: unknown action")
)
