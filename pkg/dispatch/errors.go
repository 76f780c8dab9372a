package dispatch

import "errors"

var (
	ErrInvalidRequest = errors.New("dispatch: invalid notification request")
	ErrNotFound       = errors.New("dispatch: scheduled notification not found")
	ErrNotPending     = errors.New("dispatch: scheduled notification is no longer pending")
	ErrInFlight       = errors.New("dispatch: scheduled notification is being processed")
	ErrScanInProgress = errors.New("dispatch: scan already in progress")
	ErrLockHeld       = errors.New("dispatch: lock held by another process")

	ErrMissingDependency = errors.New("dispatch: missing engine dependency")
)
