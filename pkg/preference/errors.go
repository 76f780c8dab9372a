package preference

import "errors"

var (
	ErrInvalidPreference = errors.New("preference: invalid preference")
	ErrUnknownChannel    = errors.New("preference: unknown channel")
)
