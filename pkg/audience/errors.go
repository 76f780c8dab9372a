package audience

import "errors"

var (
	ErrInvalidDescriptor = errors.New("audience: invalid descriptor")
	ErrUnknownKind       = errors.New("audience: unknown descriptor kind")
)
