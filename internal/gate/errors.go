package gate

import "errors"

// Sentinel errors returned by the gate package.
var (
	ErrForbidden           = errors.New("forbidden")
	ErrMalformedPermission = errors.New("malformed permission")
)
