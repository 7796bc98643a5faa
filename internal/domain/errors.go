package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so callers can map to HTTP status codes or chat replies
// without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
