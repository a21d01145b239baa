package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key collision.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInUse indicates the record is still referenced by other rows.
	ErrInUse = errors.New("still referenced")
	// ErrConflict indicates the operation does not fit the current record state.
	ErrConflict = errors.New("conflict")
	// ErrValidation wraps request validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates the request carries no authenticated actor.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the actor lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
