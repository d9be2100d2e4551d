package backend

import "errors"

var (
	// ErrNotReady means the handle has not finished initializing.
	ErrNotReady = errors.New("backend not ready")

	// ErrUnauthenticated means no session or an unusable one.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrPermissionDenied means a row policy rejected the operation.
	ErrPermissionDenied = errors.New("permission denied by row policy")

	// ErrNotFound means the addressed row or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means the backend could not be reached in time.
	ErrUnavailable = errors.New("backend unavailable")
)
