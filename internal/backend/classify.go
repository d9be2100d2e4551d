package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Phrases that indicate a row-policy rejection when the transport does not
// give us a usable status code. Mirrors what the hosted backend actually
// puts in its error messages.
var permissionPhrases = []string{
	"permission denied",
	"row-level security",
	"row level security",
	"rls",
	"policy",
	"insufficient_privilege",
	"jwt",
}

// Classify maps a transport status code and error text onto the package's
// sentinel errors. Unrecognized failures come back wrapped as transient so
// callers can still inspect the detail.
func Classify(status int, message string) error {
	switch status {
	case 401, 403:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, message)
	case 404, 406:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	}
	lower := strings.ToLower(message)
	for _, p := range permissionPhrases {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, message)
		}
	}
	return fmt.Errorf("backend error (status %d): %s", status, message)
}

// IsPermissionDenied reports whether err is a row-policy rejection.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// Stringify renders err for inline display without ever panicking, even for
// misbehaving error implementations.
func Stringify(err error) (s string) {
	defer func() {
		if recover() != nil {
			s = "unknown error"
		}
	}()
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
