// Package errs defines the failure taxonomy shared by services and handlers.
// Services wrap these sentinels with context via fmt.Errorf and %w; handlers
// map them onto HTTP status codes. Anything that does not match a sentinel is
// treated as an internal failure.
package errs

import "errors"

var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness or business-rule violation, such as a
	// duplicate submission or an overlapping movie-night schedule.
	ErrConflict = errors.New("conflict")

	// ErrForbidden means a privileged operation was attempted without an
	// admin identity.
	ErrForbidden = errors.New("forbidden")
)

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
