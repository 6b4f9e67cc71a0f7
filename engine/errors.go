package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the record (or its blob) does not exist.
var ErrNotFound = errors.New("media not found")

// ErrForbidden indicates the caller is not allowed to touch the record.
// The HTTP layer presents it exactly like ErrNotFound so probing for
// private media reveals nothing.
var ErrForbidden = errors.New("access denied")

// ErrInconsistent indicates the catalog and the blob store disagree: a
// record outlived its blob or the other way around. Surfaced so the
// condition can be reconciled, never silently repaired on a read path.
var ErrInconsistent = errors.New("catalog and blob store disagree")

// ValidationError reports bad or missing user input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
