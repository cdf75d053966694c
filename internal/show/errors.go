package show

import "errors"

// Typed failures surfaced to callers. Gateway failures never reach this
// level; they are absorbed into fallback content at the generator boundary.
var (
	// ErrConflict: duplicate start, or a transition that lost the race.
	ErrConflict = errors.New("conflict")
	// ErrNotFound: unknown show id, or no live show for the operation.
	ErrNotFound = errors.New("not found")
	// ErrValidation: malformed input, e.g. non-positive duration.
	ErrValidation = errors.New("validation")
)
