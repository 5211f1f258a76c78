package refbook

import (
	"errors"
	"fmt"
)

// ErrNotFound is the storage-level sentinel: the row simply is not there.
// The service refines it into one of the typed kinds below, which carry the
// user-facing message verbatim (clients match on these exact strings).
var ErrNotFound = errors.New("not found")

// ErrMissingParameters is returned by CheckElement when code or value is
// empty. It is a client-input error, raised before any storage access.
var ErrMissingParameters = errors.New("Missing required parameters: code or/and value.")

// RefbookNotFoundError: no refbook with the requested id.
type RefbookNotFoundError struct {
	ID int64
}

func (e *RefbookNotFoundError) Error() string {
	return fmt.Sprintf("Refbook with ID '%d' not found.", e.ID)
}

// VersionNotFoundError: an explicit version label was requested and no
// version of the refbook carries it.
type VersionNotFoundError struct {
	RefbookID int64
	Label     string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("Version '%s' not found for the given refbook.", e.Label)
}

// NoEffectiveVersionError: no selector was given and no version is effective
// as of the reference date. The zero-versions case deliberately produces the
// same kind and message; downstream clients depend on that merge.
type NoEffectiveVersionError struct {
	RefbookID int64
}

func (e *NoEffectiveVersionError) Error() string {
	return fmt.Sprintf("No valid version found for the refbook ID '%d'.", e.RefbookID)
}

// IsNotFound reports whether err is any of the 404-class kinds.
func IsNotFound(err error) bool {
	var rb *RefbookNotFoundError
	var vn *VersionNotFoundError
	var ne *NoEffectiveVersionError
	return errors.As(err, &rb) || errors.As(err, &vn) || errors.As(err, &ne)
}
