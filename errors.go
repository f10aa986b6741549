package provisioner

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by gateways when the remote resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a create call reports that the resource already exists.
var ErrConflict = errors.New("already exists")

// ErrValidation marks caller errors: empty input lists, unknown permissions and the like.
var ErrValidation = errors.New("validation failed")

// RemoteError is a non-2xx response that is neither an idempotent absence nor a conflict.
type RemoteError struct {
	Service string
	Status  int
	Body    string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// IgnoreNotFound maps ErrNotFound to nil. Deletes use it so that an already absent
// resource counts as removed.
func IgnoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
