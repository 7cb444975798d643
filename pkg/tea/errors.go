package tea

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound is returned when no tea carries the requested id so HTTP handlers can respond with 404.
var ErrNotFound = errors.New("tea not found")

var (
	errBusy   = errors.New("tea queue is busy")
	errClosed = errors.New("tea service is closed")
)

// InvalidIDError reports an id that is not an integer.
// It matches ErrNotFound under errors.Is, callers that care about the difference use errors.As.
type InvalidIDError struct {
	Raw string
	Err error
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid tea id %q: %v", e.Raw, e.Err)
}

func (e *InvalidIDError) Unwrap() []error {
	return []error{ErrNotFound, e.Err}
}

// ParseID turns a path segment into a tea id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &InvalidIDError{Raw: raw, Err: err}
	}
	return id, nil
}
