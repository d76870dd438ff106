package gate

import (
	"errors"
	"fmt"
)

// ErrUnequal is matched by every error reporting that the compared images differ.
var ErrUnequal = errors.New("images are not equal")

// DiffPersistedError reports that the images differ and the diff mask was
// written to Path.
type DiffPersistedError struct {
	Path          string
	ChangedPixels int64
	DiffAmount    float64
}

func (e *DiffPersistedError) Error() string {
	return fmt.Sprintf("%s: %d pixels (%.2f%%) differ, diff written to %s", ErrUnequal, e.ChangedPixels, e.DiffAmount*100, e.Path)
}

func (e *DiffPersistedError) Is(target error) bool {
	return target == ErrUnequal
}

// DiffPersistFailedError reports that the images differ and the diff mask
// could not be written.
type DiffPersistFailedError struct {
	Key string
	Err error
}

func (e *DiffPersistFailedError) Error() string {
	return fmt.Sprintf("%s: failed to write diff to %s: %s", ErrUnequal, e.Key, e.Err)
}

func (e *DiffPersistFailedError) Is(target error) bool {
	return target == ErrUnequal
}

func (e *DiffPersistFailedError) Unwrap() error {
	return e.Err
}
