package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by implementations when the referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// NetworkError wraps any failed gateway call. It is shown to the user as a single
// replaceable message and is never retried automatically.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return e.Op + ": request failed"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Wrap turns err into a *NetworkError for op. nil stays nil and an existing
// NetworkError is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
