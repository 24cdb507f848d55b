package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPersistence  = errors.New("persistence failure")
	ErrUnknownEvent = errors.New("unknown tracker event")
	ErrInvalidEvent = errors.New("invalid tracker event")
)

// PersistenceError is the only error a TrackerRepository returns. It keeps
// the storage error as its cause.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrPersistence, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
