package repositories

import (
	"errors"
	"fmt"

	"task-tracker/backend/internal/models"
)

var ErrNotFound = errors.New("task not found")

// DecodeError means a stored row violates the storage invariants. It carries
// the offending column and its raw text.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failure of the underlying database call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a StorageError unless it already carries one of the
// repository error kinds.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		decodeErr  *DecodeError
		storeErr   *StorageError
		invalidErr *models.ValidationError
	)
	if errors.Is(err, ErrNotFound) || errors.As(err, &decodeErr) ||
		errors.As(err, &storeErr) || errors.As(err, &invalidErr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
