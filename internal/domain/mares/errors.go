package mares

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("mare not found")
	ErrConflict     = errors.New("mare was modified concurrently")
	ErrStorage      = errors.New("storage error")
	ErrSchema       = errors.New("schema error")
)

// ValidationError indica qué campo falló. errors.Is(err, ErrInvalidInput) == true.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// StorageError envuelve fallos del motor (conexión, timeout, constraint).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// SchemaError se devuelve cuando no se puede crear o verificar la relación mares.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err == nil {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %v", e.Reason, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
