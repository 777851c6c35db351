// Package apperr defines the error taxonomy shared by the stores, the
// maintenance service and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports missing or malformed input fields.
// Fields maps the JSON field name to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a tripped referential guard or a uniqueness
// violation. Count is the number of records blocking the operation.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
	Count  int64
}

func (e *ConflictError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s %q conflict: %s", e.Entity, e.ID, e.Reason)
}

// ConnectivityError reports that a backend could not be reached. It is the
// only error class that triggers failover.
type ConnectivityError struct {
	Backend string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s backend unreachable: %v", e.Backend, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Unreachable wraps err as a ConnectivityError for backend.
func Unreachable(backend string, err error) *ConnectivityError {
	return &ConnectivityError{Backend: backend, Err: err}
}

// UnexpectedError wraps any failure outside the other classes.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string { return "unexpected failure: " + e.Err.Error() }

func (e *UnexpectedError) Unwrap() error { return e.Err }

// Unexpected wraps err unless it already belongs to the taxonomy.
func Unexpected(err error) error {
	if err == nil {
		return nil
	}
	if Known(err) {
		return err
	}
	return &UnexpectedError{Err: err}
}

// CascadeError is a partial success: the request write committed but the
// follow-up equipment write did not.
type CascadeError struct {
	RequestID   string
	EquipmentID string
	Err         error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("request %q updated but scrapping equipment %q failed: %v", e.RequestID, e.EquipmentID, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// Known reports whether err is already one of the taxonomy types.
func Known(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		ne *ConnectivityError
		ue *UnexpectedError
		pe *CascadeError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ce) ||
		errors.As(err, &ne) || errors.As(err, &ue) || errors.As(err, &pe)
}

// Class tags an error as an environment failure or a domain failure.
type Class int

const (
	// ClassNone is returned for a nil error.
	ClassNone Class = iota
	// ClassEnvironment marks failures of the surroundings (unreachable
	// backend); the operation may succeed elsewhere.
	ClassEnvironment
	// ClassDomain marks failures that would repeat on any backend.
	ClassDomain
)

func (c Class) String() string {
	switch c {
	case ClassEnvironment:
		return "environment"
	case ClassDomain:
		return "domain"
	default:
		return "none"
	}
}

// Classify tags err for the failover dispatcher. Only ConnectivityError and
// a deadline that expired inside the backend call are environment failures.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var ne *ConnectivityError
	if errors.As(err, &ne) {
		return ClassEnvironment
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassEnvironment
	}
	return ClassDomain
}
