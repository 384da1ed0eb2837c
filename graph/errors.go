package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingReference matches every *MissingReferenceError via errors.Is.
	ErrMissingReference = errors.New("missing reference")
	ErrInvalidStatus    = errors.New("invalid message status")
)

// MissingReferenceError is returned when an operation refers to an entity
// that does not exist in the graph.
type MissingReferenceError struct {
	Entity string // entity being built or linked, e.g. "message"
	Field  string // the reference that failed, e.g. "sender"
	Kind   Kind   // kind of the referenced entity
	ID     int64
}

func (e *MissingReferenceError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s: missing %s", e.Entity, e.Field)
	}
	return fmt.Sprintf("%s: %s %d not found", e.Entity, e.Field, e.ID)
}

func (e *MissingReferenceError) Is(target error) bool {
	return target == ErrMissingReference
}

func missing(entity, field string, kind Kind, id int64) error {
	return &MissingReferenceError{Entity: entity, Field: field, Kind: kind, ID: id}
}
