package model

import (
	"errors"
)

// Common persistence error types
var (
	// ErrNotPersisted is returned when an association mutation requires an
	// object id that has not been assigned yet
	ErrNotPersisted = errors.New("object is not persisted")

	// ErrObjectNotFound is returned when a fetch or delete targets an id
	// absent from the primary store
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectDeleted is returned when an operation is attempted on a
	// deleted object handle
	ErrObjectDeleted = errors.New("object is deleted")

	// ErrPersistFailure is returned when the primary-store write was
	// rejected; lifecycle state does not advance
	ErrPersistFailure = errors.New("primary store write failed")

	// ErrIndexFailure is returned when an index write, delete, or commit
	// failed. The primary operation still succeeded; the index now lags the
	// store until repaired.
	ErrIndexFailure = errors.New("index update failed")

	// ErrRepairIncomplete is returned when one or more dependents could not
	// be repaired during a cascading delete. The delete itself completed.
	ErrRepairIncomplete = errors.New("cascade repair incomplete")

	// ErrUnknownAssociation is returned when no reflection is declared under
	// the requested name
	ErrUnknownAssociation = errors.New("unknown association")

	// ErrMacroMismatch is returned when an operation is invalid for the
	// association's declared shape
	ErrMacroMismatch = errors.New("operation not supported by association macro")

	// ErrTypeMismatch is returned when an association target's model does
	// not match the reflection's declared class
	ErrTypeMismatch = errors.New("association target has wrong type")
)

// IsNotFound returns true if the error is ErrObjectNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsNotPersisted returns true if the error is ErrNotPersisted
func IsNotPersisted(err error) bool {
	return errors.Is(err, ErrNotPersisted)
}

// IsIndexFailure returns true if the error is ErrIndexFailure
func IsIndexFailure(err error) bool {
	return errors.Is(err, ErrIndexFailure)
}

// IsRepairIncomplete returns true if the error is ErrRepairIncomplete
func IsRepairIncomplete(err error) bool {
	return errors.Is(err, ErrRepairIncomplete)
}
