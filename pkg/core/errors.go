package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnsupportedEntityType = errors.New("entity type not supported")
	ErrPayloadMalformed      = errors.New("stored aspect payload is malformed")
	ErrAspectNotFound        = errors.New("aspect version not found")
	ErrStore                 = errors.New("aspect store failure")
	ErrUnknownDiffer         = errors.New("unknown differ")
	ErrInvalidConfig         = errors.New("invalid timeline configuration")
	ErrReadOnly              = errors.New("store is in read-only mode")
)

// DiffError is the failure result of a differ invocation.
// Kind names the failure class and ends up in the EXCEPTIONAL change event.
type DiffError struct {
	Kind    string
	Message string
	Err     error
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Message)
}

func (e *DiffError) Unwrap() error {
	return e.Err
}

// asDiffError converts any error returned by a differ into a DiffError.
func asDiffError(err error) *DiffError {
	var de *DiffError
	if errors.As(err, &de) {
		return de
	}
	return &DiffError{Kind: fmt.Sprintf("%T", err), Message: err.Error(), Err: err}
}
