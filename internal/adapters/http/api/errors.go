package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnknownInput  = errors.New("unknown input type")
	ErrSyncFailed    = errors.New("sync failed")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrInternal      = errors.New("internal error")
)

// Error tags an operation failure with a sentinel kind. Both the kind and
// the cause are visible to errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err, raised by op, with kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err, raised by op, as an internal error.
func Wrap(op string, err error) error {
	return WrapKind(op, ErrInternal, err)
}
