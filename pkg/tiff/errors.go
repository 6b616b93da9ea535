package tiff

import (
	"errors"
	"fmt"
)

// Kind classifies a writer failure
type Kind int

const (
	// KindUnknown is reported for errors that did not come from this package
	KindUnknown Kind = iota
	// KindConfiguration covers bad regions, tile sizes, indices and options.
	// Rejected before any mutation.
	KindConfiguration
	// KindCapacity is returned when narrow offsets would overflow
	KindCapacity
	// KindState covers unopened/closed sessions and incomplete directories
	KindState
	// KindIO wraps failures of the backing stream
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindCapacity:
		return "capacity error"
	case KindState:
		return "state error"
	case KindIO:
		return "i/o failure"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by the writer
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tiff: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("tiff: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels (ErrConfiguration, ErrCapacity, ...)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrCapacity      = &Error{Kind: KindCapacity}
	ErrState         = &Error{Kind: KindState}
	ErrIO            = &Error{Kind: KindIO}
)

// KindOf returns the Kind of err, KindUnknown if it is not a writer error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func configErr(op, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

func stateErr(op, format string, args ...any) error {
	return &Error{Kind: KindState, Op: op, Err: fmt.Errorf(format, args...)}
}

func capacityErr(op, format string, args ...any) error {
	return &Error{Kind: KindCapacity, Op: op, Err: fmt.Errorf(format, args...)}
}

func ioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindIO, Op: op, Err: err}
}
