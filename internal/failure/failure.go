package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a render failure.
type Kind int

const (
	Input Kind = iota + 1
	Fetch
	Decode
	Encode
	Publish
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Fetch:
		return "fetch"
	case Decode:
		return "decode"
	case Encode:
		return "encode"
	case Publish:
		return "publish"
	default:
		return "unknown"
	}
}

// Error carries the failure kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the failure must abort the render.
// Only publishing is allowed to fail without invalidating the output file.
func (e *Error) Fatal() bool { return e.Kind != Publish }

// New wraps err with kind and op. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an error of the given kind from a format string.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether any error in err's chain is a failure of kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// IsFatal reports whether err should abort the render. Errors that are not
// classified are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fatal()
	}
	return true
}
