// Package errs defines the error categories shared across the das streaming
// core and a small dual-mode dispatcher for surfacing them.
//
// Every error the core returns is wrapped in a Category so callers can use
// errors.Is against the category sentinels (ErrIO, ErrSerial, ...) without
// caring about the exact failure. The dispatcher lets a caller choose
// between "return mode" (propagate, the core's default) and "exit on error"
// mode (log then terminate, used by simple batch tools built on top of the
// core) without the core itself ever calling os.Exit directly.
package errs

import (
	"errors"
	"fmt"
)

// Category identifies the broad kind of failure, mirroring the error
// classes the original das2C dispatcher distinguishes.
type Category int

const (
	// IO covers failures reading or writing the underlying byte source.
	IO Category = iota
	// Serial covers malformed stream framing or XML header syntax.
	Serial
	// Enc covers codec misconfiguration or decode/encode failure.
	Enc
	// Array covers DynArray shape or append failures.
	Array
	// Var covers Variable construction or evaluation failures.
	Var
	// Dim covers Dimension role or axis failures.
	Dim
	// Vec covers GeoVec frame/vector construction failures.
	Vec
	// Desc covers Descriptor/Property errors.
	Desc
	// Value covers Value conversion/parse failures.
	Value
	// Dataset covers Dataset shape mismatch or codec registry failures.
	Dataset
	// NotImp marks an unsupported-but-detected case.
	NotImp
	// OutOfMem covers allocation failures the core chooses to surface
	// rather than let panic.
	OutOfMem
)

func (c Category) String() string {
	switch c {
	case IO:
		return "IO"
	case Serial:
		return "Serial"
	case Enc:
		return "Enc"
	case Array:
		return "Array"
	case Var:
		return "Var"
	case Dim:
		return "Dim"
	case Vec:
		return "Vec"
	case Desc:
		return "Desc"
	case Value:
		return "Value"
	case Dataset:
		return "Dataset"
	case NotImp:
		return "NotImp"
	case OutOfMem:
		return "OutOfMem"
	default:
		return "Unknown"
	}
}

// Error is a category-tagged error. It supports errors.Is/As against both
// the Category sentinels below and any wrapped cause.
type Error struct {
	Cat   Category
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Cat, e.Msg, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Cat, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's category, so that
// errors.Is(err, errs.ErrSerial) works regardless of message text.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*sentinelError)
	if !ok {
		return false
	}

	return sentinel.cat == e.Cat
}

// New builds a category-tagged error with a formatted message.
func New(cat Category, format string, args ...any) *Error {
	return &Error{Cat: cat, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a category-tagged error that wraps cause.
func Wrap(cat Category, cause error, format string, args ...any) *Error {
	return &Error{Cat: cat, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

type sentinelError struct {
	cat Category
}

func (s *sentinelError) Error() string { return s.cat.String() }

// Sentinels usable with errors.Is(err, errs.ErrXxx).
var (
	ErrIO       = &sentinelError{IO}
	ErrSerial   = &sentinelError{Serial}
	ErrEnc      = &sentinelError{Enc}
	ErrArray    = &sentinelError{Array}
	ErrVar      = &sentinelError{Var}
	ErrDim      = &sentinelError{Dim}
	ErrVec      = &sentinelError{Vec}
	ErrDesc     = &sentinelError{Desc}
	ErrValue    = &sentinelError{Value}
	ErrDataset  = &sentinelError{Dataset}
	ErrNotImp   = &sentinelError{NotImp}
	ErrOutOfMem = &sentinelError{OutOfMem}
)

// CategoryOf extracts the Category of err, if it (or something it wraps)
// is an *Error. The second return is false for plain errors.
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Cat, true
	}

	return 0, false
}
