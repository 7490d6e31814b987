package eserr

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/www-eee/elemstream/xmlutil"
)

// Class represents the error classification enumerate
type Class int

const (
	// ClassStructural indicates the underlying token cursor failed to
	// produce well-formed events. Fatal to the parse.
	ClassStructural Class = iota
	// ClassSchema indicates a schema construction or compilation
	// failure: an unknown or ambiguous element reference, or an
	// inconsistent target-container relationship. Never raised at
	// parse time.
	ClassSchema
	// ClassConversion indicates a user conversion function failed
	// while computing a target value. Fatal to the parse.
	ClassConversion
	// ClassException indicates an element declared as an exception
	// child was encountered while streaming. Recoverable: the record
	// sequence remains valid after the error is observed.
	ClassException
)

func (c Class) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassSchema:
		return "schema"
	case ClassConversion:
		return "conversion"
	case ClassException:
		return "exception"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ErrEndOfStream indicates the record sequence has ended normally.
// This is somewhat equivalent to io.EOF, in that it indicates no
// further records can be produced from the underlying document.
var ErrEndOfStream = errors.New("end of stream")

// Error represents an elemstream parse or schema error.
//
// Name and Path, when set, identify the element the error is
// attributed to and its ancestor chain, outermost first. Value
// carries the produced exception value for ClassException errors.
type Error struct {
	Class   Class
	Name    xml.Name
	Path    []xml.Name
	Message string
	Value   any
	Cause   error
}

func (e *Error) Error() string {
	s := e.Class.String() + " error"
	if e.Name.Local != "" {
		s += " at " + xmlutil.ElemString(e.Name)
	}
	if len(e.Path) > 0 {
		s += " path:" + pathString(e.Path)
	}
	if e.Message != "" {
		s += " " + e.Message
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error { return e.Cause }

func pathString(path []xml.Name) string {
	var s string
	for _, n := range path {
		s += "/" + n.Local
	}
	return s
}

// Structural returns a new structural (fatal read) error
func Structural(opts ...Option) *Error {
	e := &Error{Class: ClassStructural}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns a new schema construction error
func Schema(opts ...Option) *Error {
	e := &Error{Class: ClassSchema}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Conversion returns a new value-conversion error
func Conversion(opts ...Option) *Error {
	e := &Error{Class: ClassConversion}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exception returns a new recoverable exception-element error
func Exception(opts ...Option) *Error {
	e := &Error{Class: ClassException}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AsError returns err as an *Error if it is (or wraps) one
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsException reports whether err is a recoverable exception-element
// error, returning it when so. Callers iterating a record sequence
// should continue after observing one; any other error is terminal.
func IsException(err error) (*Error, bool) {
	if e, ok := AsError(err); ok && e.Class == ClassException {
		return e, true
	}
	return nil, false
}

// IsFatal reports whether err must terminate record iteration.
// ErrEndOfStream and nil are not fatal; neither are exception errors.
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, ErrEndOfStream) {
		return false
	}
	_, recoverable := IsException(err)
	return !recoverable
}
