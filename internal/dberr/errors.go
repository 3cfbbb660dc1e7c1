// Package dberr defines the error taxonomy shared by the schema,
// conversion, class map and lifecycle layers.
//
// Every failure surfaced to callers is one of the typed errors below. Each
// type answers errors.Is against its sentinel, so callers can branch on the
// category without caring about the concrete fields:
//
//	if errors.Is(err, dberr.ErrNotFound) { ... }
//
// Native engine errors that this module does not translate are passed
// through unchanged.
package dberr

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching.
var (
	ErrSchema       = errors.New("schema error")
	ErrType         = errors.New("type error")
	ErrReference    = errors.New("reference error")
	ErrNotFound     = errors.New("not found")
	ErrState        = errors.New("state error")
	ErrNotSupported = errors.New("not supported")
	ErrRange        = errors.New("index out of range")
)

// SchemaError reports a malformed or ambiguous schema, or an operation the
// schema does not allow (such as a primary key lookup on a class without one).
type SchemaError struct {
	Class    string
	Property string
	Message  string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Class != "" && e.Property != "":
		return fmt.Sprintf("schema error: %s.%s: %s", e.Class, e.Property, e.Message)
	case e.Class != "":
		return fmt.Sprintf("schema error: %s: %s", e.Class, e.Message)
	default:
		return fmt.Sprintf("schema error: %s", e.Message)
	}
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// TypeError reports a value that does not match a property's declared type
// or nullability.
type TypeError struct {
	Class    string
	Property string
	Expected string
	Got      string
}

func (e *TypeError) Error() string {
	where := e.Property
	if e.Class != "" && e.Property != "" {
		where = e.Class + "." + e.Property
	}
	if where == "" {
		return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Got)
	}
	return fmt.Sprintf("type error: %s: expected %s, got %s", where, e.Expected, e.Got)
}

func (e *TypeError) Is(target error) bool { return target == ErrType }

// ReferenceError reports an unknown class identity or property name.
type ReferenceError struct {
	Class    string
	Property string
}

func (e *ReferenceError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("reference error: %s has no property %q", e.Class, e.Property)
	}
	return fmt.Sprintf("reference error: no class named %q in schema", e.Class)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrReference }

// NotFoundError reports a primary key lookup miss.
type NotFoundError struct {
	Class string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s object with primary key %s", e.Class, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateError reports an operation attempted on a closed handle, outside a
// write transaction, inside one when none may be open, or on a stale wrapper.
type StateError struct {
	Op      string
	Message string
}

func (e *StateError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *StateError) Is(target error) bool { return target == ErrState }

// NotSupportedError reports a feature this layer deliberately refuses,
// such as converting a collection-typed property as a scalar.
type NotSupportedError struct {
	Feature string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: not yet supported", e.Feature)
}

func (e *NotSupportedError) Is(target error) bool { return target == ErrNotSupported }

// RangeError reports a collection index outside [0, Len).
type RangeError struct {
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// Messages shared across layers.
const (
	MsgClosed        = "handle is closed"
	MsgNotInWrite    = "cannot modify managed objects outside of a write transaction"
	MsgAlreadyInTx   = "the database is already in a write transaction"
	MsgNotInTx       = "the database is not in a write transaction"
	MsgInvalidObject = "accessing object which has been invalidated or deleted"
)

// NewClosedError is the translation of any native access on a closed handle.
func NewClosedError(op string) *StateError {
	return &StateError{Op: op, Message: MsgClosed}
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool { return errors.Is(err, ErrSchema) }

// IsTypeError reports whether err is (or wraps) a TypeError.
func IsTypeError(err error) bool { return errors.Is(err, ErrType) }

// IsReferenceError reports whether err is (or wraps) a ReferenceError.
func IsReferenceError(err error) bool { return errors.Is(err, ErrReference) }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStateError reports whether err is (or wraps) a StateError.
func IsStateError(err error) bool { return errors.Is(err, ErrState) }
