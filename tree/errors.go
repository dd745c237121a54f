package tree

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrSealed          = errors.New("evaluator is sealed, registration is not allowed")
	ErrNativeFunction  = errors.New("native function can't be reconstructed from the list form")
	ErrInvalidLanguage = errors.New("invalid language definition")
)

// MarshalError is returned when a Go value can't be converted into a node
type MarshalError struct {
	Value  any
	Kind   string
	Reason string
}

func (e *MarshalError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("can't marshal value of kind '%s': %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("can't marshal value of kind '%s'", e.Kind)
}

func newMarshalError(v any, reason string, args ...any) *MarshalError {
	kind := "nil"
	if v != nil {
		kind = reflect.TypeOf(v).String()
	}
	return &MarshalError{
		Value:  v,
		Kind:   kind,
		Reason: fmt.Sprintf(reason, args...),
	}
}

type UnknownNamespaceError struct {
	Namespace string
}

func (e *UnknownNamespaceError) Error() string {
	return fmt.Sprintf("unknown namespace '%s'", e.Namespace)
}

type UnknownOperationError struct {
	Namespace string
	Op        string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation '%s' in namespace '%s'", e.Op, e.Namespace)
}

// NoMatchError is returned by Matcher when none of the rules accepts the value
type NoMatchError struct {
	Value any
}

func (e *NoMatchError) Error() string {
	if e.Value == nil {
		return "no rule matches nil"
	}
	return fmt.Sprintf("no rule matches value of type %T", e.Value)
}

// ArityError is returned when a call provides a number of arguments the implementation can't take
type ArityError struct {
	Namespace string
	Op        string
	Want      int
	Variadic  bool
	Got       int
}

func (e *ArityError) Error() string {
	if e.Variadic {
		return fmt.Sprintf("'%s/%s': at least %d arguments expected, got %d", e.Namespace, e.Op, e.Want, e.Got)
	}
	return fmt.Sprintf("'%s/%s': %d arguments expected, got %d", e.Namespace, e.Op, e.Want, e.Got)
}

// ArgumentError is returned when an evaluated argument can't be passed as the parameter type
type ArgumentError struct {
	Namespace string
	Op        string
	Index     int
	Want      string
	Got       string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("'%s/%s': argument #%d: can't use %s as %s", e.Namespace, e.Op, e.Index, e.Got, e.Want)
}

// ImplementationError is returned by registration when an implementation is not usable
type ImplementationError struct {
	Namespace string
	Op        string
	Reason    string
}

func (e *ImplementationError) Error() string {
	return fmt.Sprintf("wrong implementation of '%s/%s': %s", e.Namespace, e.Op, e.Reason)
}

type DepthError struct {
	MaxDepth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("maximum tree depth %d exceeded", e.MaxDepth)
}

// DecodeError is returned when a list is not a valid list form of a tree
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "wrong list form: " + e.Reason
}

func newDecodeError(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}
