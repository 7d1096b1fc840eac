package types

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType          = errors.New("unknown type")
	ErrUndefinedType        = errors.New("declared type was never defined")
	ErrAlreadyDefined       = errors.New("type is already defined")
	ErrDuplicateDeclaration = errors.New("duplicate type declaration")
	ErrDuplicateField       = errors.New("duplicate field")
	ErrDuplicateMethod      = errors.New("duplicate method")
	ErrNotFunc              = errors.New("method signature is not a function type")
	ErrNotStruct            = errors.New("methods can only be declared on struct types")
	ErrInvalidType          = errors.New("invalid type expression")
	ErrRecursiveStruct      = errors.New("struct contains itself by value")
	ErrTableFrozen          = errors.New("type table is frozen")
)

// UnknownTypeError reports a lookup of a TypeID that was never registered.
// This is a collaborator fault, not a user error.
type UnknownTypeError struct {
	ID TypeID
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type id %d", e.ID)
}

func (e *UnknownTypeError) Unwrap() error {
	return ErrUnknownType
}
