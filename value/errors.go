package value

import (
	"errors"
	"fmt"

	"omibyte.io/crow/types"
)

var (
	ErrMissingVTableEntry = errors.New("missing vtable entry")
	ErrUnboundMethod      = errors.New("method has no bound implementation")
	ErrNilPointer         = errors.New("call through nil polymorphic pointer")
	ErrArity              = errors.New("wrong number of arguments")
	ErrNoSuchMethod       = errors.New("no such method")
	ErrAmbiguousMethod    = errors.New("method name is overloaded")
	ErrNotStruct          = errors.New("type is not a struct")
	ErrFieldCount         = errors.New("wrong number of fields")
	ErrFieldType          = errors.New("field value has the wrong type")
	ErrReleased           = errors.New("object released too many times")
)

// MissingVTableEntryError is raised when a call names a method that the vtable
// of the pointer does not contain. The checker and builder guarantee this
// cannot happen for well-typed calls, so it is an internal fault: callers must
// stop rather than continue.
type MissingVTableEntryError struct {
	Concrete      types.TypeID
	Interface     types.TypeID
	ConcreteName  string
	InterfaceName string
	Method        string
}

func (e *MissingVTableEntryError) Error() string {
	return fmt.Sprintf("missing vtable entry %q for %s (type %d) as %s (type %d)",
		e.Method, e.ConcreteName, e.Concrete, e.InterfaceName, e.Interface)
}

func (e *MissingVTableEntryError) Unwrap() error {
	return ErrMissingVTableEntry
}
