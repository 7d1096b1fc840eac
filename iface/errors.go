package iface

import (
	"errors"
	"fmt"
	"strings"

	"omibyte.io/crow/types"
)

var (
	ErrNotSatisfied   = errors.New("type does not satisfy interface")
	ErrNotInterface   = errors.New("target type is not an interface")
	ErrNotConcrete    = errors.New("source type is not a concrete type")
	ErrExternalMethod = errors.New("methods must be declared inside the struct")
)

// Reason tells why a required interface method was not matched.
type Reason int

const (
	// Absent means the concrete type has no method of that name.
	Absent Reason = iota
	// SignatureMismatch means methods of that name exist but none has the
	// exact required signature.
	SignatureMismatch
)

func (r Reason) String() string {
	switch r {
	case Absent:
		return "absent"
	case SignatureMismatch:
		return "signature mismatch"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Unmatched describes one required method that the concrete type lacks.
type Unmatched struct {
	Method string
	Reason Reason
	Want   types.TypeID
	// Found lists the signatures of the same-named methods of the concrete type.
	Found []types.TypeID

	// Rendered forms, filled when the diagnostic is created.
	WantString   string
	FoundStrings []string
	Detail       string
}

func (u Unmatched) String() string {
	switch u.Reason {
	case Absent:
		return "missing method " + u.WantString
	default:
		msg := "wrong signature for method " + u.Method + ": have " + strings.Join(u.FoundStrings, ", ") + ", want " + u.WantString
		if len(u.Detail) > 0 {
			msg += " (" + u.Detail + ")"
		}
		return msg
	}
}

// SatisfactionError is the diagnostic produced when a concrete type does not
// structurally satisfy an interface. It lists every unmatched method.
type SatisfactionError struct {
	Concrete      types.TypeID
	Interface     types.TypeID
	ConcreteName  string
	InterfaceName string
	Unmatched     []Unmatched
}

func (e *SatisfactionError) Error() string {
	parts := make([]string, len(e.Unmatched))
	for i, u := range e.Unmatched {
		parts[i] = u.String()
	}
	return e.ConcreteName + " does not satisfy " + e.InterfaceName + ": " + strings.Join(parts, "; ")
}

func (e *SatisfactionError) Unwrap() error {
	return ErrNotSatisfied
}

// Absent returns the names of required methods missing entirely.
func (e *SatisfactionError) Absent() []string {
	return e.names(Absent)
}

// Mismatched returns the names of required methods present with a different
// signature.
func (e *SatisfactionError) Mismatched() []string {
	return e.names(SignatureMismatch)
}

func (e *SatisfactionError) names(reason Reason) []string {
	var names []string
	for _, u := range e.Unmatched {
		if u.Reason == reason {
			names = append(names, u.Method)
		}
	}
	return names
}
