package unit

import "errors"

var (
	ErrSyntax            = errors.New("invalid type expression")
	ErrBadTypeRef        = errors.New("invalid type reference")
	ErrBadExpectation    = errors.New("expect must be satisfied or unsatisfied")
	ErrNativeOnInterface = errors.New("interface methods cannot name a native")
	ErrEmptyManifest     = errors.New("empty manifest")
	ErrMissingType       = errors.New("missing type")
	ErrUnknownName       = errors.New("unknown type name")
	ErrDuplicateAlias    = errors.New("duplicate alias")
	ErrAliasCycle        = errors.New("alias cycle")
	ErrNotDeclarable     = errors.New("a bare name cannot be declared as a type; use an alias")
	ErrUnknownNative     = errors.New("unknown native")
)
