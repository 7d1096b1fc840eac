package types

import "fmt"

// TypeID uniquely identifies a type expression inside a Table.
type TypeID uint32

// Kind enumerates the type constructors of the language.
type Kind uint8

const (
	// KindInvalid marks a named declaration whose body has not been defined yet.
	KindInvalid Kind = iota
	KindVoid
	KindInt
	KindFloat
	KindString
	KindBool
	KindStruct
	KindInterface
	KindFunc
	KindPointer
	KindArray
	KindTable
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindFunc:
		return "func"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	case KindTuple:
		return "tuple"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsPrimitive reports whether k is one of the builtin scalar kinds.
func (k Kind) IsPrimitive() bool {
	return k >= KindVoid && k <= KindBool
}

type Field struct {
	Name string
	Type TypeID
}

// Method is a named function signature. On a struct it is an implementation
// living in method slot Slot. On an interface it is a requirement and Slot is
// its declaration index.
type Method struct {
	Name     string
	Sig      TypeID
	Slot     int
	External bool
}

// Type describes one registered type expression. Which fields are meaningful
// depends on Kind.
type Type struct {
	ID   TypeID
	Kind Kind
	// Name is empty for anonymous type expressions.
	Name string

	Fields  []Field
	Methods []Method

	Params []TypeID
	Return TypeID

	Elem  TypeID
	Key   TypeID
	Items []TypeID
}

func (t *Type) Named() bool {
	return len(t.Name) > 0
}

func (t *Type) IsInterface() bool {
	return t.Kind == KindInterface
}

// IsConcrete reports whether values of t may be stored behind a polymorphic
// pointer.
func (t *Type) IsConcrete() bool {
	return t.Kind != KindInterface && t.Kind != KindInvalid && t.Kind != KindVoid
}

// Field returns the index of the named field, or -1.
func (t *Type) Field(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (t *Type) clone() *Type {
	c := *t
	c.Fields = append([]Field(nil), t.Fields...)
	c.Methods = append([]Method(nil), t.Methods...)
	c.Params = append([]TypeID(nil), t.Params...)
	c.Items = append([]TypeID(nil), t.Items...)
	return &c
}

// Descriptor helpers ---------------------------------------------------------

func MakeField(name string, typ TypeID) Field {
	return Field{Name: name, Type: typ}
}

func MakeMethod(name string, sig TypeID) Method {
	return Method{Name: name, Sig: sig}
}

func MakeStruct(fields ...Field) Type {
	return Type{Kind: KindStruct, Fields: fields}
}

func MakeInterface(methods ...Method) Type {
	return Type{Kind: KindInterface, Methods: methods}
}

// MakeFunc describes fn(params...) -> ret. Use TypeVoid for no result.
func MakeFunc(ret TypeID, params ...TypeID) Type {
	return Type{Kind: KindFunc, Params: params, Return: ret}
}

func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}

func MakeTable(key, elem TypeID) Type {
	return Type{Kind: KindTable, Key: key, Elem: elem}
}

func MakeTuple(items ...TypeID) Type {
	return Type{Kind: KindTuple, Items: items}
}
