package types

import (
	"fmt"
	"strings"
)

// String renders a type expression the way it would be written in source.
func (t *Table) String(id TypeID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.format(id)
}

// MethodString renders a method as name(params) -> result.
func (t *Table) MethodString(m Method) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.formatMethod(m.Name, m.Sig)
}

func (t *Table) format(id TypeID) string {
	typ, err := t.lookup(id)
	if err != nil {
		return fmt.Sprintf("<unknown %d>", id)
	}
	if typ.Named() {
		return typ.Name
	}

	var b strings.Builder
	switch typ.Kind {
	case KindStruct:
		if len(typ.Fields) == 0 {
			return "struct {}"
		}
		b.WriteString("struct { ")
		for i, field := range typ.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(field.Name)
			b.WriteString(": ")
			b.WriteString(t.format(field.Type))
		}
		b.WriteString(" }")
	case KindInterface:
		if len(typ.Methods) == 0 {
			return "interface {}"
		}
		b.WriteString("interface { ")
		for i, method := range typ.Methods {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(t.formatMethod(method.Name, method.Sig))
		}
		b.WriteString(" }")
	case KindFunc:
		b.WriteString("fn")
		b.WriteString(t.formatSignature(typ))
	case KindPointer:
		b.WriteString("&")
		b.WriteString(t.format(typ.Elem))
	case KindArray:
		b.WriteString("[")
		b.WriteString(t.format(typ.Elem))
		b.WriteString("]")
	case KindTable:
		b.WriteString("{")
		b.WriteString(t.format(typ.Key))
		b.WriteString(": ")
		b.WriteString(t.format(typ.Elem))
		b.WriteString("}")
	case KindTuple:
		b.WriteString("(")
		for i, item := range typ.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.format(item))
		}
		b.WriteString(")")
	default:
		return typ.Kind.String()
	}
	return b.String()
}

func (t *Table) formatMethod(name string, sig TypeID) string {
	typ, err := t.lookup(sig)
	if err != nil || typ.Kind != KindFunc {
		return name + " " + t.format(sig)
	}
	return name + t.formatSignature(typ)
}

func (t *Table) formatSignature(fn *Type) string {
	var b strings.Builder
	b.WriteString("(")
	for i, param := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.format(param))
	}
	b.WriteString(")")
	if fn.Return != TypeVoid {
		b.WriteString(" -> ")
		b.WriteString(t.format(fn.Return))
	}
	return b.String()
}
