package types

import (
	"strconv"
	"strings"
)

// shapeKey renders the canonical structural key of an anonymous type. Components
// are referenced by TypeID, so the key is unique for each distinct shape.
func shapeKey(typ *Type) string {
	var b strings.Builder
	b.WriteString(typ.Kind.String())

	switch typ.Kind {
	case KindStruct:
		b.WriteByte('{')
		for i, field := range typ.Fields {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(field.Name)
			b.WriteByte(':')
			writeID(&b, field.Type)
		}
		b.WriteByte('|')
		writeMethods(&b, typ.Methods)
		b.WriteByte('}')
	case KindInterface:
		b.WriteByte('{')
		writeMethods(&b, typ.Methods)
		b.WriteByte('}')
	case KindFunc:
		b.WriteByte('(')
		writeIDs(&b, typ.Params)
		b.WriteString(")")
		writeID(&b, typ.Return)
	case KindPointer, KindArray:
		b.WriteByte('[')
		writeID(&b, typ.Elem)
		b.WriteByte(']')
	case KindTable:
		b.WriteByte('[')
		writeID(&b, typ.Key)
		b.WriteByte(':')
		writeID(&b, typ.Elem)
		b.WriteByte(']')
	case KindTuple:
		b.WriteByte('(')
		writeIDs(&b, typ.Items)
		b.WriteByte(')')
	}
	return b.String()
}

func writeID(b *strings.Builder, id TypeID) {
	b.WriteByte('#')
	b.WriteString(strconv.FormatUint(uint64(id), 10))
}

func writeIDs(b *strings.Builder, ids []TypeID) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		writeID(b, id)
	}
}

func writeMethods(b *strings.Builder, methods []Method) {
	for i, method := range methods {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(method.Name)
		writeID(b, method.Sig)
	}
}
