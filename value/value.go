package value

import (
	"fmt"
	"strconv"

	"omibyte.io/crow/types"
)

// Value is a typed runtime value. Struct values are held by shared reference
// through *Object, so copying a Value aliases the same instance.
type Value struct {
	typ  types.TypeID
	data any
}

func Void() Value {
	return Value{typ: types.TypeVoid}
}

func Int(v int64) Value {
	return Value{typ: types.TypeInt, data: v}
}

func Float(v float64) Value {
	return Value{typ: types.TypeFloat, data: v}
}

func String(v string) Value {
	return Value{typ: types.TypeString, data: v}
}

func Bool(v bool) Value {
	return Value{typ: types.TypeBool, data: v}
}

// Struct wraps a shared struct instance.
func Struct(obj *Object) Value {
	return Value{typ: obj.Type(), data: obj}
}

// Poly wraps a polymorphic pointer. The value's type is the pointer's
// interface.
func Poly(p Pointer) Value {
	return Value{typ: p.Interface(), data: p}
}

// Type returns the static type of v. For a polymorphic pointer this is the
// interface, not the concrete type behind it.
func (v Value) Type() types.TypeID {
	return v.typ
}

func (v Value) IsVoid() bool {
	return v.typ == types.TypeVoid && v.data == nil
}

func (v Value) AsInt() (int64, bool) {
	i, ok := v.data.(int64)
	return i, ok
}

func (v Value) AsFloat() (float64, bool) {
	f, ok := v.data.(float64)
	return f, ok
}

func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

func (v Value) AsObject() (*Object, bool) {
	obj, ok := v.data.(*Object)
	return obj, ok
}

func (v Value) AsPointer() (Pointer, bool) {
	p, ok := v.data.(Pointer)
	return p, ok
}

func (v Value) String() string {
	switch data := v.data.(type) {
	case nil:
		return "void"
	case int64:
		return strconv.FormatInt(data, 10)
	case float64:
		return strconv.FormatFloat(data, 'g', -1, 64)
	case string:
		return strconv.Quote(data)
	case bool:
		return strconv.FormatBool(data)
	case *Object:
		return fmt.Sprintf("object#%d(%p)", data.Type(), data)
	case Pointer:
		if data.IsNil() {
			return "&nil"
		}
		return fmt.Sprintf("&%d(%s)", data.Interface(), data.Data())
	default:
		return fmt.Sprintf("%v", data)
	}
}

// retain and release adjust the reference count of the instance held by v, if
// any.
func (v Value) retain() {
	switch data := v.data.(type) {
	case *Object:
		data.Retain()
	case Pointer:
		data.data.retain()
	}
}

func (v Value) release() {
	switch data := v.data.(type) {
	case *Object:
		data.Release()
	case Pointer:
		data.data.release()
	}
}
