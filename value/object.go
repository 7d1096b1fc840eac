package value

import (
	"sync"
	"sync/atomic"

	"omibyte.io/crow/types"
)

// Object is a shared, mutable struct instance.
//
// Ownership is shared: every holder retains the object and releases it when
// done. When the count drops to zero the object releases the instances held by
// its fields. Reference cycles never reach zero and are left to the Go
// collector.
type Object struct {
	typ    types.TypeID
	refs   atomic.Int32
	mu     sync.RWMutex
	fields []Value
}

// NewObject creates an instance with one reference owned by the caller. The
// fields are retained.
func NewObject(typ types.TypeID, fields ...Value) *Object {
	obj := &Object{
		typ:    typ,
		fields: append([]Value(nil), fields...),
	}
	obj.refs.Store(1)
	for _, field := range obj.fields {
		field.retain()
	}
	return obj
}

func (o *Object) Type() types.TypeID {
	return o.typ
}

func (o *Object) Retain() *Object {
	o.refs.Add(1)
	return o
}

// Release drops one reference. It reports whether this was the last one.
func (o *Object) Release() bool {
	refs := o.refs.Add(-1)
	if refs < 0 {
		panic(ErrReleased)
	}
	if refs > 0 {
		return false
	}

	o.mu.Lock()
	fields := o.fields
	o.fields = nil
	o.mu.Unlock()

	for _, field := range fields {
		field.release()
	}
	return true
}

func (o *Object) Refs() int {
	return int(o.refs.Load())
}

func (o *Object) NumFields() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.fields)
}

func (o *Object) Field(i int) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[i]
}

// SetField stores v in field i. The change is visible through every alias of
// the object.
func (o *Object) SetField(i int, v Value) {
	v.retain()

	o.mu.Lock()
	old := o.fields[i]
	o.fields[i] = v
	o.mu.Unlock()

	old.release()
}
