package value

import (
	"fmt"
	"sync"

	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
	"omibyte.io/crow/vtable"
)

// Func is the body of a method. recv is the concrete receiver.
type Func func(recv Value, args []Value) (Value, error)

// Pointer is a polymorphic pointer: a shared reference to a concrete value
// together with the vtable of its (concrete, interface) pairing. The zero
// Pointer is nil.
type Pointer struct {
	data   Value
	vtable *vtable.VTable
}

func (p Pointer) IsNil() bool {
	return p.vtable == nil
}

func (p Pointer) Interface() types.TypeID {
	if p.vtable == nil {
		return types.TypeVoid
	}
	return p.vtable.Interface()
}

func (p Pointer) Concrete() types.TypeID {
	if p.vtable == nil {
		return types.TypeVoid
	}
	return p.vtable.Concrete()
}

// Data returns the concrete value the pointer refers to.
func (p Pointer) Data() Value {
	return p.data
}

func (p Pointer) VTable() *vtable.VTable {
	return p.vtable
}

// Release drops the pointer's hold on its data.
func (p Pointer) Release() {
	p.data.release()
}

type slotKey struct {
	concrete types.TypeID
	slot     int
}

// Runtime coerces values into polymorphic pointers and dispatches calls
// through their vtables.
type Runtime struct {
	table  *types.Table
	cache  *vtable.Cache
	logger *logging.Logger

	mu      sync.RWMutex
	methods map[slotKey]Func
}

func NewRuntime(cache *vtable.Cache, logger *logging.Logger) *Runtime {
	return &Runtime{
		table:   cache.Checker().Table(),
		cache:   cache,
		logger:  logger,
		methods: map[slotKey]Func{},
	}
}

func (r *Runtime) Table() *types.Table {
	return r.table
}

func (r *Runtime) Cache() *vtable.Cache {
	return r.cache
}

// Bind attaches fn as the body of the method at slot of concrete.
func (r *Runtime) Bind(concrete types.TypeID, slot int, fn Func) error {
	typ, err := r.table.Lookup(concrete)
	if err != nil {
		return err
	}
	if typ.Kind != types.KindStruct {
		return fmt.Errorf("%w: %s", ErrNotStruct, r.table.String(concrete))
	}
	if slot < 0 || slot >= len(typ.Methods) {
		return fmt.Errorf("%w: %s has no method slot %d", ErrNoSuchMethod, r.table.String(concrete), slot)
	}

	r.mu.Lock()
	r.methods[slotKey{concrete, slot}] = fn
	r.mu.Unlock()
	return nil
}

// BindName attaches fn to the method called name. Overloaded names must be
// bound by slot.
func (r *Runtime) BindName(concrete types.TypeID, name string, fn Func) error {
	typ, err := r.table.Lookup(concrete)
	if err != nil {
		return err
	}
	if typ.Kind != types.KindStruct {
		return fmt.Errorf("%w: %s", ErrNotStruct, r.table.String(concrete))
	}

	slot := -1
	for _, method := range typ.Methods {
		if method.Name != name {
			continue
		}
		if slot >= 0 {
			return fmt.Errorf("%w: %s.%s", ErrAmbiguousMethod, r.table.String(concrete), name)
		}
		slot = method.Slot
	}
	if slot < 0 {
		return fmt.Errorf("%w: %s.%s", ErrNoSuchMethod, r.table.String(concrete), name)
	}
	return r.Bind(concrete, slot, fn)
}

// NewStruct creates an instance of the struct type id. Fields are given in
// declaration order and primitive fields must hold a value of their type.
func (r *Runtime) NewStruct(id types.TypeID, fields ...Value) (Value, error) {
	typ, err := r.table.Lookup(id)
	if err != nil {
		return Value{}, err
	}
	if typ.Kind != types.KindStruct {
		return Value{}, fmt.Errorf("%w: %s", ErrNotStruct, r.table.String(id))
	}
	if len(fields) != len(typ.Fields) {
		return Value{}, fmt.Errorf("%w: %s has %d fields, got %d",
			ErrFieldCount, r.table.String(id), len(typ.Fields), len(fields))
	}
	for i, field := range typ.Fields {
		if types.IsBuiltin(field.Type) && fields[i].Type() != field.Type {
			return Value{}, fmt.Errorf("%w: field %s of %s is %s, got %s", ErrFieldType,
				field.Name, r.table.String(id), r.table.String(field.Type), r.table.String(fields[i].Type()))
		}
	}
	return Struct(NewObject(id, fields...)), nil
}

// Coerce wraps v in a polymorphic pointer to iface. The concrete type must
// satisfy iface; otherwise the error is the checker's *iface.SatisfactionError.
// Coercing a polymorphic pointer converts it through its concrete type.
//
// The returned pointer holds a reference to v's instance. Struct instances are
// shared, never copied, so mutations are visible through every alias.
func (r *Runtime) Coerce(v Value, iface types.TypeID) (Pointer, error) {
	if p, ok := v.AsPointer(); ok {
		return r.Convert(p, iface)
	}

	vt, err := r.cache.GetOrBuild(v.Type(), iface)
	if err != nil {
		return Pointer{}, err
	}
	v.retain()
	return Pointer{data: v, vtable: vt}, nil
}

// Convert re-points p at another interface. The result shares p's data.
func (r *Runtime) Convert(p Pointer, iface types.TypeID) (Pointer, error) {
	if p.IsNil() {
		return Pointer{}, ErrNilPointer
	}
	if p.Interface() == iface {
		p.data.retain()
		return p, nil
	}

	vt, err := r.cache.GetOrBuild(p.Concrete(), iface)
	if err != nil {
		return Pointer{}, err
	}
	p.data.retain()
	return Pointer{data: p.data, vtable: vt}, nil
}

// Dispatch calls the interface method name on the value behind p.
func (r *Runtime) Dispatch(p Pointer, name string, args ...Value) (Value, error) {
	if p.IsNil() {
		return Value{}, fmt.Errorf("%w: calling %s", ErrNilPointer, name)
	}
	index, ok := p.vtable.Index(name)
	if !ok {
		return Value{}, &MissingVTableEntryError{
			Concrete:      p.Concrete(),
			Interface:     p.Interface(),
			ConcreteName:  r.table.String(p.Concrete()),
			InterfaceName: r.table.String(p.Interface()),
			Method:        name,
		}
	}
	return r.DispatchIndex(p, index, args...)
}

// DispatchIndex calls the interface method at position index of p's vtable.
func (r *Runtime) DispatchIndex(p Pointer, index int, args ...Value) (Value, error) {
	if p.IsNil() {
		return Value{}, ErrNilPointer
	}
	if index < 0 || index >= p.vtable.Len() {
		return Value{}, &MissingVTableEntryError{
			Concrete:      p.Concrete(),
			Interface:     p.Interface(),
			ConcreteName:  r.table.String(p.Concrete()),
			InterfaceName: r.table.String(p.Interface()),
			Method:        fmt.Sprintf("#%d", index),
		}
	}
	entry := p.vtable.Entry(index)

	sig, err := r.table.Lookup(entry.Sig)
	if err != nil {
		return Value{}, err
	}
	if len(args) != len(sig.Params) {
		return Value{}, fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrArity, entry.Name, len(sig.Params), len(args))
	}

	r.mu.RLock()
	fn, ok := r.methods[slotKey{p.Concrete(), entry.Slot}]
	r.mu.RUnlock()
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrUnboundMethod, r.table.String(p.Concrete()), entry.Name)
	}

	r.logger.Printf(logging.Debug, "Dispatching %s.%s through slot %d\n",
		r.table.String(p.Concrete()), entry.Name, entry.Slot)
	return fn(p.data, args)
}
