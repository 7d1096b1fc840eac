package types

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

type Options struct {
	// AllowOverloads permits a struct to declare several methods sharing a name,
	// as long as their signatures differ.
	AllowOverloads bool
}

// Table is the registry of every type expression of a compilation unit.
//
// Entries are append-only. Anonymous type expressions are deduplicated by
// structure so equal shapes resolve to one TypeID, while named declarations get
// their own TypeID. Writes are serialized, and the table refuses writes once
// Freeze ends the definition phase.
type Table struct {
	options Options

	mu      sync.RWMutex
	types   []*Type
	shapes  map[string]TypeID
	names   map[string]TypeID
	aliases map[string]TypeID
	frozen  bool
}

func NewTable(options Options) *Table {
	t := &Table{
		options: options,
		types:   make([]*Type, 0, 64),
		shapes:  map[string]TypeID{},
		names:   map[string]TypeID{},
		aliases: map[string]TypeID{},
	}

	// Install the builtin types at their fixed positions.
	for i := range builtinTypes {
		typ := builtinTypes[i]
		t.types = append(t.types, &typ)
		t.aliases[typ.Name] = typ.ID
	}
	return t
}

func (t *Table) Options() Options {
	return t.options
}

// Register returns the TypeID of an anonymous type expression, registering it
// if its shape has not been seen before.
func (t *Table) Register(typ Type) (TypeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return 0, ErrTableFrozen
	}
	if typ.Named() {
		return 0, fmt.Errorf("%w: named type %q must be declared", ErrInvalidType, typ.Name)
	}
	if err := t.prepare(&typ, 0); err != nil {
		return 0, err
	}
	return t.intern(&typ), nil
}

// Declare reserves a TypeID for a named declaration. The body is supplied later
// with Define, which allows declarations to refer to each other.
func (t *Table) Declare(name string) (TypeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return 0, ErrTableFrozen
	}
	return t.declare(name)
}

// Define supplies the body of a declared type. A body can be defined once.
func (t *Table) Define(id TypeID, typ Type) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrTableFrozen
	}
	return t.define(id, typ)
}

// RegisterNamed declares and defines a named type in one step.
func (t *Table) RegisterNamed(name string, typ Type) (TypeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return 0, ErrTableFrozen
	}

	id, err := t.declare(name)
	if err != nil {
		return 0, err
	}

	if err = t.define(id, typ); err != nil {
		// Nothing can refer to the reservation yet, so undo it. Shapes interned
		// while validating the body stay registered.
		delete(t.names, name)
		if int(id) == len(t.types)-1 {
			t.types = t.types[:id]
		} else {
			t.types[id] = &Type{ID: id, Kind: KindInvalid}
		}
		return 0, err
	}
	return id, nil
}

// AddMethod attaches a method declared outside of the struct body to a struct
// type. The method receives the next free slot of the struct.
func (t *Table) AddMethod(structID TypeID, name string, sig TypeID) (Method, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return Method{}, ErrTableFrozen
	}

	typ, err := t.lookup(structID)
	if err != nil {
		return Method{}, err
	}

	switch typ.Kind {
	case KindStruct:
	case KindInvalid:
		return Method{}, fmt.Errorf("%w: %s", ErrUndefinedType, typ.Name)
	default:
		return Method{}, fmt.Errorf("%w: %s", ErrNotStruct, t.format(structID))
	}

	if sig, err = t.canonicalSig(sig); err != nil {
		return Method{}, fmt.Errorf("method %s: %w", name, err)
	}

	method := Method{
		Name:     name,
		Sig:      sig,
		Slot:     len(typ.Methods),
		External: true,
	}

	if err = t.checkMethod(typ.Methods, method, t.options.AllowOverloads); err != nil {
		return Method{}, fmt.Errorf("%s.%s: %w", t.format(structID), name, err)
	}

	// Replace the entry so readers holding the previous descriptor keep a
	// consistent snapshot.
	updated := typ.clone()
	updated.Methods = append(updated.Methods, method)
	t.types[structID] = updated
	return method, nil
}

// Alias binds an additional name to an existing type.
func (t *Table) Alias(name string, id TypeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrTableFrozen
	}
	if len(name) == 0 {
		return fmt.Errorf("%w: empty alias name", ErrInvalidType)
	}
	if t.nameTaken(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateDeclaration, name)
	}
	if _, err := t.lookup(id); err != nil {
		return err
	}
	t.aliases[name] = id
	return nil
}

// Resolve looks up a type by alias or declaration name.
func (t *Table) Resolve(name string) (TypeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id, ok := t.aliases[name]; ok {
		return id, true
	}
	id, ok := t.names[name]
	return id, ok
}

// Lookup returns the descriptor of a registered type. Descriptors must be
// treated as read-only.
func (t *Table) Lookup(id TypeID) (*Type, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookup(id)
}

// Freeze ends the definition phase. It fails if a declared name was never
// given a body or if a struct contains itself by value.
func (t *Table) Freeze() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return nil
	}

	var err error
	for _, typ := range t.types {
		if typ.Kind == KindInvalid && typ.Named() {
			err = errors.Join(err, fmt.Errorf("%w: %s", ErrUndefinedType, typ.Name))
		}
	}
	if err != nil {
		return err
	}
	if err = t.checkContainment(); err != nil {
		return err
	}

	t.frozen = true
	return nil
}

// checkContainment rejects value cycles through struct fields and tuple items.
// Pointers, arrays and tables hold their elements by reference and end the
// chain.
func (t *Table) checkContainment() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]uint8, len(t.types))
	var path []TypeID

	var visit func(id TypeID) error
	visit = func(id TypeID) error {
		switch state[id] {
		case visiting:
			cycle := append(path[slices.Index(path, id):], id)
			names := make([]string, len(cycle))
			for i, member := range cycle {
				names[i] = t.format(member)
			}
			return fmt.Errorf("%w: %s", ErrRecursiveStruct, strings.Join(names, " -> "))
		case visited:
			return nil
		}

		state[id] = visiting
		path = append(path, id)
		for _, member := range t.contained(t.types[id]) {
			if err := visit(member); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[id] = visited
		return nil
	}

	for _, typ := range t.types {
		if typ.Kind == KindStruct && typ.Named() && state[typ.ID] == unvisited {
			if err := visit(typ.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// contained returns the types stored inline in a value of typ.
func (t *Table) contained(typ *Type) []TypeID {
	switch typ.Kind {
	case KindStruct:
		ids := make([]TypeID, 0, len(typ.Fields))
		for _, field := range typ.Fields {
			if int(field.Type) < len(t.types) {
				ids = append(ids, field.Type)
			}
		}
		return ids
	case KindTuple:
		return typ.Items
	}
	return nil
}

func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.types)
}

// All returns a snapshot of every registered descriptor in TypeID order.
func (t *Table) All() []*Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Type(nil), t.types...)
}

func (t *Table) lookup(id TypeID) (*Type, error) {
	if int(id) >= len(t.types) {
		return nil, &UnknownTypeError{ID: id}
	}
	return t.types[id], nil
}

func (t *Table) nameTaken(name string) bool {
	if _, ok := t.names[name]; ok {
		return true
	}
	_, ok := t.aliases[name]
	return ok
}

func (t *Table) declare(name string) (TypeID, error) {
	if len(name) == 0 {
		return 0, fmt.Errorf("%w: empty type name", ErrInvalidType)
	}
	if t.nameTaken(name) {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateDeclaration, name)
	}

	id := TypeID(len(t.types))
	t.types = append(t.types, &Type{ID: id, Kind: KindInvalid, Name: name})
	t.names[name] = id
	return id, nil
}

func (t *Table) define(id TypeID, typ Type) error {
	existing, err := t.lookup(id)
	if err != nil {
		return err
	}
	if existing.Kind != KindInvalid || !existing.Named() {
		return fmt.Errorf("%w: %s", ErrAlreadyDefined, t.format(id))
	}
	if err = t.prepare(&typ, id); err != nil {
		return fmt.Errorf("%s: %w", existing.Name, err)
	}

	typ.ID = id
	typ.Name = existing.Name
	t.types[id] = &typ
	return nil
}

// intern returns the TypeID for an anonymous shape, appending it when new.
func (t *Table) intern(typ *Type) TypeID {
	key := shapeKey(typ)
	if id, ok := t.shapes[key]; ok {
		return id
	}

	id := TypeID(len(t.types))
	typ.ID = id
	t.types = append(t.types, typ)
	t.shapes[key] = id
	return id
}

// prepare validates a type expression body and normalizes its method
// signatures and slots. self is the TypeID being defined, or zero.
func (t *Table) prepare(typ *Type, self TypeID) error {
	switch typ.Kind {
	case KindStruct:
		seen := make(map[string]struct{}, len(typ.Fields))
		for _, field := range typ.Fields {
			if len(field.Name) == 0 {
				return fmt.Errorf("%w: unnamed field", ErrInvalidType)
			}
			if _, ok := seen[field.Name]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateField, field.Name)
			}
			seen[field.Name] = struct{}{}

			if field.Type == self && self != 0 {
				return fmt.Errorf("%w: field %s contains its own struct", ErrInvalidType, field.Name)
			}
			if err := t.checkValueType(field.Type); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}
		return t.prepareMethods(typ, t.options.AllowOverloads)
	case KindInterface:
		return t.prepareMethods(typ, false)
	case KindFunc:
		for _, param := range typ.Params {
			if err := t.checkValueType(param); err != nil {
				return err
			}
		}
		_, err := t.lookup(typ.Return)
		return err
	case KindPointer, KindArray:
		return t.checkValueType(typ.Elem)
	case KindTable:
		if err := t.checkValueType(typ.Key); err != nil {
			return err
		}
		return t.checkValueType(typ.Elem)
	case KindTuple:
		for _, item := range typ.Items {
			if err := t.checkValueType(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot register a %s type", ErrInvalidType, typ.Kind)
	}
}

func (t *Table) prepareMethods(typ *Type, allowOverloads bool) error {
	methods := make([]Method, 0, len(typ.Methods))
	for i, method := range typ.Methods {
		sig, err := t.canonicalSig(method.Sig)
		if err != nil {
			return fmt.Errorf("method %s: %w", method.Name, err)
		}

		method.Sig = sig
		method.Slot = i
		method.External = false

		if err = t.checkMethod(methods, method, allowOverloads); err != nil {
			return err
		}
		methods = append(methods, method)
	}
	typ.Methods = methods
	return nil
}

func (t *Table) checkMethod(existing []Method, method Method, allowOverloads bool) error {
	if len(method.Name) == 0 {
		return fmt.Errorf("%w: unnamed method", ErrInvalidType)
	}
	for _, other := range existing {
		if other.Name != method.Name {
			continue
		}
		if !allowOverloads || other.Sig == method.Sig {
			return fmt.Errorf("%w: %s", ErrDuplicateMethod, method.Name)
		}
	}
	return nil
}

// canonicalSig maps a method signature to its anonymous function shape, so
// signatures compare equal exactly when their TypeIDs are equal.
func (t *Table) canonicalSig(id TypeID) (TypeID, error) {
	typ, err := t.lookup(id)
	if err != nil {
		return 0, err
	}
	if typ.Kind != KindFunc {
		return 0, fmt.Errorf("%w: %s", ErrNotFunc, t.format(id))
	}
	if !typ.Named() {
		return id, nil
	}

	shape := typ.clone()
	shape.Name = ""
	return t.intern(shape), nil
}

// checkValueType verifies that id can be used as the type of a value.
func (t *Table) checkValueType(id TypeID) error {
	if _, err := t.lookup(id); err != nil {
		return err
	}
	if id == TypeVoid {
		return fmt.Errorf("%w: Void cannot be used as a value", ErrInvalidType)
	}
	return nil
}
