package types

import (
	"errors"
	"sync"
	"testing"

	"github.com/nalgeon/be"
)

func mustRegister(t *testing.T, table *Table, typ Type) TypeID {
	t.Helper()
	id, err := table.Register(typ)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return id
}

func TestBuiltinIndex(t *testing.T) {
	table := NewTable(Options{})
	tests := []struct {
		id   TypeID
		kind Kind
		name string
	}{
		{TypeVoid, KindVoid, "Void"},
		{TypeInt, KindInt, "Int"},
		{TypeFloat, KindFloat, "Float"},
		{TypeString, KindString, "String"},
		{TypeBool, KindBool, "Bool"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			typ, err := table.Lookup(tc.id)
			be.Err(t, err, nil)
			be.Equal(t, typ.Kind, tc.kind)
			be.Equal(t, typ.ID, tc.id)

			id, ok := table.Resolve(tc.name)
			be.True(t, ok)
			be.Equal(t, id, tc.id)
		})
	}
}

func TestAnonymousStructsShareTypeID(t *testing.T) {
	table := NewTable(Options{})

	a := mustRegister(t, table, MakeStruct(MakeField("x", TypeFloat), MakeField("y", TypeFloat)))
	b := mustRegister(t, table, MakeStruct(MakeField("x", TypeFloat), MakeField("y", TypeFloat)))
	be.Equal(t, a, b)

	// Field order and names are part of the shape.
	c := mustRegister(t, table, MakeStruct(MakeField("y", TypeFloat), MakeField("x", TypeFloat)))
	d := mustRegister(t, table, MakeStruct(MakeField("x", TypeFloat), MakeField("z", TypeFloat)))
	be.True(t, a != c)
	be.True(t, a != d)
}

func TestNamedTypesAreNominal(t *testing.T) {
	table := NewTable(Options{})
	shape := MakeStruct(MakeField("x", TypeFloat), MakeField("y", TypeFloat))

	vec2, err := table.RegisterNamed("Vec2", shape)
	be.Err(t, err, nil)
	point, err := table.RegisterNamed("Point", shape)
	be.Err(t, err, nil)
	anon := mustRegister(t, table, shape)

	be.True(t, vec2 != point)
	be.True(t, vec2 != anon)

	_, err = table.RegisterNamed("Vec2", shape)
	be.Err(t, err, ErrDuplicateDeclaration)
}

func TestFunctionSignaturesIgnoreParameterNames(t *testing.T) {
	table := NewTable(Options{})
	a := mustRegister(t, table, MakeFunc(TypeFloat, TypeInt, TypeInt))
	b := mustRegister(t, table, MakeFunc(TypeFloat, TypeInt, TypeInt))
	c := mustRegister(t, table, MakeFunc(TypeInt, TypeInt, TypeInt))
	be.Equal(t, a, b)
	be.True(t, a != c)
}

func TestRegisterErrors(t *testing.T) {
	table := NewTable(Options{})
	sig := mustRegister(t, table, MakeFunc(TypeVoid))

	tests := []struct {
		name string
		typ  Type
		err  error
	}{
		{"duplicateField", MakeStruct(MakeField("x", TypeInt), MakeField("x", TypeFloat)), ErrDuplicateField},
		{"unknownField", MakeStruct(MakeField("x", 999)), ErrUnknownType},
		{"voidField", MakeStruct(MakeField("x", TypeVoid)), ErrInvalidType},
		{"duplicateInterfaceMethod", MakeInterface(MakeMethod("f", sig), MakeMethod("f", sig)), ErrDuplicateMethod},
		{"methodNotFunc", MakeInterface(MakeMethod("f", TypeInt)), ErrNotFunc},
		{"primitive", Type{Kind: KindInt}, ErrInvalidType},
		{"named", Type{Kind: KindStruct, Name: "S"}, ErrInvalidType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := table.Register(tc.typ)
			be.Err(t, err, tc.err)
		})
	}
}

func TestUnknownTypeLookup(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Lookup(4242)
	be.Err(t, err, ErrUnknownType)

	var unknown *UnknownTypeError
	be.True(t, errors.As(err, &unknown))
	be.Equal(t, unknown.ID, TypeID(4242))
}

func TestRecursiveDeclaration(t *testing.T) {
	table := NewTable(Options{})

	node, err := table.Declare("Node")
	be.Err(t, err, nil)
	next := mustRegister(t, table, MakePointer(node))
	be.Err(t, table.Define(node, MakeStruct(MakeField("value", TypeInt), MakeField("next", next))), nil)
	be.Equal(t, table.String(next), "&Node")

	err = table.Define(node, MakeStruct())
	be.Err(t, err, ErrAlreadyDefined)

	// A struct cannot contain itself by value.
	self, err := table.Declare("Self")
	be.Err(t, err, nil)
	be.Err(t, table.Define(self, MakeStruct(MakeField("me", self))), ErrInvalidType)
}

func TestFreeze(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Declare("Pending")
	be.Err(t, err, nil)

	err = table.Freeze()
	be.Err(t, err, ErrUndefinedType)
	be.True(t, !table.Frozen())

	id, _ := table.Resolve("Pending")
	be.Err(t, table.Define(id, MakeStruct()), nil)
	be.Err(t, table.Freeze(), nil)
	be.True(t, table.Frozen())

	_, err = table.Register(MakeArray(TypeInt))
	be.Err(t, err, ErrTableFrozen)
	_, err = table.AddMethod(id, "f", TypeInt)
	be.Err(t, err, ErrTableFrozen)
}

func TestFreezeRejectsContainmentCycles(t *testing.T) {
	t.Run("mutual", func(t *testing.T) {
		table := NewTable(Options{})
		a, _ := table.Declare("A")
		b, _ := table.Declare("B")
		be.Err(t, table.Define(a, MakeStruct(MakeField("b", b))), nil)
		be.Err(t, table.Define(b, MakeStruct(MakeField("a", a))), nil)

		err := table.Freeze()
		be.Err(t, err, ErrRecursiveStruct)
		be.Equal(t, err.Error(), "struct contains itself by value: A -> B -> A")
		be.True(t, !table.Frozen())
	})

	t.Run("throughTuple", func(t *testing.T) {
		table := NewTable(Options{})
		a, _ := table.Declare("A")
		pair := mustRegister(t, table, MakeTuple(TypeInt, a))
		be.Err(t, table.Define(a, MakeStruct(MakeField("pair", pair))), nil)
		be.Err(t, table.Freeze(), ErrRecursiveStruct)
	})

	t.Run("references", func(t *testing.T) {
		table := NewTable(Options{})
		a, _ := table.Declare("A")
		b, _ := table.Declare("B")
		ref := mustRegister(t, table, MakePointer(b))
		list := mustRegister(t, table, MakeArray(a))
		be.Err(t, table.Define(a, MakeStruct(MakeField("b", ref))), nil)
		be.Err(t, table.Define(b, MakeStruct(MakeField("a", a), MakeField("children", list))), nil)
		be.Err(t, table.Freeze(), nil)
	})
}

func TestAddMethod(t *testing.T) {
	sig := func(table *Table, ret TypeID, params ...TypeID) TypeID {
		id, err := table.Register(MakeFunc(ret, params...))
		if err != nil {
			t.Fatal(err)
		}
		return id
	}

	t.Run("slots", func(t *testing.T) {
		table := NewTable(Options{})
		length := sig(table, TypeFloat)
		vec2, err := table.RegisterNamed("Vec2", Type{
			Kind:    KindStruct,
			Fields:  []Field{MakeField("x", TypeFloat), MakeField("y", TypeFloat)},
			Methods: []Method{MakeMethod("length", length)},
		})
		be.Err(t, err, nil)

		before, _ := table.Lookup(vec2)
		method, err := table.AddMethod(vec2, "scale", sig(table, vec2, TypeFloat))
		be.Err(t, err, nil)
		be.Equal(t, method.Slot, 1)
		be.True(t, method.External)

		after, _ := table.Lookup(vec2)
		be.Equal(t, len(before.Methods), 1)
		be.Equal(t, len(after.Methods), 2)
		be.Equal(t, after.Methods[0].External, false)
	})

	t.Run("duplicate", func(t *testing.T) {
		table := NewTable(Options{})
		s, _ := table.RegisterNamed("S", MakeStruct())
		_, err := table.AddMethod(s, "f", sig(table, TypeVoid))
		be.Err(t, err, nil)
		_, err = table.AddMethod(s, "f", sig(table, TypeVoid, TypeInt))
		be.Err(t, err, ErrDuplicateMethod)
	})

	t.Run("overloads", func(t *testing.T) {
		table := NewTable(Options{AllowOverloads: true})
		s, _ := table.RegisterNamed("S", MakeStruct())
		_, err := table.AddMethod(s, "f", sig(table, TypeVoid))
		be.Err(t, err, nil)
		_, err = table.AddMethod(s, "f", sig(table, TypeVoid, TypeInt))
		be.Err(t, err, nil)
		_, err = table.AddMethod(s, "f", sig(table, TypeVoid))
		be.Err(t, err, ErrDuplicateMethod)
	})

	t.Run("notStruct", func(t *testing.T) {
		table := NewTable(Options{})
		i, _ := table.RegisterNamed("I", MakeInterface())
		_, err := table.AddMethod(i, "f", sig(table, TypeVoid))
		be.Err(t, err, ErrNotStruct)
		_, err = table.AddMethod(TypeInt, "f", sig(table, TypeVoid))
		be.Err(t, err, ErrNotStruct)
	})

	t.Run("namedSignature", func(t *testing.T) {
		table := NewTable(Options{})
		handler, err := table.RegisterNamed("Handler", MakeFunc(TypeVoid, TypeInt))
		be.Err(t, err, nil)
		s, _ := table.RegisterNamed("S", MakeStruct())
		method, err := table.AddMethod(s, "handle", handler)
		be.Err(t, err, nil)
		be.Equal(t, method.Sig, sig(table, TypeVoid, TypeInt))
	})
}

func TestAlias(t *testing.T) {
	table := NewTable(Options{})
	empty := mustRegister(t, table, MakeInterface())
	be.Err(t, table.Alias("Body", empty), nil)

	id, ok := table.Resolve("Body")
	be.True(t, ok)
	be.Equal(t, id, empty)

	be.Err(t, table.Alias("Int", empty), ErrDuplicateDeclaration)
	be.Err(t, table.Alias("Ghost", 9999), ErrUnknownType)
}

func TestString(t *testing.T) {
	table := NewTable(Options{})
	length := mustRegister(t, table, MakeFunc(TypeFloat))
	takeDamage := mustRegister(t, table, MakeFunc(TypeVoid, TypeInt))
	hasLength, _ := table.RegisterNamed("HasLength", MakeInterface(MakeMethod("length", length)))

	tests := []struct {
		typ      Type
		expected string
	}{
		{MakeStruct(MakeField("x", TypeFloat), MakeField("y", TypeFloat)), "struct { x: Float, y: Float }"},
		{MakeStruct(), "struct {}"},
		{MakeInterface(), "interface {}"},
		{MakeInterface(MakeMethod("length", length), MakeMethod("takeDamage", takeDamage)), "interface { length() -> Float; takeDamage(Int) }"},
		{MakeFunc(TypeFloat, TypeInt, TypeString), "fn(Int, String) -> Float"},
		{MakePointer(hasLength), "&HasLength"},
		{MakeArray(TypeInt), "[Int]"},
		{MakeTable(TypeString, TypeInt), "{String: Int}"},
		{MakeTuple(TypeInt, TypeFloat), "(Int, Float)"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			be.Equal(t, table.String(mustRegister(t, table, tc.typ)), tc.expected)
		})
	}
}

func TestConcurrentRegister(t *testing.T) {
	table := NewTable(Options{})
	ids := make([]TypeID, 16)

	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := table.Register(MakeStruct(MakeField("x", TypeFloat), MakeField("y", TypeFloat)))
			if err != nil {
				t.Error(err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		be.Equal(t, id, ids[0])
	}
}
