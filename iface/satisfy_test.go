package iface

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"omibyte.io/crow/types"
)

type fixture struct {
	table      *types.Table
	checker    *Checker
	vec2       types.TypeID
	hasLength  types.TypeID
	body       types.TypeID
	damageable types.TypeID
	empty      types.TypeID
}

func (f *fixture) fn(t *testing.T, ret types.TypeID, params ...types.TypeID) types.TypeID {
	t.Helper()
	id, err := f.table.Register(types.MakeFunc(ret, params...))
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) named(t *testing.T, name string, typ types.Type) types.TypeID {
	t.Helper()
	id, err := f.table.RegisterNamed(name, typ)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func newFixture(t *testing.T, tableOptions types.Options, options ExtractorOptions) *fixture {
	f := &fixture{table: types.NewTable(tableOptions)}

	length := f.fn(t, types.TypeFloat)
	f.vec2 = f.named(t, "Vec2", types.Type{
		Kind:    types.KindStruct,
		Fields:  []types.Field{types.MakeField("x", types.TypeFloat), types.MakeField("y", types.TypeFloat)},
		Methods: []types.Method{types.MakeMethod("length", length)},
	})
	f.hasLength = f.named(t, "HasLength", types.MakeInterface(types.MakeMethod("length", length)))
	f.body = f.named(t, "Body", types.MakeStruct(types.MakeField("health", types.TypeInt)))
	f.damageable = f.named(t, "Damageable", types.MakeInterface(
		types.MakeMethod("takeDamage", f.fn(t, types.TypeVoid, types.TypeInt))))

	var err error
	f.empty, err = f.table.Register(types.MakeInterface())
	be.Err(t, err, nil)

	f.checker = NewChecker(NewExtractor(f.table, options))
	return f
}

func TestSatisfies(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	be.Err(t, f.table.Freeze(), nil)

	be.True(t, f.checker.Satisfies(f.vec2, f.hasLength))
	be.True(t, !f.checker.Satisfies(f.body, f.damageable))
	be.True(t, !f.checker.Satisfies(f.body, f.hasLength))

	match, err := f.checker.Check(f.vec2, f.hasLength)
	be.Err(t, err, nil)
	be.Equal(t, len(match.Methods), 1)
	be.Equal(t, match.Methods[0].Name, "length")
	be.Equal(t, match.Methods[0].Sig, match.Required[0].Sig)
}

func TestSatisfiesIsDeterministic(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	be.Err(t, f.table.Freeze(), nil)

	for i := 0; i < 10; i++ {
		be.True(t, f.checker.Satisfies(f.vec2, f.hasLength))
		be.True(t, !f.checker.Satisfies(f.body, f.damageable))
	}

	first, _ := f.checker.Check(f.vec2, f.hasLength)
	second, _ := f.checker.Check(f.vec2, f.hasLength)
	be.True(t, first == second)
}

func TestEmptyInterfaceIsUniversal(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	anon, err := f.table.Register(types.MakeStruct(types.MakeField("a", types.TypeString)))
	be.Err(t, err, nil)
	list, err := f.table.Register(types.MakeArray(types.TypeInt))
	be.Err(t, err, nil)
	be.Err(t, f.table.Alias("Any", f.empty), nil)
	be.Err(t, f.table.Freeze(), nil)

	for _, concrete := range []types.TypeID{f.vec2, f.body, anon, list, types.TypeInt, types.TypeString} {
		t.Run(f.table.String(concrete), func(t *testing.T) {
			be.True(t, f.checker.Satisfies(concrete, f.empty))
		})
	}
}

func TestAbsentMethod(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	be.Err(t, f.table.Freeze(), nil)

	_, err := f.checker.Check(f.body, f.damageable)
	be.Err(t, err, ErrNotSatisfied)

	var satErr *SatisfactionError
	be.True(t, errors.As(err, &satErr))
	be.Equal(t, satErr.Absent(), []string{"takeDamage"})
	be.Equal(t, len(satErr.Mismatched()), 0)
	be.Equal(t, satErr.Unmatched[0].Reason, Absent)
	be.Equal(t, err.Error(), "Body does not satisfy Damageable: missing method takeDamage(Int)")
}

func TestSignatureMismatch(t *testing.T) {
	tests := []struct {
		name   string
		sig    func(f *fixture, t *testing.T) types.TypeID
		detail string
	}{
		{
			"return",
			func(f *fixture, t *testing.T) types.TypeID { return f.fn(t, types.TypeInt) },
			"returns Int, want Float",
		},
		{
			"arity",
			func(f *fixture, t *testing.T) types.TypeID { return f.fn(t, types.TypeFloat, types.TypeInt) },
			"takes 1 parameters, want 0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, types.Options{}, ExtractorOptions{})
			ruler := f.named(t, "Ruler", types.MakeStruct())
			_, err := f.table.AddMethod(ruler, "length", tc.sig(f, t))
			be.Err(t, err, nil)
			be.Err(t, f.table.Freeze(), nil)

			_, err = f.checker.Check(ruler, f.hasLength)
			var satErr *SatisfactionError
			be.True(t, errors.As(err, &satErr))
			be.Equal(t, satErr.Mismatched(), []string{"length"})
			be.Equal(t, len(satErr.Absent()), 0)
			be.Equal(t, satErr.Unmatched[0].Reason, SignatureMismatch)
			be.Equal(t, satErr.Unmatched[0].Detail, tc.detail)
			be.True(t, strings.Contains(err.Error(), "wrong signature for method length"))
		})
	}
}

func TestParameterMismatchDetail(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	target := f.named(t, "Target", types.MakeStruct())
	_, err := f.table.AddMethod(target, "takeDamage", f.fn(t, types.TypeVoid, types.TypeFloat))
	be.Err(t, err, nil)

	_, err = f.checker.Check(target, f.damageable)
	var satErr *SatisfactionError
	be.True(t, errors.As(err, &satErr))
	be.Equal(t, satErr.Unmatched[0].Detail, "parameter 1 is Float, want Int")
	be.Equal(t, satErr.Unmatched[0].FoundStrings, []string{"takeDamage(Float)"})
}

func TestMultipleUnmatched(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	shape := f.named(t, "Shape", types.MakeInterface(
		types.MakeMethod("area", f.fn(t, types.TypeFloat)),
		types.MakeMethod("length", f.fn(t, types.TypeFloat)),
		types.MakeMethod("name", f.fn(t, types.TypeString)),
	))
	_, err := f.table.AddMethod(f.body, "length", f.fn(t, types.TypeInt))
	be.Err(t, err, nil)

	_, err = f.checker.Check(f.body, shape)
	var satErr *SatisfactionError
	be.True(t, errors.As(err, &satErr))
	be.Equal(t, satErr.Absent(), []string{"area", "name"})
	be.Equal(t, satErr.Mismatched(), []string{"length"})
}

func TestOverloadFirstExactMatch(t *testing.T) {
	f := newFixture(t, types.Options{AllowOverloads: true}, ExtractorOptions{})
	logger := f.named(t, "Logger", types.MakeStruct())
	first, err := f.table.AddMethod(logger, "takeDamage", f.fn(t, types.TypeVoid, types.TypeString))
	be.Err(t, err, nil)
	second, err := f.table.AddMethod(logger, "takeDamage", f.fn(t, types.TypeVoid, types.TypeInt))
	be.Err(t, err, nil)
	be.Err(t, f.table.Freeze(), nil)

	match, err := f.checker.Check(logger, f.damageable)
	be.Err(t, err, nil)
	be.Equal(t, match.Methods[0].Slot, second.Slot)
	be.True(t, match.Methods[0].Slot != first.Slot)
}

func TestMethodsDeclaredInline(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{MethodsDeclaredInline: true})
	_, err := f.table.AddMethod(f.body, "takeDamage", f.fn(t, types.TypeVoid, types.TypeInt))
	be.Err(t, err, nil)

	_, err = f.checker.Check(f.body, f.damageable)
	be.Err(t, err, ErrExternalMethod)
	be.True(t, f.checker.Satisfies(f.vec2, f.hasLength))
}

func TestMalformedQueries(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	be.Err(t, f.table.Freeze(), nil)

	_, err := f.checker.Check(f.vec2, f.body)
	be.Err(t, err, ErrNotInterface)

	_, err = f.checker.Check(f.hasLength, f.empty)
	be.Err(t, err, ErrNotConcrete)

	_, err = f.checker.Check(9999, f.hasLength)
	be.Err(t, err, types.ErrUnknownType)
}

func satisfiesFault(c *Checker, concrete, iface types.TypeID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	c.Satisfies(concrete, iface)
	return nil
}

func TestSatisfiesFaults(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	be.Err(t, f.table.Freeze(), nil)

	be.Err(t, satisfiesFault(f.checker, 9999, f.empty), types.ErrUnknownType)
	be.Err(t, satisfiesFault(f.checker, f.vec2, 9999), types.ErrUnknownType)
	be.Err(t, satisfiesFault(f.checker, f.vec2, f.body), ErrNotInterface)
	be.Err(t, satisfiesFault(f.checker, f.hasLength, f.empty), ErrNotConcrete)

	// A negative answer is not a fault.
	be.Err(t, satisfiesFault(f.checker, f.body, f.damageable), nil)
}

func TestResultsUpdateBeforeFreeze(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	be.True(t, !f.checker.Satisfies(f.body, f.damageable))

	_, err := f.table.AddMethod(f.body, "takeDamage", f.fn(t, types.TypeVoid, types.TypeInt))
	be.Err(t, err, nil)
	be.True(t, f.checker.Satisfies(f.body, f.damageable))
}

func TestSignatureOf(t *testing.T) {
	f := newFixture(t, types.Options{}, ExtractorOptions{})
	_, err := f.table.AddMethod(f.vec2, "dot", f.fn(t, types.TypeFloat, f.vec2))
	be.Err(t, err, nil)
	be.Err(t, f.table.Freeze(), nil)

	extractor := f.checker.Extractor()
	sig, err := extractor.SignatureOf(f.vec2)
	be.Err(t, err, nil)
	be.Equal(t, len(sig.Fields), 2)
	be.Equal(t, sig.MethodNames(), []string{"dot", "length"})
	be.Equal(t, sig.Methods[1].Slot, 1)
	be.True(t, sig.Methods[1].External)

	again, err := extractor.SignatureOf(f.vec2)
	be.Err(t, err, nil)
	be.True(t, sig == again)

	sig, err = extractor.SignatureOf(f.hasLength)
	be.Err(t, err, nil)
	be.Equal(t, len(sig.Fields), 0)
	be.Equal(t, len(sig.Methods), 1)
}
