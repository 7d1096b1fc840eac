package goimport

import (
	"errors"
	"fmt"
	gotypes "go/types"

	"golang.org/x/tools/go/types/typeutil"

	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
)

// Importer translates the struct and interface declarations of type-checked Go
// packages into a Table.
//
// Go methods are declared outside of the struct body, so they are attached as
// external methods. Struct members whose types have no Table equivalent
// (channels, complex numbers, generics) are skipped with a warning. Interfaces
// that mention such types are not imported at all, so no requirement is ever
// dropped.
type Importer struct {
	table  *types.Table
	logger *logging.Logger

	ids     typeutil.Map
	msets   typeutil.MethodSetCache
	roots   map[*gotypes.Package]bool
	pending []*gotypes.Named

	// expanding holds the named composites whose structure is being
	// translated.
	expanding map[*gotypes.Named]bool

	concretes  []types.TypeID
	interfaces []types.TypeID
}

func NewImporter(table *types.Table, logger *logging.Logger) *Importer {
	return &Importer{
		table:     table,
		logger:    logger,
		roots:     map[*gotypes.Package]bool{},
		expanding: map[*gotypes.Named]bool{},
	}
}

func (im *Importer) Table() *types.Table {
	return im.table
}

// Concretes returns the struct types declared at package level by the
// imported packages, in import order.
func (im *Importer) Concretes() []types.TypeID {
	return append([]types.TypeID(nil), im.concretes...)
}

// Interfaces returns the imported package-level interfaces.
func (im *Importer) Interfaces() []types.TypeID {
	return append([]types.TypeID(nil), im.interfaces...)
}

// ImportPackage translates every package-level struct and interface of pkgs.
// Types of the given packages keep their plain names; types reached from other
// packages are qualified with their package name.
func (im *Importer) ImportPackage(pkgs ...*gotypes.Package) (err error) {
	if im.table.Frozen() {
		return ErrTableFrozen
	}
	for _, pkg := range pkgs {
		im.roots[pkg] = true
	}

	for _, pkg := range pkgs {
		im.logger.Printf(logging.Info, "Importing package %s\n", pkg.Path())

		scope := pkg.Scope()
		for _, name := range scope.Names() {
			obj, ok := scope.Lookup(name).(*gotypes.TypeName)
			if !ok || obj.IsAlias() {
				continue
			}
			named, ok := obj.Type().(*gotypes.Named)
			if !ok {
				continue
			}

			var isInterface bool
			switch named.Underlying().(type) {
			case *gotypes.Struct:
			case *gotypes.Interface:
				isInterface = true
			default:
				continue
			}

			id, namedErr := im.named(named)
			if namedErr != nil {
				if errors.Is(namedErr, ErrUnsupported) {
					im.logger.Printf(logging.Warning, "Skipping %s.%s: %v\n", pkg.Name(), name, namedErr)
					continue
				}
				err = errors.Join(err, namedErr)
				continue
			}

			if isInterface {
				im.interfaces = append(im.interfaces, id)
			} else {
				im.concretes = append(im.concretes, id)
			}
		}
	}

	if drainErr := im.drain(); drainErr != nil {
		err = errors.Join(err, drainErr)
	}
	return err
}

func (im *Importer) nameOf(n *gotypes.Named) string {
	obj := n.Obj()
	if obj.Pkg() == nil || im.roots[obj.Pkg()] {
		return obj.Name()
	}
	return obj.Pkg().Name() + "." + obj.Name()
}

// named returns the TypeID of a named Go type, declaring it on first use. Its
// body is defined later by drain.
func (im *Importer) named(n *gotypes.Named) (types.TypeID, error) {
	if id, ok := im.ids.At(n).(types.TypeID); ok {
		return id, nil
	}
	if n.TypeParams().Len() > 0 || n.TypeArgs().Len() > 0 {
		return 0, fmt.Errorf("%w: generic type %s", ErrUnsupported, n)
	}

	switch u := n.Underlying().(type) {
	case *gotypes.Struct:
	case *gotypes.Interface:
		if !u.IsMethodSet() || !im.representable(u, map[*gotypes.Named]bool{n: true}) {
			return 0, fmt.Errorf("%w: interface %s", ErrUnsupported, n)
		}
	default:
		// Named primitives and composites are used by their structure.
		if im.expanding[n] {
			return 0, fmt.Errorf("%w: recursive type %s", ErrUnsupported, n)
		}
		im.expanding[n] = true
		id, err := im.translate(u)
		delete(im.expanding, n)
		if err == nil {
			im.ids.Set(n, id)
		}
		return id, err
	}

	id, err := im.table.Declare(im.nameOf(n))
	if err != nil {
		if errors.Is(err, types.ErrDuplicateDeclaration) {
			return 0, fmt.Errorf("%w: %s", ErrNameConflict, n)
		}
		return 0, err
	}
	im.ids.Set(n, id)
	im.pending = append(im.pending, n)
	im.logger.Printf(logging.Debug, "Declared %s as type %d\n", n, id)
	return id, nil
}

// drain defines the bodies of declared types. Defining a body may declare
// more types, which are defined in turn.
func (im *Importer) drain() (err error) {
	for len(im.pending) > 0 {
		n := im.pending[0]
		im.pending = im.pending[1:]
		if defErr := im.define(n); defErr != nil {
			err = errors.Join(err, defErr)
		}
	}
	return err
}

func (im *Importer) define(n *gotypes.Named) error {
	id := im.ids.At(n).(types.TypeID)

	switch u := n.Underlying().(type) {
	case *gotypes.Struct:
		typ := types.MakeStruct()
		for i := 0; i < u.NumFields(); i++ {
			field := u.Field(i)
			fieldID, err := im.translate(field.Type())
			if err != nil {
				if !errors.Is(err, ErrUnsupported) {
					return err
				}
				im.logger.Printf(logging.Warning, "Skipping field %s.%s: %v\n", n.Obj().Name(), field.Name(), err)
				continue
			}
			typ.Fields = append(typ.Fields, types.MakeField(field.Name(), fieldID))
		}
		if err := im.table.Define(id, typ); err != nil {
			return err
		}

		// The intuitive method set includes the methods of *T, which is how a
		// Go programmer expects to call them on an addressable T.
		for _, sel := range typeutil.IntuitiveMethodSet(n, &im.msets) {
			fn := sel.Obj().(*gotypes.Func)
			sig, err := im.signature(fn.Type().(*gotypes.Signature))
			if err != nil {
				if !errors.Is(err, ErrUnsupported) {
					return err
				}
				im.logger.Printf(logging.Warning, "Skipping method %s.%s: %v\n", n.Obj().Name(), fn.Name(), err)
				continue
			}
			if _, err = im.table.AddMethod(id, fn.Name(), sig); err != nil {
				return err
			}
		}
		return nil
	case *gotypes.Interface:
		methods := make([]types.Method, 0, u.NumMethods())
		for i := 0; i < u.NumMethods(); i++ {
			fn := u.Method(i)
			sig, err := im.signature(fn.Type().(*gotypes.Signature))
			if err != nil {
				return fmt.Errorf("%s.%s: %w", n.Obj().Name(), fn.Name(), err)
			}
			methods = append(methods, types.MakeMethod(fn.Name(), sig))
		}
		return im.table.Define(id, types.MakeInterface(methods...))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, n)
	}
}

// translate returns the TypeID of a Go type expression.
func (im *Importer) translate(t gotypes.Type) (types.TypeID, error) {
	if id, ok := im.ids.At(t).(types.TypeID); ok {
		return id, nil
	}

	var typ types.Type
	switch t := t.(type) {
	case *gotypes.Basic:
		return basic(t)
	case *gotypes.Named:
		return im.named(t)
	case *gotypes.Signature:
		return im.signature(t)
	case *gotypes.Pointer:
		elem, err := im.translate(t.Elem())
		if err != nil {
			return 0, err
		}
		typ = types.MakePointer(elem)
	case *gotypes.Slice:
		elem, err := im.translate(t.Elem())
		if err != nil {
			return 0, err
		}
		typ = types.MakeArray(elem)
	case *gotypes.Array:
		elem, err := im.translate(t.Elem())
		if err != nil {
			return 0, err
		}
		typ = types.MakeArray(elem)
	case *gotypes.Map:
		key, err := im.translate(t.Key())
		if err != nil {
			return 0, err
		}
		elem, err := im.translate(t.Elem())
		if err != nil {
			return 0, err
		}
		typ = types.MakeTable(key, elem)
	case *gotypes.Struct:
		typ = types.MakeStruct()
		for i := 0; i < t.NumFields(); i++ {
			field, err := im.translate(t.Field(i).Type())
			if err != nil {
				return 0, err
			}
			typ.Fields = append(typ.Fields, types.MakeField(t.Field(i).Name(), field))
		}
	case *gotypes.Interface:
		if !t.IsMethodSet() {
			return 0, fmt.Errorf("%w: constraint %s", ErrUnsupported, t)
		}
		typ = types.MakeInterface()
		for i := 0; i < t.NumMethods(); i++ {
			sig, err := im.signature(t.Method(i).Type().(*gotypes.Signature))
			if err != nil {
				return 0, err
			}
			typ.Methods = append(typ.Methods, types.MakeMethod(t.Method(i).Name(), sig))
		}
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}

	id, err := im.table.Register(typ)
	if err != nil {
		return 0, err
	}
	im.ids.Set(t, id)
	return id, nil
}

// signature translates a function type. The receiver is not part of the
// signature. Several results become a tuple.
func (im *Importer) signature(sig *gotypes.Signature) (types.TypeID, error) {
	if id, ok := im.ids.At(sig).(types.TypeID); ok {
		return id, nil
	}
	if sig.TypeParams().Len() > 0 {
		return 0, fmt.Errorf("%w: generic function %s", ErrUnsupported, sig)
	}

	params, err := im.tuple(sig.Params())
	if err != nil {
		return 0, err
	}
	results, err := im.tuple(sig.Results())
	if err != nil {
		return 0, err
	}

	ret := types.TypeVoid
	switch len(results) {
	case 0:
	case 1:
		ret = results[0]
	default:
		if ret, err = im.table.Register(types.MakeTuple(results...)); err != nil {
			return 0, err
		}
	}

	id, err := im.table.Register(types.MakeFunc(ret, params...))
	if err != nil {
		return 0, err
	}
	im.ids.Set(sig, id)
	return id, nil
}

func (im *Importer) tuple(tuple *gotypes.Tuple) ([]types.TypeID, error) {
	ids := make([]types.TypeID, tuple.Len())
	for i := range ids {
		id, err := im.translate(tuple.At(i).Type())
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func basic(b *gotypes.Basic) (types.TypeID, error) {
	info := b.Info()
	switch {
	case info&gotypes.IsBoolean != 0:
		return types.TypeBool, nil
	case info&gotypes.IsInteger != 0:
		return types.TypeInt, nil
	case info&gotypes.IsFloat != 0:
		return types.TypeFloat, nil
	case info&gotypes.IsString != 0:
		return types.TypeString, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, b)
	}
}

// representable reports whether t can be translated without skipping any
// member. Named structs are always representable since their unsupported
// members are skipped individually.
func (im *Importer) representable(t gotypes.Type, seen map[*gotypes.Named]bool) bool {
	switch t := t.(type) {
	case *gotypes.Basic:
		_, err := basic(t)
		return err == nil
	case *gotypes.Named:
		if t.TypeParams().Len() > 0 || t.TypeArgs().Len() > 0 {
			return false
		}
		if seen[t] {
			return true
		}
		seen[t] = true
		if _, ok := t.Underlying().(*gotypes.Struct); ok {
			return true
		}
		return im.representable(t.Underlying(), seen)
	case *gotypes.Pointer:
		return im.representable(t.Elem(), seen)
	case *gotypes.Slice:
		return im.representable(t.Elem(), seen)
	case *gotypes.Array:
		return im.representable(t.Elem(), seen)
	case *gotypes.Map:
		return im.representable(t.Key(), seen) && im.representable(t.Elem(), seen)
	case *gotypes.Signature:
		if t.TypeParams().Len() > 0 {
			return false
		}
		for _, tuple := range []*gotypes.Tuple{t.Params(), t.Results()} {
			for i := 0; i < tuple.Len(); i++ {
				if !im.representable(tuple.At(i).Type(), seen) {
					return false
				}
			}
		}
		return true
	case *gotypes.Struct:
		for i := 0; i < t.NumFields(); i++ {
			if !im.representable(t.Field(i).Type(), seen) {
				return false
			}
		}
		return true
	case *gotypes.Interface:
		if !t.IsMethodSet() {
			return false
		}
		for i := 0; i < t.NumMethods(); i++ {
			if !im.representable(t.Method(i).Type(), seen) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
