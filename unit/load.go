package unit

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"

	"omibyte.io/crow/iface"
	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
	"omibyte.io/crow/value"
)

// Binding names the host function implementing one method slot.
type Binding struct {
	Concrete types.TypeID
	Method   string
	Slot     int
	Native   string
}

// Check is a resolved coercion query.
type Check struct {
	Concrete  types.TypeID
	Interface types.TypeID
	Expect    Expectation
}

// Unit is a loaded compilation unit. Its table is frozen.
type Unit struct {
	Name     string
	Table    *types.Table
	Options  Options
	Bindings []Binding
	Checks   []Check
}

func (u *Unit) ExtractorOptions() iface.ExtractorOptions {
	return iface.ExtractorOptions{MethodsDeclaredInline: u.Options.MethodsDeclaredInline}
}

// Natives maps native names to host implementations.
type Natives map[string]value.Func

// Bind registers the natives of every binding with rt. Methods without a
// native name are skipped.
func (u *Unit) Bind(rt *value.Runtime, natives Natives) (err error) {
	for _, binding := range u.Bindings {
		if len(binding.Native) == 0 {
			continue
		}
		fn, ok := natives[binding.Native]
		if !ok {
			err = errors.Join(err, fmt.Errorf("%w: %s for %s.%s", ErrUnknownNative,
				binding.Native, u.Table.String(binding.Concrete), binding.Method))
			continue
		}
		if bindErr := rt.Bind(binding.Concrete, binding.Slot, fn); bindErr != nil {
			err = errors.Join(err, bindErr)
		}
	}
	return err
}

// Load builds the type table of m and freezes it.
//
// Named types are declared first so bodies can refer to each other. Aliases
// are resolved in dependency order, then the bodies are defined, external
// methods attached and the checks resolved. Each phase reports every error it
// finds before loading stops.
func Load(m *Manifest, logger *logging.Logger) (*Unit, error) {
	l := &loader{
		unit: &Unit{
			Name:    m.Unit,
			Table:   types.NewTable(types.Options{AllowOverloads: m.Options.AllowOverloads}),
			Options: m.Options,
		},
		logger: logger,
		ids:    map[string]types.TypeID{},
	}
	logger.Printf(logging.Info, "Loading unit %s\n", m.Unit)

	phases := []func(*Manifest) error{
		l.declareTypes,
		l.defineAliases,
		l.defineTypes,
		l.addMethods,
		l.resolveChecks,
	}
	for _, phase := range phases {
		if err := phase(m); err != nil {
			return nil, err
		}
	}

	if err := l.unit.Table.Freeze(); err != nil {
		return nil, err
	}
	logger.Printf(logging.Info, "Loaded unit %s: %d types, %d checks\n", m.Unit, l.unit.Table.Len(), len(l.unit.Checks))
	return l.unit, nil
}

type loader struct {
	unit   *Unit
	logger *logging.Logger
	ids    map[string]types.TypeID
}

func (l *loader) table() *types.Table {
	return l.unit.Table
}

func (l *loader) declareTypes(m *Manifest) (err error) {
	for _, decl := range m.Types {
		id, declErr := l.table().Declare(decl.Name)
		if declErr != nil {
			err = errors.Join(err, declErr)
			continue
		}
		l.ids[decl.Name] = id
		l.logger.Printf(logging.Debug, "Declared %s as type %d\n", decl.Name, id)
	}
	return err
}

type aliasNode struct {
	decl  *AliasDecl
	index int
	id    int64
}

func (n *aliasNode) ID() int64 {
	return n.id
}

// orderAliases sorts aliases so every alias comes after the aliases its
// expression refers to.
func orderAliases(aliases []AliasDecl) ([]*AliasDecl, error) {
	g := multi.NewDirectedGraph()
	nodes := make(map[string]*aliasNode, len(aliases))
	for i := range aliases {
		decl := &aliases[i]
		if _, ok := nodes[decl.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAlias, decl.Name)
		}

		hasher := fnv.New64()
		hasher.Write([]byte(decl.Name))
		node := &aliasNode{decl: decl, index: i, id: int64(hasher.Sum64())}
		nodes[decl.Name] = node
		g.AddNode(node)
	}

	for _, node := range nodes {
		if node.decl.Type.Expr == nil {
			continue
		}
		for _, ref := range node.decl.Type.Expr.Refs() {
			dep, ok := nodes[ref]
			if !ok {
				continue
			}
			if dep == node {
				return nil, fmt.Errorf("%w: %s refers to itself", ErrAliasCycle, node.decl.Name)
			}
			g.SetLine(g.NewLine(dep, node))
		}
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) bool {
			return a.(*aliasNode).index < b.(*aliasNode).index
		})
	})
	if err != nil {
		var unorderable topo.Unorderable
		if !errors.As(err, &unorderable) {
			return nil, err
		}
		var cycleErr error
		for _, component := range unorderable {
			names := make([]string, len(component))
			for i, node := range component {
				names[i] = node.(*aliasNode).decl.Name
			}
			slices.Sort(names)
			cycleErr = errors.Join(cycleErr, fmt.Errorf("%w: %s", ErrAliasCycle, strings.Join(names, ", ")))
		}
		return nil, cycleErr
	}

	ordered := make([]*AliasDecl, len(sorted))
	for i, node := range sorted {
		ordered[i] = node.(*aliasNode).decl
	}
	return ordered, nil
}

func (l *loader) defineAliases(m *Manifest) (err error) {
	ordered, err := orderAliases(m.Aliases)
	if err != nil {
		return err
	}
	for _, decl := range ordered {
		id, resolveErr := l.resolve(decl.Type.Expr)
		if resolveErr != nil {
			err = errors.Join(err, fmt.Errorf("alias %s: %w", decl.Name, resolveErr))
			continue
		}
		if aliasErr := l.table().Alias(decl.Name, id); aliasErr != nil {
			err = errors.Join(err, aliasErr)
			continue
		}
		l.logger.Printf(logging.Debug, "Aliased %s to %s\n", decl.Name, l.table().String(id))
	}
	return err
}

// defineTypes supplies the declared bodies. Function types go first because
// method signatures are normalized against them.
func (l *loader) defineTypes(m *Manifest) (err error) {
	decls := make([]TypeDecl, 0, len(m.Types))
	for _, decl := range m.Types {
		if _, ok := l.ids[decl.Name]; ok {
			decls = append(decls, decl)
		}
	}
	slices.SortStableFunc(decls, func(a, b TypeDecl) bool {
		return isFunc(a.Type.Expr) && !isFunc(b.Type.Expr)
	})

	for _, decl := range decls {
		id := l.ids[decl.Name]
		if defErr := l.define(id, decl); defErr != nil {
			err = errors.Join(err, defErr)
		}
	}
	return err
}

func isFunc(e *Expr) bool {
	return e != nil && e.Kind == ExprFunc
}

func (l *loader) define(id types.TypeID, decl TypeDecl) error {
	if decl.Type.Expr == nil {
		return fmt.Errorf("%w: type %s has no body", ErrMissingType, decl.Name)
	}
	if decl.Type.Expr.Kind == ExprName {
		return fmt.Errorf("%w: %s", ErrNotDeclarable, decl.Name)
	}

	typ, err := l.build(decl.Type.Expr)
	if err != nil {
		return fmt.Errorf("%s: %w", decl.Name, err)
	}
	if err = l.table().Define(id, typ); err != nil {
		return err
	}
	l.logger.Printf(logging.Debug, "Defined %s as %s\n", decl.Name, decl.Type.Expr)

	// Inline methods occupy the first slots in declaration order.
	if decl.Type.Expr.Kind != ExprStruct {
		return nil
	}
	for slot, method := range decl.Type.Expr.Methods {
		l.unit.Bindings = append(l.unit.Bindings, Binding{
			Concrete: id,
			Method:   method.Name,
			Slot:     slot,
			Native:   method.Native,
		})
	}
	return nil
}

func (l *loader) addMethods(m *Manifest) (err error) {
	for _, decl := range m.Methods {
		receiver, ok := l.table().Resolve(decl.Receiver)
		if !ok {
			err = errors.Join(err, fmt.Errorf("method %s: %w: %s", decl.Name, ErrUnknownName, decl.Receiver))
			continue
		}
		if decl.Sig.Expr == nil {
			err = errors.Join(err, fmt.Errorf("%w: method %s.%s has no signature", ErrMissingType, decl.Receiver, decl.Name))
			continue
		}
		sig, sigErr := l.resolve(decl.Sig.Expr)
		if sigErr != nil {
			err = errors.Join(err, fmt.Errorf("method %s.%s: %w", decl.Receiver, decl.Name, sigErr))
			continue
		}

		method, addErr := l.table().AddMethod(receiver, decl.Name, sig)
		if addErr != nil {
			err = errors.Join(err, fmt.Errorf("method %s.%s: %w", decl.Receiver, decl.Name, addErr))
			continue
		}
		l.unit.Bindings = append(l.unit.Bindings, Binding{
			Concrete: receiver,
			Method:   method.Name,
			Slot:     method.Slot,
			Native:   decl.Native,
		})
	}
	return err
}

func (l *loader) resolveChecks(m *Manifest) (err error) {
	for i, decl := range m.Checks {
		concrete, concreteErr := l.resolve(decl.Concrete.Expr)
		target, targetErr := l.resolve(decl.Interface.Expr)
		if concreteErr != nil || targetErr != nil {
			err = errors.Join(err, fmt.Errorf("check %d: %w", i, errors.Join(concreteErr, targetErr)))
			continue
		}
		l.unit.Checks = append(l.unit.Checks, Check{
			Concrete:  concrete,
			Interface: target,
			Expect:    decl.Expect,
		})
	}
	return err
}

// resolve returns the TypeID of a type expression, registering anonymous
// shapes as needed.
func (l *loader) resolve(e *Expr) (types.TypeID, error) {
	if e == nil {
		return 0, ErrMissingType
	}
	if e.Kind == ExprName {
		id, ok := l.table().Resolve(e.Name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownName, e.Name)
		}
		return id, nil
	}

	typ, err := l.build(e)
	if err != nil {
		return 0, err
	}
	return l.table().Register(typ)
}

// build converts a composite expression into a type body.
func (l *loader) build(e *Expr) (types.Type, error) {
	switch e.Kind {
	case ExprStruct:
		typ := types.MakeStruct()
		for _, field := range e.Fields {
			id, err := l.resolve(field.Type)
			if err != nil {
				return types.Type{}, fmt.Errorf("field %s: %w", field.Name, err)
			}
			typ.Fields = append(typ.Fields, types.MakeField(field.Name, id))
		}
		methods, err := l.buildMethods(e.Methods)
		typ.Methods = methods
		return typ, err
	case ExprInterface:
		methods, err := l.buildMethods(e.Methods)
		return types.MakeInterface(methods...), err
	case ExprFunc:
		params, err := l.resolveAll(e.Items)
		if err != nil {
			return types.Type{}, err
		}
		ret := types.TypeVoid
		if e.Return != nil {
			if ret, err = l.resolve(e.Return); err != nil {
				return types.Type{}, err
			}
		}
		return types.MakeFunc(ret, params...), nil
	case ExprPointer, ExprArray:
		elem, err := l.resolve(e.Elem)
		if err != nil {
			return types.Type{}, err
		}
		if e.Kind == ExprPointer {
			return types.MakePointer(elem), nil
		}
		return types.MakeArray(elem), nil
	case ExprTable:
		key, err := l.resolve(e.Key)
		if err != nil {
			return types.Type{}, err
		}
		elem, err := l.resolve(e.Elem)
		if err != nil {
			return types.Type{}, err
		}
		return types.MakeTable(key, elem), nil
	case ExprTuple:
		items, err := l.resolveAll(e.Items)
		if err != nil {
			return types.Type{}, err
		}
		return types.MakeTuple(items...), nil
	default:
		return types.Type{}, fmt.Errorf("%w: %s", ErrBadTypeRef, e)
	}
}

func (l *loader) buildMethods(exprs []MethodExpr) ([]types.Method, error) {
	methods := make([]types.Method, 0, len(exprs))
	for _, method := range exprs {
		sig, err := l.resolve(method.Sig)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", method.Name, err)
		}
		methods = append(methods, types.MakeMethod(method.Name, sig))
	}
	return methods, nil
}

func (l *loader) resolveAll(exprs []*Expr) ([]types.TypeID, error) {
	ids := make([]types.TypeID, len(exprs))
	for i, e := range exprs {
		id, err := l.resolve(e)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
