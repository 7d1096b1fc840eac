package iface

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/crow/types"
)

type ExtractorOptions struct {
	// MethodsDeclaredInline restricts structs to the methods written inside the
	// struct body. Methods attached from outside then become an error.
	MethodsDeclaredInline bool
}

// Signature is the member set of a type: its fields and its methods. For an
// interface the methods are the requirements in declaration order.
type Signature struct {
	Type    types.TypeID
	Kind    types.Kind
	Fields  []types.Field
	Methods []types.Method

	byName map[string][]int
}

// Named returns the methods declared under name in slot order.
func (s *Signature) Named(name string) []types.Method {
	indices := s.byName[name]
	methods := make([]types.Method, len(indices))
	for i, index := range indices {
		methods[i] = s.Methods[index]
	}
	return methods
}

// MethodNames returns the distinct method names in sorted order.
func (s *Signature) MethodNames() []string {
	names := maps.Keys(s.byName)
	slices.Sort(names)
	return names
}

// Extractor computes the Signature of registered types. Signatures are cached
// per TypeID once the table is frozen.
type Extractor struct {
	table   *types.Table
	options ExtractorOptions

	mu    sync.RWMutex
	cache map[types.TypeID]*Signature
}

func NewExtractor(table *types.Table, options ExtractorOptions) *Extractor {
	return &Extractor{
		table:   table,
		options: options,
		cache:   map[types.TypeID]*Signature{},
	}
}

func (e *Extractor) Table() *types.Table {
	return e.table
}

// Forget drops the cached signatures of ids, or of every type when ids is
// empty.
func (e *Extractor) Forget(ids ...types.TypeID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(ids) == 0 {
		e.cache = map[types.TypeID]*Signature{}
		return
	}
	for _, id := range ids {
		delete(e.cache, id)
	}
}

func (e *Extractor) SignatureOf(id types.TypeID) (*Signature, error) {
	e.mu.RLock()
	sig, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return sig, nil
	}

	typ, err := e.table.Lookup(id)
	if err != nil {
		return nil, err
	}

	sig = &Signature{
		Type:   id,
		Kind:   typ.Kind,
		byName: map[string][]int{},
	}

	switch typ.Kind {
	case types.KindInvalid:
		return nil, fmt.Errorf("%w: %s", types.ErrUndefinedType, typ.Name)
	case types.KindStruct:
		sig.Fields = typ.Fields
		for _, method := range typ.Methods {
			if method.External && e.options.MethodsDeclaredInline {
				return nil, fmt.Errorf("%w: %s.%s", ErrExternalMethod, e.table.String(id), method.Name)
			}
			sig.Methods = append(sig.Methods, method)
		}
	case types.KindInterface:
		sig.Methods = typ.Methods
	}

	for i, method := range sig.Methods {
		sig.byName[method.Name] = append(sig.byName[method.Name], i)
	}

	// Methods can still be attached during the definition phase.
	if e.table.Frozen() {
		e.mu.Lock()
		if cached, ok := e.cache[id]; ok {
			sig = cached
		} else {
			e.cache[id] = sig
		}
		e.mu.Unlock()
	}
	return sig, nil
}
