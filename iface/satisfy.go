package iface

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"omibyte.io/crow/types"
)

// Match records how a concrete type satisfies an interface. Methods[i] is the
// concrete method implementing Required[i].
type Match struct {
	Concrete  types.TypeID
	Interface types.TypeID
	Required  []types.Method
	Methods   []types.Method
}

type pair struct {
	concrete types.TypeID
	iface    types.TypeID
}

type result struct {
	match *Match
	err   error
}

// Checker decides structural interface satisfaction. A concrete type satisfies
// an interface when, for every required method, it declares a method with the
// same name and an identical signature. Outcomes are memoized per pair once
// the type table is frozen.
type Checker struct {
	table     *types.Table
	extractor *Extractor

	mu      sync.RWMutex
	results map[pair]result
}

func NewChecker(extractor *Extractor) *Checker {
	return &Checker{
		table:     extractor.Table(),
		extractor: extractor,
		results:   map[pair]result{},
	}
}

func (c *Checker) Table() *types.Table {
	return c.table
}

func (c *Checker) Extractor() *Extractor {
	return c.extractor
}

// Satisfies reports whether concrete satisfies iface. Use Check for the
// diagnostic explaining a negative answer.
//
// Only a *SatisfactionError is a negative answer. Satisfies panics on a
// malformed query, such as an unknown TypeID or a target that is not an
// interface.
func (c *Checker) Satisfies(concrete, iface types.TypeID) bool {
	_, err := c.Check(concrete, iface)
	if err == nil {
		return true
	}
	var satErr *SatisfactionError
	if errors.As(err, &satErr) {
		return false
	}
	panic(err)
}

// Check returns the method match of concrete against iface. It returns a
// *SatisfactionError when a required method is unmatched, and other errors for
// malformed queries such as unknown TypeIDs.
func (c *Checker) Check(concrete, iface types.TypeID) (*Match, error) {
	key := pair{concrete: concrete, iface: iface}

	c.mu.RLock()
	res, ok := c.results[key]
	c.mu.RUnlock()
	if ok {
		return res.match, res.err
	}

	match, err := c.check(concrete, iface)
	if _, unsatisfied := err.(*SatisfactionError); err != nil && !unsatisfied {
		// Malformed queries are not memoized.
		return nil, err
	}

	if c.table.Frozen() {
		c.mu.Lock()
		if prev, ok := c.results[key]; ok {
			match, err = prev.match, prev.err
		} else {
			c.results[key] = result{match: match, err: err}
		}
		c.mu.Unlock()
	}
	return match, err
}

// Forget drops memoized outcomes and signatures involving any of ids.
func (c *Checker) Forget(ids ...types.TypeID) {
	if len(ids) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.results {
		if slices.Contains(ids, key.concrete) || slices.Contains(ids, key.iface) {
			delete(c.results, key)
		}
	}
	c.extractor.Forget(ids...)
}

// Reset drops every memoized outcome.
func (c *Checker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = map[pair]result{}
	c.extractor.Forget()
}

func (c *Checker) check(concrete, iface types.TypeID) (*Match, error) {
	required, err := c.extractor.SignatureOf(iface)
	if err != nil {
		return nil, err
	}
	if required.Kind != types.KindInterface {
		return nil, fmt.Errorf("%w: %s", ErrNotInterface, c.table.String(iface))
	}

	provided, err := c.extractor.SignatureOf(concrete)
	if err != nil {
		return nil, err
	}
	typ, err := c.table.Lookup(concrete)
	if err != nil {
		return nil, err
	}
	if !typ.IsConcrete() {
		return nil, fmt.Errorf("%w: %s", ErrNotConcrete, c.table.String(concrete))
	}

	match := &Match{
		Concrete:  concrete,
		Interface: iface,
		Required:  required.Methods,
		Methods:   make([]types.Method, 0, len(required.Methods)),
	}

	var unmatched []Unmatched
	for _, want := range required.Methods {
		candidates := provided.Named(want.Name)

		// First exact match wins. There are no variance rules.
		index := slices.IndexFunc(candidates, func(m types.Method) bool {
			return m.Sig == want.Sig
		})
		if index >= 0 {
			match.Methods = append(match.Methods, candidates[index])
			continue
		}

		unmatched = append(unmatched, c.unmatched(want, candidates))
	}

	if len(unmatched) > 0 {
		return nil, &SatisfactionError{
			Concrete:      concrete,
			Interface:     iface,
			ConcreteName:  c.table.String(concrete),
			InterfaceName: c.table.String(iface),
			Unmatched:     unmatched,
		}
	}
	return match, nil
}

func (c *Checker) unmatched(want types.Method, candidates []types.Method) Unmatched {
	u := Unmatched{
		Method:     want.Name,
		Reason:     Absent,
		Want:       want.Sig,
		WantString: c.table.MethodString(want),
	}
	if len(candidates) == 0 {
		return u
	}

	u.Reason = SignatureMismatch
	for _, candidate := range candidates {
		u.Found = append(u.Found, candidate.Sig)
		u.FoundStrings = append(u.FoundStrings, c.table.MethodString(candidate))
	}
	if len(candidates) == 1 {
		u.Detail = c.explain(want.Sig, candidates[0].Sig)
	}
	return u
}

// explain describes the first difference between two function signatures.
func (c *Checker) explain(want, have types.TypeID) string {
	wantFn, err := c.table.Lookup(want)
	if err != nil {
		return ""
	}
	haveFn, err := c.table.Lookup(have)
	if err != nil {
		return ""
	}

	if len(wantFn.Params) != len(haveFn.Params) {
		return fmt.Sprintf("takes %d parameters, want %d", len(haveFn.Params), len(wantFn.Params))
	}
	if !slices.Equal(wantFn.Params, haveFn.Params) {
		for i := range wantFn.Params {
			if wantFn.Params[i] != haveFn.Params[i] {
				return fmt.Sprintf("parameter %d is %s, want %s", i+1,
					c.table.String(haveFn.Params[i]), c.table.String(wantFn.Params[i]))
			}
		}
	}
	if wantFn.Return != haveFn.Return {
		return fmt.Sprintf("returns %s, want %s", c.table.String(haveFn.Return), c.table.String(wantFn.Return))
	}
	return ""
}
