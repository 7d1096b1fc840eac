package vtable

import (
	"fmt"
	"strings"

	"omibyte.io/crow/iface"
	"omibyte.io/crow/types"
)

// Entry binds one interface method to the method slot implementing it on the
// concrete type.
type Entry struct {
	Name string
	Sig  types.TypeID
	Slot int
}

// VTable is the dispatch table of one (concrete type, interface) pairing.
// Entries follow the interface's method declaration order. A VTable is never
// modified after it is built and is shared by every pointer of its pairing.
type VTable struct {
	concrete types.TypeID
	iface    types.TypeID
	entries  []Entry
	index    map[string]int
}

func (v *VTable) Concrete() types.TypeID {
	return v.concrete
}

func (v *VTable) Interface() types.TypeID {
	return v.iface
}

func (v *VTable) Len() int {
	return len(v.entries)
}

func (v *VTable) Entry(i int) Entry {
	return v.entries[i]
}

// Entries returns a copy of the entries in interface order.
func (v *VTable) Entries() []Entry {
	return append([]Entry(nil), v.entries...)
}

// Index returns the position of the named interface method.
func (v *VTable) Index(name string) (int, bool) {
	i, ok := v.index[name]
	return i, ok
}

// Format renders the table using the type names of table.
func (v *VTable) Format(table *types.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s as %s:", table.String(v.concrete), table.String(v.iface))
	if len(v.entries) == 0 {
		b.WriteString(" (empty)")
	}
	for i, entry := range v.entries {
		fmt.Fprintf(&b, "\n  [%d] %s -> slot %d", i, table.MethodString(types.Method{Name: entry.Name, Sig: entry.Sig}), entry.Slot)
	}
	return b.String()
}

func build(match *iface.Match) (*VTable, error) {
	if len(match.Methods) != len(match.Required) {
		return nil, fmt.Errorf("%w: %d methods matched for %d requirements",
			ErrInconsistentMatch, len(match.Methods), len(match.Required))
	}

	v := &VTable{
		concrete: match.Concrete,
		iface:    match.Interface,
		entries:  make([]Entry, len(match.Required)),
		index:    make(map[string]int, len(match.Required)),
	}

	for i, required := range match.Required {
		method := match.Methods[i]
		if method.Name != required.Name || method.Sig != required.Sig {
			return nil, fmt.Errorf("%w: %s matched by %s", ErrInconsistentMatch, required.Name, method.Name)
		}

		v.entries[i] = Entry{
			Name: required.Name,
			Sig:  required.Sig,
			Slot: method.Slot,
		}
		v.index[required.Name] = i
	}
	return v, nil
}
