package builder

import (
	"fmt"
	"io"

	"omibyte.io/crow/iface"
	"omibyte.io/crow/types"
	"omibyte.io/crow/unit"
	"omibyte.io/crow/vtable"
)

// Result is the outcome of one coercion check.
type Result struct {
	Unit          string
	Concrete      types.TypeID
	Interface     types.TypeID
	ConcreteName  string
	InterfaceName string
	Expect        unit.Expectation

	// VTable is set when the check succeeded, Err otherwise.
	VTable *vtable.VTable
	Err    *iface.SatisfactionError
}

func (r *Result) Satisfied() bool {
	return r.Err == nil
}

// Unexpected reports whether the outcome contradicts the check's expectation.
func (r *Result) Unexpected() bool {
	switch r.Expect {
	case unit.ExpectSatisfied:
		return !r.Satisfied()
	case unit.ExpectUnsatisfied:
		return r.Satisfied()
	}
	return false
}

func (r *Result) String() string {
	var s string
	if r.Satisfied() {
		s = r.ConcreteName + " satisfies " + r.InterfaceName
	} else {
		s = r.Err.Error()
	}
	if r.Unexpected() {
		s = fmt.Sprintf("error: %s (expected %s)", s, r.Expect)
	}
	return s
}

type UnitReport struct {
	Name    string
	Table   *types.Table
	Cache   *vtable.Cache
	Results []*Result
}

type Report struct {
	Units []*UnitReport
}

// Failed returns the number of results contradicting their expectation.
func (r *Report) Failed() (n int) {
	for _, u := range r.Units {
		for _, result := range u.Results {
			if result.Unexpected() {
				n++
			}
		}
	}
	return n
}

// Err returns ErrUnexpectedCheck when any result contradicts its expectation.
func (r *Report) Err() error {
	if n := r.Failed(); n > 0 {
		return fmt.Errorf("%w: %d checks", ErrUnexpectedCheck, n)
	}
	return nil
}

func (r *Report) WriteDiagnostics(w io.Writer) {
	for _, u := range r.Units {
		u.WriteDiagnostics(w)
	}
}

func (r *Report) WriteVTables(w io.Writer) {
	for _, u := range r.Units {
		u.WriteVTables(w)
	}
}

func (r *Report) WriteTypes(w io.Writer) {
	for _, u := range r.Units {
		u.WriteTypes(w)
	}
}

// WriteDiagnostics prints one line per check.
func (u *UnitReport) WriteDiagnostics(w io.Writer) {
	for _, result := range u.Results {
		fmt.Fprintf(w, "%s: %s\n", u.Name, result)
	}
}

// WriteVTables prints the vtable of every satisfied check in check order.
// Repeated pairings are printed once.
func (u *UnitReport) WriteVTables(w io.Writer) {
	seen := map[*vtable.VTable]bool{}
	for _, result := range u.Results {
		if result.VTable == nil || seen[result.VTable] {
			continue
		}
		seen[result.VTable] = true
		fmt.Fprintln(w, result.VTable.Format(u.Table))
	}
}

// WriteTypes dumps the named types of the unit's table with their method
// slots.
func (u *UnitReport) WriteTypes(w io.Writer) {
	fmt.Fprintf(w, "unit %s\n", u.Name)
	for _, typ := range u.Table.All() {
		if !typ.Named() || types.IsBuiltin(typ.ID) {
			continue
		}
		fmt.Fprintf(w, "  %-4d %-9s %s\n", typ.ID, typ.Kind, typ.Name)
		for _, field := range typ.Fields {
			fmt.Fprintf(w, "         field %s: %s\n", field.Name, u.Table.String(field.Type))
		}
		for _, method := range typ.Methods {
			if typ.IsInterface() {
				fmt.Fprintf(w, "         requires %s\n", u.Table.MethodString(method))
			} else {
				fmt.Fprintf(w, "         slot %d %s\n", method.Slot, u.Table.MethodString(method))
			}
		}
	}
}
