package scenario

import (
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtract(t *testing.T) {
	doc := `# Satisfaction

Some prose with an untagged block:

` + fence + `
ignored
` + fence + `

## Test: exact match
` + fence + `crow-unit
unit: a
` + fence + `
` + fence + `diagnostics
a: Vec2 satisfies HasLength
` + fence + `
` + fence + `vtables
Vec2 as HasLength:
  [0] length() -> Float -> slot 0
` + fence + `

## Test: go input
` + fence + `go
package geom
` + fence + `
` + fence + `types
unit go
` + fence + `
`

	cases, err := Extract([]byte(doc))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	first := cases[0]
	be.Equal(t, first.Name, "exact match")
	be.Equal(t, first.Line, 9)
	be.Equal(t, first.InputKind, InputUnit)
	be.Equal(t, first.Input, "unit: a\n")
	be.Equal(t, len(first.Expectations), 2)
	be.Equal(t, first.Expectations[0].Kind, ExpectDiagnostics)
	be.Equal(t, first.Expectations[0].Content, "a: Vec2 satisfies HasLength")
	be.Equal(t, first.Expectations[1].Content, "Vec2 as HasLength:\n  [0] length() -> Float -> slot 0")

	vtables, ok := first.Expected(ExpectVTables)
	be.True(t, ok)
	be.Equal(t, vtables, first.Expectations[1].Content)
	_, ok = first.Expected(ExpectTypes)
	be.True(t, !ok)

	second := cases[1]
	be.Equal(t, second.Name, "go input")
	be.Equal(t, second.InputKind, InputGo)
	be.Equal(t, second.Input, "package geom\n")
}

func TestExtractErrors(t *testing.T) {
	tests := map[string]string{
		"outside":       fence + "diagnostics\nx\n" + fence + "\n",
		"noInput":       "## Test: a\n" + fence + "diagnostics\nx\n" + fence + "\n",
		"noExpectation": "## Test: a\n" + fence + "crow-unit\nunit: a\n" + fence + "\n",
		"twoInputs": "## Test: a\n" + fence + "crow-unit\nunit: a\n" + fence + "\n" +
			fence + "go\npackage a\n" + fence + "\n",
		"unknownFence": "## Test: a\n" + fence + "crow-unit\nunit: a\n" + fence + "\n" +
			fence + "python\npass\n" + fence + "\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Extract([]byte(doc))
			be.Err(t, err, ErrMalformed)
		})
	}
}

func TestExtractEmpty(t *testing.T) {
	cases, err := Extract([]byte("# Nothing here\n"))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 0)
}
