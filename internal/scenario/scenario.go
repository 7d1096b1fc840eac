// Package scenario extracts check scenarios from Markdown documents. Each
// scenario starts at a "Test: <name>" heading and holds one input fence
// followed by the fences its output is compared against.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var ErrMalformed = errors.New("malformed scenario document")

type InputKind string

const (
	// InputUnit is a YAML unit manifest.
	InputUnit InputKind = "crow-unit"
	// InputGo is the source of a single Go file.
	InputGo InputKind = "go"
)

type ExpectKind string

const (
	ExpectDiagnostics ExpectKind = "diagnostics"
	ExpectVTables     ExpectKind = "vtables"
	ExpectTypes       ExpectKind = "types"
	ExpectLoadError   ExpectKind = "load-error"
)

type Expectation struct {
	Kind    ExpectKind
	Content string
	Line    int
}

type Case struct {
	Name         string
	Line         int
	Input        string
	InputKind    InputKind
	Expectations []Expectation
}

// Expected returns the content of the first expectation of the given kind.
func (c *Case) Expected(kind ExpectKind) (string, bool) {
	for _, e := range c.Expectations {
		if e.Kind == kind {
			return e.Content, true
		}
	}
	return "", false
}

const headingPrefix = "Test: "

// Extract returns the scenarios of a Markdown document in document order.
// Fences without a language are ignored. Any other fence outside of a
// scenario is an error.
func Extract(source []byte) ([]Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	lines := newLineIndex(source)

	var (
		cases   []Case
		current *Case
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		if err := current.validate(); err != nil {
			return err
		}
		cases = append(cases, *current)
		current = nil
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, source)
			if !strings.HasPrefix(heading, headingPrefix) {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{
				Name: strings.TrimSpace(strings.TrimPrefix(heading, headingPrefix)),
				Line: lines.of(n),
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			if len(language) == 0 {
				return ast.WalkContinue, nil
			}
			line := lines.of(n)
			if current == nil {
				return ast.WalkStop, fmt.Errorf("%w: line %d: %s fence outside of a scenario", ErrMalformed, line, language)
			}

			content := fenceContent(n, source)
			switch {
			case isInput(language):
				if len(current.InputKind) > 0 {
					return ast.WalkStop, fmt.Errorf("%w: line %d: second input fence in %q", ErrMalformed, line, current.Name)
				}
				current.Input = content
				current.InputKind = InputKind(language)
			case isExpectation(language):
				current.Expectations = append(current.Expectations, Expectation{
					Kind:    ExpectKind(language),
					Content: strings.TrimRight(content, "\n"),
					Line:    line,
				})
			default:
				return ast.WalkStop, fmt.Errorf("%w: line %d: unknown fence %q in %q", ErrMalformed, line, language, current.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (c *Case) validate() error {
	if len(c.InputKind) == 0 {
		return fmt.Errorf("%w: line %d: %q has no input fence", ErrMalformed, c.Line, c.Name)
	}
	if len(c.Expectations) == 0 {
		return fmt.Errorf("%w: line %d: %q has no expectation fences", ErrMalformed, c.Line, c.Name)
	}
	return nil
}

func isInput(language string) bool {
	switch InputKind(language) {
	case InputUnit, InputGo:
		return true
	}
	return false
}

func isExpectation(language string) bool {
	switch ExpectKind(language) {
	case ExpectDiagnostics, ExpectVTables, ExpectTypes, ExpectLoadError:
		return true
	}
	return false
}

func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(source []byte) lineIndex {
	index := lineIndex{0}
	for i, c := range source {
		if c == '\n' {
			index = append(index, i+1)
		}
	}
	return index
}

func (l lineIndex) of(node ast.Node) int {
	if node.Lines().Len() == 0 {
		return 0
	}
	offset := node.Lines().At(0).Start
	line := 0
	for line+1 < len(l) && l[line+1] <= offset {
		line++
	}
	return line + 1
}
