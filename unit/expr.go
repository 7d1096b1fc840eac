package unit

import (
	"fmt"
	"strings"
	"text/scanner"
)

type ExprKind int

const (
	ExprName ExprKind = iota
	ExprStruct
	ExprInterface
	ExprFunc
	ExprPointer
	ExprArray
	ExprTable
	ExprTuple
)

// Expr is a parsed type expression.
type Expr struct {
	Kind ExprKind

	// Name is the referenced type for ExprName.
	Name string

	Elem *Expr
	Key  *Expr

	// Items holds tuple items or function parameters.
	Items []*Expr

	// Return is nil for functions returning Void.
	Return *Expr

	Fields  []FieldExpr
	Methods []MethodExpr
}

type FieldExpr struct {
	Name string
	Type *Expr
}

type MethodExpr struct {
	Name string
	Sig  *Expr

	// Native names the host function implementing the method.
	Native string
}

// Refs returns every type name referenced by e, in order of appearance.
func (e *Expr) Refs() []string {
	var refs []string
	e.walk(func(n *Expr) {
		if n.Kind == ExprName {
			refs = append(refs, n.Name)
		}
	})
	return refs
}

func (e *Expr) walk(fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	e.Key.walk(fn)
	e.Elem.walk(fn)
	for _, item := range e.Items {
		item.walk(fn)
	}
	e.Return.walk(fn)
	for _, field := range e.Fields {
		field.Type.walk(fn)
	}
	for _, method := range e.Methods {
		method.Sig.walk(fn)
	}
}

// String renders e in expression syntax. Text produced by Table.String parses
// back to an expression that renders the same text. A method whose signature
// names a function type renders as "name Type", because the name is resolved
// only when the unit is loaded.
func (e *Expr) String() string {
	var b strings.Builder
	e.format(&b)
	return b.String()
}

func (e *Expr) format(b *strings.Builder) {
	switch e.Kind {
	case ExprName:
		b.WriteString(e.Name)
	case ExprStruct:
		if len(e.Fields) == 0 {
			b.WriteString("struct {}")
			return
		}
		b.WriteString("struct { ")
		for i, field := range e.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(field.Name)
			b.WriteString(": ")
			field.Type.format(b)
		}
		b.WriteString(" }")
	case ExprInterface:
		if len(e.Methods) == 0 {
			b.WriteString("interface {}")
			return
		}
		b.WriteString("interface { ")
		for i, method := range e.Methods {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(method.Name)
			method.Sig.formatSignature(b)
		}
		b.WriteString(" }")
	case ExprFunc:
		b.WriteString("fn")
		e.formatSignature(b)
	case ExprPointer:
		b.WriteString("&")
		e.Elem.format(b)
	case ExprArray:
		b.WriteString("[")
		e.Elem.format(b)
		b.WriteString("]")
	case ExprTable:
		b.WriteString("{")
		e.Key.format(b)
		b.WriteString(": ")
		e.Elem.format(b)
		b.WriteString("}")
	case ExprTuple:
		b.WriteString("(")
		formatList(b, e.Items)
		b.WriteString(")")
	}
}

func (e *Expr) formatSignature(b *strings.Builder) {
	if e.Kind != ExprFunc {
		b.WriteString(" ")
		e.format(b)
		return
	}
	b.WriteString("(")
	formatList(b, e.Items)
	b.WriteString(")")
	if e.Return != nil {
		b.WriteString(" -> ")
		e.Return.format(b)
	}
}

func formatList(b *strings.Builder, items []*Expr) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		item.format(b)
	}
}

// ParseExpr parses a type expression:
//
//	Name | &T | [T] | {K: V} | (A, B) | fn(A, B) -> R
//	struct { x: T, y: U } | interface { m(A) -> R; n() }
func ParseExpr(src string) (expr *Expr, err error) {
	p := &parser{}
	p.scanner.Init(strings.NewReader(src))
	p.scanner.Mode = scanner.ScanIdents
	p.scanner.Error = func(s *scanner.Scanner, msg string) {
		p.fail(msg)
	}

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(parseError)
			if !ok {
				panic(r)
			}
			expr, err = nil, fmt.Errorf("%w: %q: %s", ErrSyntax, src, perr.msg)
		}
	}()

	p.next()
	expr = p.parseType()
	if p.tok != scanner.EOF {
		p.unexpected()
	}
	return expr, nil
}

type parseError struct {
	msg string
}

type parser struct {
	scanner scanner.Scanner
	tok     rune
	text    string
}

func (p *parser) next() {
	p.tok = p.scanner.Scan()
	p.text = p.scanner.TokenText()
}

func (p *parser) fail(format string, args ...any) {
	panic(parseError{msg: fmt.Sprintf("column %d: %s", p.scanner.Position.Column, fmt.Sprintf(format, args...))})
}

func (p *parser) unexpected() {
	if p.tok == scanner.EOF {
		p.fail("unexpected end of expression")
	}
	p.fail("unexpected %q", p.text)
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.unexpected()
	}
	p.next()
}

func (p *parser) ident() string {
	if p.tok != scanner.Ident {
		p.unexpected()
	}
	name := p.text
	p.next()
	return name
}

func (p *parser) parseType() *Expr {
	switch p.tok {
	case '&':
		p.next()
		return &Expr{Kind: ExprPointer, Elem: p.parseType()}
	case '[':
		p.next()
		elem := p.parseType()
		p.expect(']')
		return &Expr{Kind: ExprArray, Elem: elem}
	case '{':
		p.next()
		key := p.parseType()
		p.expect(':')
		elem := p.parseType()
		p.expect('}')
		return &Expr{Kind: ExprTable, Key: key, Elem: elem}
	case '(':
		p.next()
		return &Expr{Kind: ExprTuple, Items: p.parseList(')')}
	case scanner.Ident:
		switch p.text {
		case "fn":
			p.next()
			return p.parseSignature()
		case "struct":
			p.next()
			return p.parseStruct()
		case "interface":
			p.next()
			return p.parseInterface()
		}
		return &Expr{Kind: ExprName, Name: p.ident()}
	}
	p.unexpected()
	return nil
}

// parseList parses comma separated types up to and including close.
func (p *parser) parseList(close rune) []*Expr {
	var items []*Expr
	for p.tok != close {
		items = append(items, p.parseType())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(close)
	return items
}

func (p *parser) parseSignature() *Expr {
	p.expect('(')
	sig := &Expr{Kind: ExprFunc, Items: p.parseList(')')}
	if p.tok == '-' {
		p.next()
		p.expect('>')
		sig.Return = p.parseType()
	}
	return sig
}

func (p *parser) parseStruct() *Expr {
	p.expect('{')
	e := &Expr{Kind: ExprStruct}
	for p.tok != '}' {
		name := p.ident()
		p.expect(':')
		e.Fields = append(e.Fields, FieldExpr{Name: name, Type: p.parseType()})
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect('}')
	return e
}

func (p *parser) parseInterface() *Expr {
	p.expect('{')
	e := &Expr{Kind: ExprInterface}
	for p.tok != '}' {
		name := p.ident()
		e.Methods = append(e.Methods, MethodExpr{Name: name, Sig: p.parseSignature()})
		if p.tok != ';' && p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect('}')
	return e
}
