package unit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML description of a compilation unit's declarations.
type Manifest struct {
	Unit    string       `yaml:"unit"`
	Options Options      `yaml:"options"`
	Types   []TypeDecl   `yaml:"types"`
	Aliases []AliasDecl  `yaml:"aliases"`
	Methods []MethodDecl `yaml:"methods"`
	Checks  []CheckDecl  `yaml:"checks"`
}

type Options struct {
	AllowOverloads        bool `yaml:"allowOverloads"`
	MethodsDeclaredInline bool `yaml:"methodsDeclaredInline"`
}

// TypeDecl declares a named type.
type TypeDecl struct {
	Name string  `yaml:"name"`
	Type TypeRef `yaml:"type"`
}

type AliasDecl struct {
	Name string  `yaml:"name"`
	Type TypeRef `yaml:"type"`
}

// MethodDecl attaches a method to a struct from outside of its body.
type MethodDecl struct {
	Receiver string  `yaml:"receiver"`
	Name     string  `yaml:"name"`
	Sig      TypeRef `yaml:"sig"`
	Native   string  `yaml:"native"`
}

// CheckDecl asks whether a concrete type can be coerced to an interface.
type CheckDecl struct {
	Concrete  TypeRef     `yaml:"concrete"`
	Interface TypeRef     `yaml:"interface"`
	Expect    Expectation `yaml:"expect"`
}

type Expectation string

const (
	ExpectNothing     Expectation = ""
	ExpectSatisfied   Expectation = "satisfied"
	ExpectUnsatisfied Expectation = "unsatisfied"
)

func (e *Expectation) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch Expectation(s) {
	case ExpectNothing, ExpectSatisfied, ExpectUnsatisfied:
		*e = Expectation(s)
		return nil
	default:
		return fmt.Errorf("line %d: %w: %q", value.Line, ErrBadExpectation, s)
	}
}

// TypeRef is a type expression in a manifest. It is written either as an
// expression string or, for bodies that carry inline methods, as a mapping with
// a struct or interface key.
type TypeRef struct {
	Expr *Expr
}

type fieldBody struct {
	Name string  `yaml:"name"`
	Type TypeRef `yaml:"type"`
}

type methodBody struct {
	Name   string  `yaml:"name"`
	Sig    TypeRef `yaml:"sig"`
	Native string  `yaml:"native"`
}

type typeBody struct {
	Struct *struct {
		Fields  []fieldBody  `yaml:"fields"`
		Methods []methodBody `yaml:"methods"`
	} `yaml:"struct"`
	Interface *struct {
		Methods []methodBody `yaml:"methods"`
	} `yaml:"interface"`
}

func (r *TypeRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		expr, err := ParseExpr(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		r.Expr = expr
		return nil
	case yaml.MappingNode:
		var body typeBody
		if err := value.Decode(&body); err != nil {
			return err
		}
		switch {
		case body.Struct != nil && body.Interface == nil:
			expr := &Expr{Kind: ExprStruct}
			for _, field := range body.Struct.Fields {
				expr.Fields = append(expr.Fields, FieldExpr{Name: field.Name, Type: field.Type.Expr})
			}
			for _, method := range body.Struct.Methods {
				expr.Methods = append(expr.Methods, MethodExpr{Name: method.Name, Sig: method.Sig.Expr, Native: method.Native})
			}
			r.Expr = expr
		case body.Interface != nil && body.Struct == nil:
			expr := &Expr{Kind: ExprInterface}
			for _, method := range body.Interface.Methods {
				if len(method.Native) > 0 {
					return fmt.Errorf("line %d: %w: interface method %s", value.Line, ErrNativeOnInterface, method.Name)
				}
				expr.Methods = append(expr.Methods, MethodExpr{Name: method.Name, Sig: method.Sig.Expr})
			}
			r.Expr = expr
		default:
			return fmt.Errorf("line %d: %w: expected exactly one of struct or interface", value.Line, ErrBadTypeRef)
		}
		return nil
	default:
		return fmt.Errorf("line %d: %w", value.Line, ErrBadTypeRef)
	}
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var m Manifest
	if err := decoder.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyManifest
		}
		return nil, err
	}
	return &m, nil
}

func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(m.Unit) == 0 {
		m.Unit = path
	}
	return m, nil
}
