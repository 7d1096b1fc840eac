package goimport

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
)

// ParseDir type-checks the single package in dir without the go command.
// Imports are resolved from source. Test packages are ignored.
func ParseDir(fset *token.FileSet, dir string) (*gotypes.Package, error) {
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	for name := range pkgs {
		if strings.HasSuffix(name, "_test") {
			delete(pkgs, name)
		}
	}

	switch len(pkgs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoPackages, dir)
	case 1:
	default:
		names := maps.Keys(pkgs)
		slices.Sort(names)
		return nil, fmt.Errorf("%w: %s contains %s", ErrMultiplePackages, dir, strings.Join(names, ", "))
	}

	var files []*ast.File
	var name string
	for pkgName, pkg := range pkgs {
		name = pkgName
		paths := maps.Keys(pkg.Files)
		slices.Sort(paths)
		for _, path := range paths {
			files = append(files, pkg.Files[path])
		}
	}

	conf := gotypes.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	return conf.Check(name, fset, files, nil)
}

// LoadDir parses the package in dir and imports it into table.
func LoadDir(table *types.Table, logger *logging.Logger, dir string) (*Importer, error) {
	pkg, err := ParseDir(token.NewFileSet(), dir)
	if err != nil {
		return nil, err
	}
	logger.Printf(logging.Debug, "Parsed package %s from %s\n", pkg.Name(), dir)

	im := NewImporter(table, logger)
	if err = im.ImportPackage(pkg); err != nil {
		return nil, err
	}
	return im, nil
}
