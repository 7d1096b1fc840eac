package goimport

import (
	"context"
	"errors"
	"fmt"
	gotypes "go/types"
	"strings"

	"golang.org/x/tools/go/packages"

	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
)

type LoadOptions struct {
	// Dir is the directory patterns are resolved in. Empty means the current
	// directory.
	Dir  string
	Env  []string
	Tags []string
}

// Load type-checks the packages matching patterns and imports them into
// table.
func Load(ctx context.Context, table *types.Table, logger *logging.Logger, options LoadOptions, patterns ...string) (*Importer, error) {
	config := packages.Config{
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedImports | packages.NeedDeps,
		Context: ctx,
		Dir:     options.Dir,
		Env:     options.Env,
		Tests:   false,
	}
	if len(options.Tags) > 0 {
		config.BuildFlags = []string{"-tags=" + strings.Join(options.Tags, ",")}
	}

	pkgs, err := packages.Load(&config, patterns...)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPackages, strings.Join(patterns, " "))
	}

	for _, pkg := range pkgs {
		for _, pkgErr := range pkg.Errors {
			err = errors.Join(err, fmt.Errorf("%w: %s: %s", ErrPackageLoad, pkg.PkgPath, pkgErr))
		}
	}
	if err != nil {
		return nil, err
	}

	roots := make([]*gotypes.Package, len(pkgs))
	for i, pkg := range pkgs {
		logger.Printf(logging.Debug, "Loaded package %s\n", pkg.PkgPath)
		roots[i] = pkg.Types
	}

	im := NewImporter(table, logger)
	if err = im.ImportPackage(roots...); err != nil {
		return nil, err
	}
	return im, nil
}
