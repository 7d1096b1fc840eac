package goimport

import "errors"

var (
	ErrUnsupported      = errors.New("unsupported Go type")
	ErrPackageLoad      = errors.New("package failed to load")
	ErrNoPackages       = errors.New("no packages matched")
	ErrMultiplePackages = errors.New("directory contained multiple packages")
	ErrTableFrozen      = errors.New("cannot import into a frozen table")
	ErrNameConflict     = errors.New("Go type name conflicts with an existing declaration")
)
