package builder

import (
	"io"

	"omibyte.io/crow/internal/logging"
)

type Options struct {
	// Units are the paths of unit manifests to check.
	Units []string

	// GoPackages are go/packages patterns whose declarations are checked
	// pairwise. GoDirs are package directories parsed without the go command.
	GoPackages []string
	GoDirs     []string

	Dir         string
	Environment Env
	BuildTags   []string

	// MethodsDeclaredInline applies to Go inputs. Manifests set it themselves.
	MethodsDeclaredInline bool

	Verbosity logging.Verbosity
	Output    io.Writer
	NumJobs   int
}
