package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"omibyte.io/crow/builder"
	"omibyte.io/crow/internal/logging"
)

// inputOpts are the flags shared by every command that loads declarations.
type inputOpts struct {
	goPackages []string
	goDirs     []string
	dir        string
	tags       string
	verbose    string
	jobs       int
	inline     bool
}

func (o *inputOpts) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	env := builder.Environment()
	jobs := runtime.NumCPU()
	if n, err := strconv.Atoi(env.Value("CROWJOBS")); err == nil && n > 0 {
		jobs = n
	}

	flags.StringSliceVar(&o.goPackages, "go", nil, "Go package patterns to check pairwise")
	flags.StringSliceVar(&o.goDirs, "dir", nil, "Go package directories to check pairwise")
	flags.StringVarP(&o.dir, "chdir", "C", "", "directory the Go package patterns are resolved in")
	flags.StringVarP(&o.tags, "tags", "t", "", "build tags")
	flags.StringVarP(&o.verbose, "verbose", "v", env.Value("CROWVERBOSITY"), "verbosity level (quiet, info, warning, debug)")
	flags.IntVarP(&o.jobs, "jobs", "j", jobs, "number of concurrent checks")
	flags.BoolVar(&o.inline, "inline", false, "reject methods of Go types declared outside of the struct")
}

func (o *inputOpts) options(units []string) builder.Options {
	verbosity, ok := logging.ParseVerbosity(o.verbose)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown output verbosity %q. Defaulting to \"quiet\"\n", o.verbose)
	}

	options := builder.Options{
		Units:                 units,
		GoPackages:            o.goPackages,
		GoDirs:                o.goDirs,
		Dir:                   o.dir,
		Environment:           builder.Environment(),
		MethodsDeclaredInline: o.inline,
		Verbosity:             verbosity,
		Output:                os.Stderr,
		NumJobs:               o.jobs,
	}
	if len(o.tags) > 0 {
		options.BuildTags = strings.Split(o.tags, ",")
	}
	return options
}

func (o *inputOpts) build(ctx context.Context, units []string) (*builder.Report, error) {
	return builder.Build(ctx, o.options(units))
}
