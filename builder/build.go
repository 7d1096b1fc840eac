package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"omibyte.io/crow/goimport"
	"omibyte.io/crow/iface"
	"omibyte.io/crow/internal/logging"
	"omibyte.io/crow/types"
	"omibyte.io/crow/unit"
	"omibyte.io/crow/vtable"
)

// Build loads every input, runs its coercion checks and returns the results.
//
// Unsatisfied checks are diagnostics and end up in the report. Any other
// failure is a fault and stops the build.
func Build(ctx context.Context, options Options) (*Report, error) {
	if len(options.Units)+len(options.GoPackages)+len(options.GoDirs) == 0 {
		return nil, ErrNoInputs
	}
	logger := logging.New(options.Verbosity, options.Output)
	report := &Report{}

	for _, path := range options.Units {
		m, err := unit.ParseFile(path)
		if err != nil {
			return nil, errors.Join(ErrLoadFailed, err)
		}
		ur, err := checkManifest(ctx, m, options.NumJobs, logger)
		if err != nil {
			return nil, err
		}
		report.Units = append(report.Units, ur)
	}

	if len(options.GoPackages)+len(options.GoDirs) > 0 {
		ur, err := buildGo(ctx, options, logger)
		if err != nil {
			return nil, err
		}
		report.Units = append(report.Units, ur)
	}
	return report, nil
}

// CheckManifest loads one manifest and runs its checks.
func CheckManifest(ctx context.Context, m *unit.Manifest, options Options) (*UnitReport, error) {
	return checkManifest(ctx, m, options.NumJobs, logging.New(options.Verbosity, options.Output))
}

func checkManifest(ctx context.Context, m *unit.Manifest, jobs int, logger *logging.Logger) (*UnitReport, error) {
	u, err := unit.Load(m, logger)
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, fmt.Errorf("%s: %w", m.Unit, err))
	}
	return runChecks(ctx, u.Name, u.Table, u.ExtractorOptions(), u.Checks, jobs, logger)
}

// buildGo imports the Go inputs into one table and checks every struct against
// every interface.
func buildGo(ctx context.Context, options Options, logger *logging.Logger) (*UnitReport, error) {
	table := types.NewTable(types.Options{})
	var importers []*goimport.Importer

	if len(options.GoPackages) > 0 {
		im, err := goimport.Load(ctx, table, logger, goimport.LoadOptions{
			Dir:  options.Dir,
			Env:  options.Environment.List(),
			Tags: options.BuildTags,
		}, options.GoPackages...)
		if err != nil {
			return nil, errors.Join(ErrLoadFailed, err)
		}
		importers = append(importers, im)
	}
	for _, dir := range options.GoDirs {
		im, err := goimport.LoadDir(table, logger, dir)
		if err != nil {
			return nil, errors.Join(ErrLoadFailed, err)
		}
		importers = append(importers, im)
	}
	if err := table.Freeze(); err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}

	var concretes, interfaces []types.TypeID
	for _, im := range importers {
		concretes = append(concretes, im.Concretes()...)
		interfaces = append(interfaces, im.Interfaces()...)
	}

	checks := make([]unit.Check, 0, len(concretes)*len(interfaces))
	for _, concrete := range concretes {
		for _, target := range interfaces {
			checks = append(checks, unit.Check{Concrete: concrete, Interface: target})
		}
	}

	extractorOptions := iface.ExtractorOptions{MethodsDeclaredInline: options.MethodsDeclaredInline}
	return runChecks(ctx, "go", table, extractorOptions, checks, options.NumJobs, logger)
}

// runChecks evaluates checks on a pool of up to jobs workers. The results keep
// the order of checks.
func runChecks(ctx context.Context, name string, table *types.Table, options iface.ExtractorOptions, checks []unit.Check, jobs int, logger *logging.Logger) (*UnitReport, error) {
	cache := vtable.NewCache(iface.NewChecker(iface.NewExtractor(table, options)), logger)
	report := &UnitReport{
		Name:    name,
		Table:   table,
		Cache:   cache,
		Results: make([]*Result, len(checks)),
	}

	type job struct {
		index int
		check unit.Check
	}
	queue := make(chan job)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fault error
	)
	workers := max(1, min(jobs, len(checks)))
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range queue {
				result, err := runCheck(cache, name, j.check, logger)
				if err != nil {
					mu.Lock()
					fault = errors.Join(fault, err)
					mu.Unlock()
					continue
				}
				report.Results[j.index] = result
			}
		}()
	}

	// Stop queuing once the context is done. Workers finish their current check.
	for i, check := range checks {
		if ctx.Err() != nil {
			break
		}
		queue <- job{index: i, check: check}
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fault != nil {
		return nil, fault
	}
	logger.Printf(logging.Info, "Checked %d pairs in %s\n", len(checks), name)
	return report, nil
}

func runCheck(cache *vtable.Cache, name string, check unit.Check, logger *logging.Logger) (*Result, error) {
	table := cache.Checker().Table()
	result := &Result{
		Unit:          name,
		Concrete:      check.Concrete,
		Interface:     check.Interface,
		ConcreteName:  table.String(check.Concrete),
		InterfaceName: table.String(check.Interface),
		Expect:        check.Expect,
	}

	vt, err := cache.GetOrBuild(check.Concrete, check.Interface)
	var satErr *iface.SatisfactionError
	switch {
	case err == nil:
		result.VTable = vt
		logger.Printf(logging.Debug, "%s satisfies %s\n", result.ConcreteName, result.InterfaceName)
	case errors.As(err, &satErr):
		result.Err = satErr
		logger.Printf(logging.Debug, "%s\n", satErr)
	default:
		return nil, fmt.Errorf("%s: %s as %s: %w", name, result.ConcreteName, result.InterfaceName, err)
	}
	return result, nil
}
