package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/domain"
	"github.com/felixgeelhaar/mrcov/internal/graph"
)

// Plan is the outcome of one resolution pass.
type Plan struct {
	CommonRun domain.RunRef
	FixedRun  domain.RunRef
	Runs      domain.Runs
	Jobs      []domain.ReportJob
	Graph     *graph.Graph

	// Discovered names every job of the pass, including jobs filtered out
	// of Jobs. Sinks use it to tell filtered jobs from stale ones.
	Discovered []string

	// Where the sinks put the registry and descriptors.
	ReportDir        string
	DescriptorFormat OutputFormat
}

// Job returns the job with the given name or release identifier.
func (p Plan) Job(name string) (domain.ReportJob, bool) {
	for _, j := range p.Jobs {
		if j.Name == name || j.Variant.ID == name {
			return j, true
		}
	}
	return domain.ReportJob{}, false
}

// JobNames returns the job names in plan order.
func (p Plan) JobNames() []string {
	names := make([]string, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		names = append(names, j.Name)
	}
	return names
}

// Known returns the names of every job the pass discovered. Plans built
// without discovery know their jobs only.
func (p Plan) Known() []string {
	if p.Discovered == nil {
		return p.JobNames()
	}
	return append([]string(nil), p.Discovered...)
}

// Filter keeps only the named jobs, each once. Unknown names are an error.
func (p Plan) Filter(names []string) (Plan, error) {
	if len(names) == 0 {
		return p, nil
	}
	out := p
	out.Discovered = p.Known()
	out.Jobs = nil
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		job, ok := p.Job(name)
		if !ok {
			return Plan{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
		}
		if _, dup := seen[job.Name]; dup {
			continue
		}
		seen[job.Name] = struct{}{}
		out.Jobs = append(out.Jobs, job)
	}
	return out, nil
}

// resettable is implemented by scanners that cache snapshots.
type resettable interface {
	Reset()
}

// Planner runs the resolution phase over a Registration.
type Planner struct {
	Scanner TreeScanner
}

// Plan discovers variants and builds one ReportJob per variant. Any error
// aborts the pass; a partial plan is never returned.
func (p *Planner) Plan(ctx context.Context, reg Registration) (Plan, error) {
	log := ctxlog.FromContext(ctx)
	if r, ok := p.Scanner.(resettable); ok {
		r.Reset()
	}

	variants := DiscoverVariants(reg)
	fixed := reg.FixedRun.Resolve(variants)
	log.Debug("discovered variants", "count", len(variants), "fixed_run_policy", reg.FixedRun.String(), "fixed_run", fixed)

	baseSources, err := p.Scanner.Scan(ctx, reg.Baseline.Sources)
	if err != nil {
		return Plan{}, fmt.Errorf("scan baseline sources: %w", err)
	}
	baseOutputs, err := p.Scanner.Scan(ctx, reg.Baseline.Outputs)
	if err != nil {
		return Plan{}, fmt.Errorf("scan baseline outputs: %w", err)
	}

	g := graph.New()
	plan := Plan{
		CommonRun:        reg.CommonRun,
		FixedRun:         fixed,
		Runs:             reg.Runs,
		Graph:            g,
		ReportDir:        reg.ReportDir,
		DescriptorFormat: reg.DescriptorFormat,
	}
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		job, err := p.buildJob(ctx, reg, v, fixed, baseSources, baseOutputs)
		if err != nil {
			return Plan{}, fmt.Errorf("variant %s: %w", v.ID, err)
		}
		if err := g.AddNode(job.Name, graph.KindJob); err != nil {
			return Plan{}, err
		}
		for _, ref := range job.Executions.Runs() {
			if err := g.AddNode(string(ref), graph.KindRun); err != nil {
				return Plan{}, err
			}
			if err := g.AddEdge(string(ref), job.Name); err != nil {
				return Plan{}, err
			}
		}
		log.Info("planned report job", "job", job.Name, "runs", len(job.Executions.Runs()),
			"sources", job.Sources.Len(), "classes", job.Outputs.Len())
		plan.Jobs = append(plan.Jobs, job)
	}

	if _, err := g.TopologicalOrder(); err != nil {
		return Plan{}, err
	}
	plan.Discovered = plan.JobNames()
	return plan, nil
}

func (p *Planner) buildJob(ctx context.Context, reg Registration, v domain.Variant, fixed domain.RunRef, baseSources, baseOutputs domain.TreeSnapshot) (domain.ReportJob, error) {
	execs, err := domain.BuildExecutionSet(reg.Runs, reg.CommonRun, fixed, v.Run)
	if err != nil {
		return domain.ReportJob{}, err
	}
	traces := make([]string, 0, execs.Len())
	for _, ref := range execs.Runs() {
		run, _ := reg.Runs.Lookup(ref)
		traces = append(traces, run.TraceFile)
	}

	overSources, err := p.Scanner.Scan(ctx, v.Sources)
	if err != nil {
		return domain.ReportJob{}, fmt.Errorf("scan override sources: %w", err)
	}
	overOutputs, err := p.Scanner.Scan(ctx, v.Outputs)
	if err != nil {
		return domain.ReportJob{}, fmt.Errorf("scan override outputs: %w", err)
	}
	sources, err := domain.ResolveOverlay(baseSources, overSources)
	if err != nil {
		return domain.ReportJob{}, err
	}
	outputs, err := domain.ResolveOverlay(baseOutputs, overOutputs)
	if err != nil {
		return domain.ReportJob{}, err
	}

	var warnings []string
	if !v.HasOverride() {
		warnings = append(warnings, fmt.Sprintf("no override roots registered for %s; report covers the baseline only", v.ID))
	} else {
		warnings = append(warnings, domain.ConsistencyWarnings(sources, outputs)...)
	}

	return domain.ReportJob{
		Name:       v.ID + reg.JobSuffix,
		Variant:    v,
		Executions: execs,
		TraceFiles: traces,
		Sources:    sources,
		Outputs:    outputs,
		Warnings:   warnings,
	}, nil
}
