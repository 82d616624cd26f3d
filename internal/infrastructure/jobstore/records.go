// Package jobstore hands resolved report jobs to the coverage tool: a job
// registry for the orchestrator and one descriptor file per job.
package jobstore

import (
	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/domain"
	"github.com/felixgeelhaar/mrcov/internal/graph"
)

const registryVersion = 1

// Registry is the persisted form of one plan.
type Registry struct {
	Version   int         `json:"version"`
	CommonRun string      `json:"commonRun"`
	FixedRun  string      `json:"fixedRun,omitempty"`
	Order     []string    `json:"order"`
	Jobs      []JobRecord `json:"jobs"`
}

// Job returns the record registered under name.
func (r Registry) Job(name string) (JobRecord, bool) {
	for _, j := range r.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobRecord{}, false
}

type JobRecord struct {
	Name              string   `json:"name"`
	Variant           string   `json:"variant"`
	Version           string   `json:"version"`
	Run               string   `json:"run"`
	DependsOn         []string `json:"dependsOn"`
	ExecutionData     []string `json:"executionData"`
	Sources           []string `json:"sources"`
	Classes           []string `json:"classes"`
	OverriddenSources int      `json:"overriddenSources"`
	OverriddenClasses int      `json:"overriddenClasses"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Descriptor is the configuration input of the coverage tool for one job.
type Descriptor struct {
	Name          string   `json:"name" yaml:"name"`
	Sources       []string `json:"sources" yaml:"sources"`
	Classes       []string `json:"classes" yaml:"classes"`
	ExecutionData []string `json:"executionData" yaml:"executionData"`
}

// NewRegistry converts the jobs of a plan. The order lists the registered
// jobs and the runs they depend on, every run before the jobs merging its
// data.
func NewRegistry(plan application.Plan) (Registry, error) {
	reg := Registry{
		Version:   registryVersion,
		CommonRun: string(plan.CommonRun),
		FixedRun:  string(plan.FixedRun),
		Jobs:      make([]JobRecord, 0, len(plan.Jobs)),
	}
	for _, job := range plan.Jobs {
		rec := NewJobRecord(job)
		if plan.Graph != nil {
			deps, err := plan.Graph.Dependencies(job.Name)
			if err != nil {
				return Registry{}, err
			}
			rec.DependsOn = deps
		}
		reg.Jobs = append(reg.Jobs, rec)
	}
	order, err := subgraphOrder(plan.Graph, reg.Jobs)
	if err != nil {
		return Registry{}, err
	}
	reg.Order = order
	return reg, nil
}

// Merge folds the registration next into r. Jobs in next replace their
// records; records of jobs the plan still knows but did not register this
// time are kept; records of jobs the plan no longer discovers are dropped.
func (r Registry) Merge(next Registry, plan application.Plan) (Registry, error) {
	fresh := make(map[string]JobRecord, len(next.Jobs))
	for _, rec := range next.Jobs {
		fresh[rec.Name] = rec
	}
	prev := make(map[string]JobRecord, len(r.Jobs))
	for _, rec := range r.Jobs {
		prev[rec.Name] = rec
	}

	merged := next
	merged.Jobs = make([]JobRecord, 0, len(plan.Known()))
	for _, name := range plan.Known() {
		if rec, ok := fresh[name]; ok {
			merged.Jobs = append(merged.Jobs, rec)
			delete(fresh, name)
		} else if rec, ok := prev[name]; ok {
			merged.Jobs = append(merged.Jobs, rec)
		}
	}
	for _, rec := range next.Jobs {
		if _, ok := fresh[rec.Name]; ok {
			merged.Jobs = append(merged.Jobs, rec)
		}
	}

	order, err := subgraphOrder(plan.Graph, merged.Jobs)
	if err != nil {
		return Registry{}, err
	}
	merged.Order = order
	return merged, nil
}

// subgraphOrder is the topological order of g restricted to the jobs and
// the runs they depend on.
func subgraphOrder(g *graph.Graph, jobs []JobRecord) ([]string, error) {
	if g == nil {
		return nil, nil
	}
	full, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(jobs)*4)
	for _, rec := range jobs {
		keep[rec.Name] = struct{}{}
		for _, dep := range rec.DependsOn {
			keep[dep] = struct{}{}
		}
	}
	order := make([]string, 0, len(keep))
	for _, id := range full {
		if _, ok := keep[id]; ok {
			order = append(order, id)
		}
	}
	return order, nil
}

func NewJobRecord(job domain.ReportJob) JobRecord {
	return JobRecord{
		Name:              job.Name,
		Variant:           job.Variant.ID,
		Version:           job.Variant.Version,
		Run:               string(job.Variant.Run),
		ExecutionData:     append([]string(nil), job.TraceFiles...),
		Sources:           job.Sources.Paths(),
		Classes:           job.Outputs.Paths(),
		OverriddenSources: job.Sources.OverrideCount(),
		OverriddenClasses: job.Outputs.OverrideCount(),
		Warnings:          append([]string(nil), job.Warnings...),
	}
}

func NewDescriptor(job domain.ReportJob) Descriptor {
	return Descriptor{
		Name:          job.Name,
		Sources:       job.Sources.Paths(),
		Classes:       job.Outputs.Paths(),
		ExecutionData: append([]string(nil), job.TraceFiles...),
	}
}
