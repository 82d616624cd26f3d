package report

import (
	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// PlanView is the serialized form of a plan for JSON and YAML output.
type PlanView struct {
	CommonRun string    `json:"commonRun" yaml:"commonRun"`
	FixedRun  string    `json:"fixedRun,omitempty" yaml:"fixedRun,omitempty"`
	Order     []string  `json:"order" yaml:"order"`
	Jobs      []JobView `json:"jobs" yaml:"jobs"`
}

type JobView struct {
	Name              string     `json:"name" yaml:"name"`
	Variant           string     `json:"variant" yaml:"variant"`
	Version           string     `json:"version" yaml:"version"`
	Runs              []string   `json:"runs" yaml:"runs"`
	ExecutionData     []string   `json:"executionData" yaml:"executionData"`
	Sources           []FileView `json:"sources" yaml:"sources"`
	Classes           []FileView `json:"classes" yaml:"classes"`
	OverriddenSources int        `json:"overriddenSources" yaml:"overriddenSources"`
	OverriddenClasses int        `json:"overriddenClasses" yaml:"overriddenClasses"`
	Warnings          []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type FileView struct {
	Path     string `json:"path" yaml:"path"`
	Relative string `json:"relative" yaml:"relative"`
	Override bool   `json:"override,omitempty" yaml:"override,omitempty"`
}

func NewPlanView(plan application.Plan) (PlanView, error) {
	view := PlanView{
		CommonRun: string(plan.CommonRun),
		FixedRun:  string(plan.FixedRun),
		Jobs:      make([]JobView, 0, len(plan.Jobs)),
	}
	if plan.Graph != nil {
		order, err := plan.Graph.TopologicalOrder()
		if err != nil {
			return PlanView{}, err
		}
		view.Order = order
	}
	for _, job := range plan.Jobs {
		view.Jobs = append(view.Jobs, newJobView(job))
	}
	return view, nil
}

func newJobView(job domain.ReportJob) JobView {
	runs := make([]string, 0, job.Executions.Len())
	for _, ref := range job.Executions.Runs() {
		runs = append(runs, string(ref))
	}
	return JobView{
		Name:              job.Name,
		Variant:           job.Variant.ID,
		Version:           job.Variant.Version,
		Runs:              runs,
		ExecutionData:     append([]string(nil), job.TraceFiles...),
		Sources:           fileViews(job.Sources),
		Classes:           fileViews(job.Outputs),
		OverriddenSources: job.Sources.OverrideCount(),
		OverriddenClasses: job.Outputs.OverrideCount(),
		Warnings:          append([]string(nil), job.Warnings...),
	}
}

func fileViews(set domain.EffectiveFileSet) []FileView {
	files := set.Files()
	out := make([]FileView, 0, len(files))
	for _, f := range files {
		out = append(out, FileView{Path: f.Path(), Relative: string(f.Rel), Override: f.Override})
	}
	return out
}
