package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// ErrRegistration marks failures of the registration phase.
var ErrRegistration = errors.New("registration failed")

type Service struct {
	ConfigLoader ConfigLoader
	Autodetector Autodetector
	// NewScanner builds the scanner for each pass. When nil, Scanner is
	// used as is.
	NewScanner ScannerFactory
	Scanner    TreeScanner
	Sink       JobSink
	Status     RunStatus
	Executor   RunExecutor
	Writer     PlanWriter
	Out        io.Writer
}

// Plan resolves every report job and writes the plan to Out in the
// requested format. An empty format only returns the plan.
func (s *Service) Plan(ctx context.Context, opts PlanOptions) (Plan, error) {
	plan, err := s.plan(ctx, opts.ConfigPath, opts.Jobs)
	if err != nil {
		return Plan{}, err
	}
	if opts.Output != "" && s.Writer != nil && s.Out != nil {
		if err := s.Writer.Write(s.Out, plan, opts.Output); err != nil {
			return Plan{}, err
		}
	}
	return plan, nil
}

// Report resolves the jobs and registers them with the sink. Registration
// is all-or-nothing: when planning fails nothing is registered.
func (s *Service) Report(ctx context.Context, opts ReportOptions) (ReportResult, error) {
	plan, err := s.plan(ctx, opts.ConfigPath, opts.Jobs)
	if err != nil {
		return ReportResult{}, err
	}
	if len(plan.Jobs) == 0 {
		return ReportResult{}, &domain.ConfigError{Kind: domain.ErrNoVariants, Name: "", Context: "no run matches the naming convention and no variant is registered"}
	}

	var result ReportResult
	if opts.RequireComplete {
		status, err := s.verifyPlan(ctx, plan)
		if err != nil {
			return ReportResult{}, err
		}
		ready := plan.Jobs[:0:0]
		for i, st := range status.Jobs {
			if st.Ready {
				ready = append(ready, plan.Jobs[i])
			} else {
				result.Skipped = append(result.Skipped, st.Job)
			}
		}
		plan.Jobs = ready
	}

	for _, job := range plan.Jobs {
		for _, w := range job.Warnings {
			result.Warnings = append(result.Warnings, job.Name+": "+w)
		}
	}
	if len(plan.Jobs) > 0 {
		if err := s.Sink.Register(ctx, plan); err != nil {
			return ReportResult{}, fmt.Errorf("register jobs: %w", err)
		}
	}
	result.Registered = plan.JobNames()
	ctxlog.FromContext(ctx).Info("registered report jobs", "count", len(result.Registered), "skipped", len(result.Skipped))
	return result, nil
}

// Verify checks that every run merged by each job has produced its trace.
// Jobs are checked independently; the returned error joins one error per
// incomplete job.
func (s *Service) Verify(ctx context.Context, opts VerifyOptions) (VerifyResult, error) {
	plan, err := s.plan(ctx, opts.ConfigPath, opts.Jobs)
	if err != nil {
		return VerifyResult{}, err
	}
	result, err := s.verifyPlan(ctx, plan)
	if err != nil {
		return VerifyResult{}, err
	}
	return result, result.Err()
}

// Err joins one ErrRunsIncomplete per job that is not ready.
func (r VerifyResult) Err() error {
	var errs []error
	for _, j := range r.Jobs {
		if !j.Ready {
			errs = append(errs, fmt.Errorf("%s: %w: %v", j.Job, ErrRunsIncomplete, j.Missing))
		}
	}
	return errors.Join(errs...)
}

// Run executes the runs the selected jobs depend on, in dependency order,
// then verifies the jobs.
func (s *Service) Run(ctx context.Context, opts RunOptions) (VerifyResult, error) {
	if s.Executor == nil {
		return VerifyResult{}, ErrNoRunnerDefined
	}
	plan, err := s.plan(ctx, opts.ConfigPath, opts.Jobs)
	if err != nil {
		return VerifyResult{}, err
	}
	ids, err := plan.Graph.Prerequisites(plan.JobNames()...)
	if err != nil {
		return VerifyResult{}, err
	}
	runs := make([]domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := plan.Runs.Require(domain.RunRef(id), "prerequisite")
		if err != nil {
			return VerifyResult{}, err
		}
		runs = append(runs, run)
	}
	if err := s.Executor.Execute(ctx, runs); err != nil {
		return VerifyResult{}, fmt.Errorf("execute runs: %w", err)
	}
	result, err := s.verifyPlan(ctx, plan)
	if err != nil {
		return VerifyResult{}, err
	}
	return result, result.Err()
}

// Detect derives a configuration from the project layout.
func (s *Service) Detect(ctx context.Context, opts DetectOptions) (Config, error) {
	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	cfg, err := s.Autodetector.Detect(dir)
	if err != nil {
		return Config{}, err
	}
	ctxlog.FromContext(ctx).Debug("detected layout", "variants", len(cfg.Variants), "runs", len(cfg.Runs))
	return cfg, nil
}

// Config returns the configuration at configPath, or the detected one when
// the file does not exist.
func (s *Service) Config(ctx context.Context, configPath string) (Config, error) {
	return s.loadOrDetect(configPath)
}

// Registration loads the configuration (or detects one) and freezes it.
func (s *Service) Registration(ctx context.Context, configPath string) (Registration, error) {
	cfg, err := s.loadOrDetect(configPath)
	if err != nil {
		return Registration{}, err
	}
	reg, err := Register(cfg)
	if err != nil {
		return Registration{}, fmt.Errorf("%w: %w", ErrRegistration, err)
	}
	return reg, nil
}

func (s *Service) plan(ctx context.Context, configPath string, jobs []string) (Plan, error) {
	reg, err := s.Registration(ctx, configPath)
	if err != nil {
		return Plan{}, err
	}
	scanner := s.Scanner
	if s.NewScanner != nil {
		scanner, err = s.NewScanner(reg.Include)
		if err != nil {
			return Plan{}, err
		}
	}
	planner := &Planner{Scanner: scanner}
	plan, err := planner.Plan(ctx, reg)
	if err != nil {
		return Plan{}, err
	}
	return plan.Filter(jobs)
}

func (s *Service) verifyPlan(ctx context.Context, plan Plan) (VerifyResult, error) {
	var result VerifyResult
	for _, job := range plan.Jobs {
		status := JobStatus{Job: job.Name, Ready: true}
		for _, ref := range job.Executions.Runs() {
			run, err := plan.Runs.Require(ref, "execution data of "+job.Name)
			if err != nil {
				return VerifyResult{}, err
			}
			done, err := s.Status.Completed(ctx, run)
			if err != nil {
				return VerifyResult{}, fmt.Errorf("status of %s: %w", ref, err)
			}
			if !done {
				status.Ready = false
				status.Missing = append(status.Missing, ref)
			}
		}
		result.Jobs = append(result.Jobs, status)
	}
	return result, nil
}

func (s *Service) loadOrDetect(configPath string) (Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	exists, err := s.ConfigLoader.Exists(configPath)
	if err != nil {
		return Config{}, err
	}
	if exists {
		return s.ConfigLoader.Load(configPath)
	}
	if s.Autodetector == nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	return s.Autodetector.Detect(filepath.Dir(configPath))
}
