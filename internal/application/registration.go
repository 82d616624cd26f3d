package application

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/mrcov/internal/domain"
	"github.com/felixgeelhaar/mrcov/internal/pathutil"
)

// FixedRunMode selects how the fixed run is chosen.
type FixedRunMode int

const (
	FixedRunModeAuto FixedRunMode = iota
	FixedRunModeNone
	FixedRunModeNamed
)

// FixedRunPolicy decides the run merged into every report besides the
// common run and the variant's own run.
type FixedRunPolicy struct {
	Mode FixedRunMode
	Run  domain.RunRef
}

// Resolve returns the fixed run for the discovered variants, or "" when no
// fixed run applies. variants must be sorted.
func (p FixedRunPolicy) Resolve(variants []domain.Variant) domain.RunRef {
	switch p.Mode {
	case FixedRunModeNamed:
		return p.Run
	case FixedRunModeNone:
		return ""
	}
	if len(variants) == 0 {
		return ""
	}
	return variants[0].Run
}

func (p FixedRunPolicy) String() string {
	switch p.Mode {
	case FixedRunModeNamed:
		return string(p.Run)
	case FixedRunModeNone:
		return FixedRunNone
	}
	return FixedRunAuto
}

// OverrideRoots are the override roots registered for one release identifier.
type OverrideRoots struct {
	Sources domain.FileRoot
	Outputs domain.FileRoot
}

// Registration is the immutable snapshot taken at the end of the
// registration phase. Resolution only ever reads it.
type Registration struct {
	ProjectDir        string
	Baseline          domain.Baseline
	Runs              domain.Runs
	CommonRun         domain.RunRef
	FixedRun          FixedRunPolicy
	Convention        domain.NamingConvention
	DiscoveryDisabled bool
	JobSuffix         string
	ReportDir         string
	DescriptorFormat  OutputFormat
	Include           domain.IncludeFilter

	registry  []domain.Variant
	overrides map[string]OverrideRoots
}

// Registry returns the explicitly registered variants in declaration order.
func (r Registration) Registry() []domain.Variant {
	return append([]domain.Variant(nil), r.registry...)
}

// Overrides returns the override roots registered for a release identifier.
func (r Registration) Overrides(id string) (OverrideRoots, bool) {
	o, ok := r.overrides[id]
	return o, ok
}

// OverrideIDs lists the identifiers with registered override roots.
func (r Registration) OverrideIDs() []string {
	ids := make([]string, 0, len(r.overrides))
	for id := range r.overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Roots returns every configured directory, baseline first.
func (r Registration) Roots() []string {
	var dirs []string
	dirs = append(dirs, r.Baseline.Sources.Dirs()...)
	dirs = append(dirs, r.Baseline.Outputs.Dirs()...)
	for _, v := range r.registry {
		dirs = append(dirs, v.Sources.Dirs()...)
		dirs = append(dirs, v.Outputs.Dirs()...)
	}
	for _, id := range r.OverrideIDs() {
		o := r.overrides[id]
		dirs = append(dirs, o.Sources.Dirs()...)
		dirs = append(dirs, o.Outputs.Dirs()...)
	}
	return domain.NewFileRoot(dirs...).Dirs()
}

// Register validates cfg and freezes it into a Registration. Relative paths
// are anchored to cfg.ProjectDir.
func Register(cfg Config) (Registration, error) {
	base := cfg.ProjectDir
	reg := Registration{
		ProjectDir:        base,
		DiscoveryDisabled: cfg.Discovery.Disabled,
		JobSuffix:         defaultString(cfg.Report.JobSuffix, DefaultJobSuffix),
		DescriptorFormat:  OutputYAML,
		overrides:         make(map[string]OverrideRoots, len(cfg.Overrides)),
	}
	if cfg.Report.Format == OutputJSON {
		reg.DescriptorFormat = OutputJSON
	}

	reportDir, err := pathutil.Anchor(base, defaultString(cfg.Report.Dir, DefaultReportDir))
	if err != nil {
		return Registration{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: cfg.Report.Dir, Context: "report dir: " + err.Error()}
	}
	reg.ReportDir = reportDir

	reg.Convention = domain.DefaultNamingConvention()
	if cfg.Discovery.Prefix != "" || cfg.Discovery.Suffix != "" {
		reg.Convention = domain.NamingConvention{Prefix: cfg.Discovery.Prefix, Suffix: cfg.Discovery.Suffix}
	}

	sources, err := anchorRoot(base, cfg.Baseline.Sources, "baseline sources")
	if err != nil {
		return Registration{}, err
	}
	outputs, err := anchorRoot(base, cfg.Baseline.Outputs, "baseline outputs")
	if err != nil {
		return Registration{}, err
	}
	if sources.IsEmpty() {
		return Registration{}, &domain.ConfigError{Kind: domain.ErrMissingRoot, Name: "sources", Context: "baseline"}
	}
	if outputs.IsEmpty() {
		return Registration{}, &domain.ConfigError{Kind: domain.ErrMissingRoot, Name: "outputs", Context: "baseline"}
	}
	reg.Baseline = domain.Baseline{Sources: sources, Outputs: outputs}

	include, err := domain.NewIncludeFilter(cfg.Include...)
	if err != nil {
		return Registration{}, err
	}
	reg.Include = include

	runs, err := registerRuns(base, cfg)
	if err != nil {
		return Registration{}, err
	}
	reg.Runs = runs

	common := domain.RunRef(strings.TrimSpace(cfg.CommonRun))
	if common == "" {
		return Registration{}, &domain.ConfigError{Kind: domain.ErrUnknownRun, Name: "", Context: "common run is not set"}
	}
	if _, err := runs.Require(common, "common run"); err != nil {
		return Registration{}, err
	}
	reg.CommonRun = common

	switch fixed := strings.TrimSpace(cfg.FixedRun); fixed {
	case "", FixedRunAuto:
		reg.FixedRun = FixedRunPolicy{Mode: FixedRunModeAuto}
	case FixedRunNone:
		reg.FixedRun = FixedRunPolicy{Mode: FixedRunModeNone}
	default:
		if _, err := runs.Require(domain.RunRef(fixed), "fixed run"); err != nil {
			return Registration{}, err
		}
		reg.FixedRun = FixedRunPolicy{Mode: FixedRunModeNamed, Run: domain.RunRef(fixed)}
	}

	seen := make(map[string]struct{}, len(cfg.Variants))
	for _, vc := range cfg.Variants {
		v, err := registerVariant(base, runs, vc)
		if err != nil {
			return Registration{}, err
		}
		if _, dup := seen[v.ID]; dup {
			return Registration{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: v.ID, Context: "variant registered twice"}
		}
		seen[v.ID] = struct{}{}
		reg.registry = append(reg.registry, v)
	}

	for id, roots := range cfg.Overrides {
		if strings.TrimSpace(id) == "" {
			return Registration{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: id, Context: "override identifier"}
		}
		src, err := anchorRoot(base, roots.Sources, "overrides."+id+".sources")
		if err != nil {
			return Registration{}, err
		}
		out, err := anchorRoot(base, roots.Outputs, "overrides."+id+".outputs")
		if err != nil {
			return Registration{}, err
		}
		reg.overrides[id] = OverrideRoots{Sources: src, Outputs: out}
	}

	return reg, nil
}

func registerRuns(base string, cfg Config) (domain.Runs, error) {
	traceDir := defaultString(cfg.TraceDir, DefaultTraceDir)
	seen := make(map[string]struct{}, len(cfg.Runs))
	runs := make([]domain.Run, 0, len(cfg.Runs))
	for _, rc := range cfg.Runs {
		name := strings.TrimSpace(rc.Name)
		if name == "" || strings.ContainsAny(name, " \t/\\") {
			return domain.Runs{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: rc.Name, Context: "run name"}
		}
		if _, dup := seen[name]; dup {
			return domain.Runs{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: name, Context: "run registered twice"}
		}
		seen[name] = struct{}{}

		trace := rc.Trace
		if trace == "" {
			trace = filepath.Join(traceDir, name+DefaultTraceExt)
		}
		anchored, err := pathutil.Anchor(base, trace)
		if err != nil {
			return domain.Runs{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: name, Context: "trace file: " + err.Error()}
		}
		runs = append(runs, domain.Run{Name: domain.RunRef(name), TraceFile: anchored})
	}
	return domain.NewRuns(runs...), nil
}

func registerVariant(base string, runs domain.Runs, vc VariantConfig) (domain.Variant, error) {
	id := strings.TrimSpace(vc.ID)
	if id == "" {
		return domain.Variant{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: vc.ID, Context: "variant id"}
	}
	run := domain.RunRef(strings.TrimSpace(vc.Run))
	if _, err := runs.Require(run, "run of variant "+id); err != nil {
		return domain.Variant{}, err
	}
	src, err := anchorRoot(base, vc.Sources, "variants."+id+".sources")
	if err != nil {
		return domain.Variant{}, err
	}
	out, err := anchorRoot(base, vc.Outputs, "variants."+id+".outputs")
	if err != nil {
		return domain.Variant{}, err
	}
	version := vc.Version
	if version == "" {
		version = id
	}
	return domain.Variant{ID: id, Version: version, Run: run, Sources: src, Outputs: out}, nil
}

func anchorRoot(base string, dirs []string, role string) (domain.FileRoot, error) {
	anchored := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		p, err := pathutil.Anchor(base, dir)
		if err != nil {
			return domain.FileRoot{}, &domain.ConfigError{Kind: domain.ErrInvalidName, Name: dir, Context: role + ": " + err.Error()}
		}
		anchored = append(anchored, p)
	}
	return domain.NewFileRoot(anchored...), nil
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
