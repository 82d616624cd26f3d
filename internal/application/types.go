package application

import (
	"context"
	"errors"
	"io"

	"github.com/felixgeelhaar/mrcov/internal/domain"
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Defaults shared by the loaders, the autodetector and the planner.
const (
	DefaultConfigPath = ".mrcov.yaml"
	DefaultTraceDir   = "build/jacoco"
	DefaultTraceExt   = ".exec"
	DefaultJobSuffix  = "JacocoTestReport"
	DefaultReportDir  = ".mrcov"
	DefaultCommonRun  = "test"

	// FixedRunNone disables the fixed run.
	FixedRunNone = "none"
	// FixedRunAuto picks the run of the lowest-version variant.
	FixedRunAuto = "auto"
)

var (
	ErrConfigNotFound  = errors.New("config not found")
	ErrRunsIncomplete  = errors.New("execution data missing")
	ErrUnknownJob      = errors.New("unknown report job")
	ErrNoRunnerDefined = errors.New("no run executor configured")
)

// Config is the declared build, as written by the build author. It is
// turned into an immutable Registration before any resolution happens.
type Config struct {
	Version    int
	ProjectDir string // Directory relative paths are anchored to
	Baseline   RootsConfig
	Runs       []RunConfig
	TraceDir   string
	CommonRun  string
	FixedRun   string // Run name, "auto" (default) or "none"
	Discovery  DiscoveryConfig
	Variants   []VariantConfig
	Overrides  map[string]RootsConfig // Keyed by release identifier
	Include    []string               // File name globs; empty means every file
	Report     ReportConfig
}

type RootsConfig struct {
	Sources []string
	Outputs []string
}

type RunConfig struct {
	Name  string
	Trace string // Defaults to <TraceDir>/<Name>.exec
}

// DiscoveryConfig is the naming convention used to find per-variant runs
// among the registered runs.
type DiscoveryConfig struct {
	Disabled bool
	Prefix   string
	Suffix   string
}

// VariantConfig registers a variant explicitly instead of through the
// naming convention.
type VariantConfig struct {
	ID      string
	Version string
	Run     string
	Sources []string
	Outputs []string
}

type ReportConfig struct {
	JobSuffix string
	Dir       string
	Format    OutputFormat // Descriptor format: yaml or json
}

type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

type Autodetector interface {
	Detect(projectDir string) (Config, error)
}

// TreeScanner enumerates the files under a FileRoot.
type TreeScanner interface {
	Scan(ctx context.Context, root domain.FileRoot) (domain.TreeSnapshot, error)
}

// ScannerFactory builds the scanner of one resolution pass, selecting files
// with the registration's include filter.
type ScannerFactory func(include domain.IncludeFilter) (TreeScanner, error)

// JobSink registers report jobs with the orchestrator.
type JobSink interface {
	Register(ctx context.Context, plan Plan) error
}

// RunStatus answers the test runner's "has completed" question for a run.
type RunStatus interface {
	Completed(ctx context.Context, run domain.Run) (bool, error)
}

// RunExecutor asks the external test runner to execute runs in order.
type RunExecutor interface {
	Execute(ctx context.Context, runs []domain.Run) error
}

type PlanWriter interface {
	Write(w io.Writer, plan Plan, format OutputFormat) error
}

// FileWatcher provides file change notifications.
type FileWatcher interface {
	WatchDir(root string) error
	SetInclude(filter domain.IncludeFilter)
	Events(ctx context.Context) <-chan struct{}
	Close() error
}

// WatchCallback is invoked after every pass in watch mode.
type WatchCallback func(pass int, result ReportResult, err error)

type PlanOptions struct {
	ConfigPath string
	Output     OutputFormat // Empty means the plan is not written
	Jobs       []string     // Job names or release identifiers; empty means all
}

type ReportOptions struct {
	ConfigPath      string
	Jobs            []string
	RequireComplete bool // Refuse to register jobs whose runs have no trace data
}

type ReportResult struct {
	Registered []string `json:"registered" yaml:"registered"`
	Skipped    []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Warnings   []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type VerifyOptions struct {
	ConfigPath string
	Jobs       []string
}

// JobStatus tells whether every run a job merges has recorded its trace.
type JobStatus struct {
	Job     string          `json:"job" yaml:"job"`
	Ready   bool            `json:"ready" yaml:"ready"`
	Missing []domain.RunRef `json:"missing,omitempty" yaml:"missing,omitempty"`
}

type VerifyResult struct {
	Jobs []JobStatus `json:"jobs" yaml:"jobs"`
}

// Ready reports whether every job is ready.
func (r VerifyResult) Ready() bool {
	for _, j := range r.Jobs {
		if !j.Ready {
			return false
		}
	}
	return true
}

type RunOptions struct {
	ConfigPath string
	Jobs       []string
}

type DetectOptions struct {
	ProjectDir string
}

type WatchOptions struct {
	ConfigPath string
	Jobs       []string
}
