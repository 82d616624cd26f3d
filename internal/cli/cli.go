package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/autodetect"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/config"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/filetree"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/jobstore"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/report"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/runs"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/watcher"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/wizard"
	"github.com/felixgeelhaar/mrcov/internal/mcp"
)

// Exit codes.
const (
	exitOK           = 0
	exitVerifyFailed = 1
	exitUsage        = 2
	exitResolution   = 3
	exitRegistration = 4
	exitWizard       = 5
)

// Environment variables read as flag defaults.
const (
	EnvConfig   = "MRCOV_CONFIG"
	EnvLogLevel = "MRCOV_LOG_LEVEL"
)

type Service interface {
	Plan(ctx context.Context, opts application.PlanOptions) (application.Plan, error)
	Report(ctx context.Context, opts application.ReportOptions) (application.ReportResult, error)
	Verify(ctx context.Context, opts application.VerifyOptions) (application.VerifyResult, error)
	Run(ctx context.Context, opts application.RunOptions) (application.VerifyResult, error)
	Detect(ctx context.Context, opts application.DetectOptions) (application.Config, error)
	Config(ctx context.Context, configPath string) (application.Config, error)
	Watch(ctx context.Context, opts application.WatchOptions, watcher application.FileWatcher, callback application.WatchCallback) error
}

var (
	initWizard = wizard.Run
	serveMCP   = func(ctx context.Context, svc mcp.Service, cfg mcp.Config) error {
		return mcp.New(svc, cfg).Run(ctx)
	}
)

func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	global := flag.NewFlagSet("mrcov", flag.ContinueOnError)
	global.SetOutput(stderr)
	logLevel := global.String("log-level", os.Getenv(EnvLogLevel), "Log level: debug|info|warn|error")
	global.Usage = func() { usage(stderr) }
	if len(args) < 2 {
		usage(stderr)
		return exitUsage
	}
	if err := global.Parse(args[1:]); err != nil {
		return exitUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr)
		return exitUsage
	}

	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New(stderr, *logLevel))
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "plan":
		fs := flag.NewFlagSet("plan", flag.ExitOnError)
		configPath := configFlag(fs)
		output := outputFlags(fs)
		verbose := fs.Bool("v", false, "List every effective file and trace")
		jobs := jobFlag(fs)
		_ = fs.Parse(cmdArgs)
		if !*verbose {
			_, err := svc.Plan(ctx, application.PlanOptions{ConfigPath: *configPath, Output: *output, Jobs: *jobs})
			return exitCode(err, stderr)
		}
		plan, err := svc.Plan(ctx, application.PlanOptions{ConfigPath: *configPath, Jobs: *jobs})
		if err != nil {
			return exitCode(err, stderr)
		}
		return exitCode(report.Writer{Verbose: true}.Write(stdout, plan, *output), stderr)
	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		configPath := configFlag(fs)
		output := outputFlags(fs)
		requireComplete := fs.Bool("require-complete", false, "Skip jobs whose runs have not recorded execution data")
		jobs := jobFlag(fs)
		_ = fs.Parse(cmdArgs)
		result, err := svc.Report(ctx, application.ReportOptions{ConfigPath: *configPath, Jobs: *jobs, RequireComplete: *requireComplete})
		if err != nil {
			return exitCode(err, stderr)
		}
		return exitCode(printReportResult(result, stdout, *output), stderr)
	case "verify":
		fs := flag.NewFlagSet("verify", flag.ExitOnError)
		configPath := configFlag(fs)
		output := outputFlags(fs)
		jobs := jobFlag(fs)
		_ = fs.Parse(cmdArgs)
		result, err := svc.Verify(ctx, application.VerifyOptions{ConfigPath: *configPath, Jobs: *jobs})
		if len(result.Jobs) > 0 {
			if werr := report.WriteVerify(stdout, result, *output); werr != nil {
				return exitCode(werr, stderr)
			}
		}
		return exitCode(err, stderr)
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		configPath := configFlag(fs)
		output := outputFlags(fs)
		jobs := jobFlag(fs)
		_ = fs.Parse(cmdArgs)
		result, err := svc.Run(ctx, application.RunOptions{ConfigPath: *configPath, Jobs: *jobs})
		if len(result.Jobs) > 0 {
			if werr := report.WriteVerify(stdout, result, *output); werr != nil {
				return exitCode(werr, stderr)
			}
		}
		return exitCode(err, stderr)
	case "detect":
		fs := flag.NewFlagSet("detect", flag.ExitOnError)
		writeConfig := fs.Bool("write-config", false, "Write detected config to the config path")
		configPath := configFlag(fs)
		dir := fs.String("dir", ".", "Project directory")
		force := fs.Bool("force", false, "Overwrite config if it exists")
		_ = fs.Parse(cmdArgs)
		cfg, err := svc.Detect(ctx, application.DetectOptions{ProjectDir: *dir})
		if err != nil {
			return exitCode(err, stderr)
		}
		target := "-"
		if *writeConfig {
			target = *configPath
		}
		if err := writeConfigFile(target, cfg, stdout, *force); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		return exitOK
	case "init":
		fs := flag.NewFlagSet("init", flag.ExitOnError)
		configPath := configFlag(fs)
		dir := fs.String("dir", ".", "Project directory")
		force := fs.Bool("force", false, "Overwrite existing config file")
		noInteractive := fs.Bool("no-interactive", false, "Skip the interactive init wizard")
		_ = fs.Parse(cmdArgs)
		cfg, err := svc.Detect(ctx, application.DetectOptions{ProjectDir: *dir})
		if err != nil {
			return exitCode(err, stderr)
		}
		if !*noInteractive {
			var confirmed bool
			cfg, confirmed, err = initWizard(cfg, stdout, os.Stdin)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return exitWizard
			}
			if !confirmed {
				fmt.Fprintln(stdout, "Init cancelled; no configuration written.")
				return exitOK
			}
		}
		if err := writeConfigFile(*configPath, cfg, stdout, *force); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		fmt.Fprintf(stdout, "Config written to %s\n", *configPath)
		return exitOK
	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		configPath := configFlag(fs)
		debounce := fs.Duration("debounce", 500*time.Millisecond, "Quiet period before a pass")
		jobs := jobFlag(fs)
		_ = fs.Parse(cmdArgs)
		return runWatch(ctx, stdout, stderr, svc, application.WatchOptions{ConfigPath: *configPath, Jobs: *jobs}, *debounce)
	case "mcp":
		fs := flag.NewFlagSet("mcp", flag.ExitOnError)
		configPath := configFlag(fs)
		_ = fs.Parse(cmdArgs)
		mcp.Version = Version
		if err := serveMCP(ctx, svc, mcp.Config{ConfigPath: *configPath}); err != nil {
			fmt.Fprintln(stderr, err)
			return exitResolution
		}
		return exitOK
	case "version":
		fmt.Fprintf(stdout, "mrcov %s (commit %s, built %s)\n", Version, Commit, Date)
		return exitOK
	default:
		usage(stderr)
		return exitUsage
	}
}

// BuildService wires the production adapters.
func BuildService(out *os.File) *application.Service {
	return &application.Service{
		ConfigLoader: config.Loader{},
		Autodetector: autodetect.Detector{},
		NewScanner:   filetree.NewPassScanner,
		Sink:         jobstore.ReportDirSink{},
		Status:       runs.TraceStatus{},
		Executor:     &runs.GradleExecutor{Stdout: out, Stderr: os.Stderr},
		Writer:       report.Writer{},
		Out:          out,
	}
}

func configFlag(fs *flag.FlagSet) *string {
	def := os.Getenv(EnvConfig)
	if def == "" {
		def = application.DefaultConfigPath
	}
	return fs.String("config", def, "Config file path (.yaml or .hcl)")
}

func outputFlags(fs *flag.FlagSet) *application.OutputFormat {
	output := application.OutputText
	fs.Var((*outputValue)(&output), "output", "Output format: text|json|yaml")
	fs.Var((*outputValue)(&output), "o", "Output format: text|json|yaml")
	return &output
}

type outputValue application.OutputFormat

func (o *outputValue) String() string { return string(*o) }

func (o *outputValue) Set(value string) error {
	switch value {
	case string(application.OutputText), string(application.OutputJSON), string(application.OutputYAML):
		*o = outputValue(value)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", value)
	}
}

func jobFlag(fs *flag.FlagSet) *jobList {
	jobs := &jobList{}
	fs.Var(jobs, "job", "Restrict to a job name or release identifier (repeatable)")
	return jobs
}

// jobList implements flag.Value for repeatable --job flags
type jobList []string

func (j *jobList) String() string { return strings.Join(*j, ",") }

func (j *jobList) Set(value string) error {
	*j = append(*j, value)
	return nil
}

func writeConfigFile(path string, cfg application.Config, stdout io.Writer, force bool) error {
	if path == "-" {
		return config.Write(stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return config.Write(file, cfg)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `mrcov [--log-level level] <command>

Commands:
  plan     Resolve the per-release report jobs and print them
  report   Resolve and register the report jobs
  verify   Check that every run a job merges has recorded execution data
  run      Execute the runs the jobs depend on, then verify
  detect   Autodetect the multi-release layout (use --write-config to save)
  init     Run autodetect plus the interactive wizard
  watch    Re-register the jobs whenever a source or class root changes
  mcp      Serve plan and verify over the Model Context Protocol (stdio)
  version  Print version information`)
}

// exitCode maps err to the process exit code and prints it.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, err)
	switch {
	case errors.Is(err, application.ErrRunsIncomplete):
		return exitVerifyFailed
	case errors.Is(err, application.ErrRegistration):
		return exitRegistration
	default:
		return exitResolution
	}
}

func printReportResult(result application.ReportResult, w io.Writer, format application.OutputFormat) error {
	if format == application.OutputJSON || format == application.OutputYAML {
		return report.WriteResult(w, result, format)
	}
	for _, name := range result.Registered {
		fmt.Fprintf(w, "registered %s\n", name)
	}
	for _, name := range result.Skipped {
		fmt.Fprintf(w, "skipped    %s (execution data missing)\n", name)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
	return nil
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, svc Service, opts application.WatchOptions, debounce time.Duration) int {
	w, err := watcher.New(watcher.WithDebounce(debounce))
	if err != nil {
		fmt.Fprintf(stderr, "failed to create watcher: %v\n", err)
		return exitResolution
	}
	defer w.Close()

	// Handle Ctrl+C gracefully
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stdout, "\nStopping watch mode...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(stdout, "Watching source and class roots... (Ctrl+C to stop)")
	fmt.Fprintln(stdout, "")

	callback := func(pass int, result application.ReportResult, passErr error) {
		fmt.Fprintf(stdout, "\n--- Pass #%d at %s ---\n", pass, time.Now().Format("15:04:05"))
		if passErr != nil {
			fmt.Fprintf(stderr, "Registration failed: %v\n", passErr)
			return
		}
		_ = printReportResult(result, stdout, application.OutputText)
	}

	if err := svc.Watch(ctx, opts, w, callback); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return exitOK
		}
		return exitCode(err, stderr)
	}
	return exitOK
}
