package application

import (
	"context"
	"io"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/mrcov/internal/domain"
)

type fakeConfigLoader struct {
	exists    bool
	cfg       Config
	existsErr error
	loadErr   error
}

func (f fakeConfigLoader) Exists(path string) (bool, error) {
	return f.exists, f.existsErr
}

func (f fakeConfigLoader) Load(path string) (Config, error) {
	return f.cfg, f.loadErr
}

type fakeAutodetector struct {
	cfg Config
	err error
	dir string
}

func (f *fakeAutodetector) Detect(dir string) (Config, error) {
	f.dir = dir
	return f.cfg, f.err
}

// fakeScanner serves relative file paths per directory.
type fakeScanner struct {
	files  map[string][]string
	scans  int
	resets int
	err    error
}

func (f *fakeScanner) Scan(ctx context.Context, root domain.FileRoot) (domain.TreeSnapshot, error) {
	f.scans++
	if f.err != nil {
		return domain.TreeSnapshot{}, f.err
	}
	snap := domain.TreeSnapshot{Root: root}
	for _, dir := range root.Dirs() {
		rels := append([]string(nil), f.files[dir]...)
		sort.Strings(rels)
		for _, rel := range rels {
			snap.Files = append(snap.Files, domain.TreeFile{Dir: dir, Rel: domain.RelativePath(rel)})
		}
	}
	return snap, nil
}

func (f *fakeScanner) Reset() { f.resets++ }

type fakeSink struct {
	plans []Plan
	err   error
}

func (f *fakeSink) Register(ctx context.Context, plan Plan) error {
	if f.err != nil {
		return f.err
	}
	f.plans = append(f.plans, plan)
	return nil
}

type fakeStatus struct {
	completed map[domain.RunRef]bool
	err       error
}

func (f fakeStatus) Completed(ctx context.Context, run domain.Run) (bool, error) {
	return f.completed[run.Name], f.err
}

type fakeExecutor struct {
	executed []domain.RunRef
	err      error
}

func (f *fakeExecutor) Execute(ctx context.Context, runs []domain.Run) error {
	for _, r := range runs {
		f.executed = append(f.executed, r.Name)
	}
	return f.err
}

type fakeWriter struct {
	last   Plan
	format OutputFormat
	calls  int
}

func (f *fakeWriter) Write(w io.Writer, plan Plan, format OutputFormat) error {
	f.calls++
	f.last = plan
	f.format = format
	return nil
}

type fakeWatcher struct {
	dirs     []string
	includes [][]string
	events   chan struct{}
}

func (f *fakeWatcher) WatchDir(root string) error {
	f.dirs = append(f.dirs, root)
	return nil
}

func (f *fakeWatcher) SetInclude(filter domain.IncludeFilter) {
	f.includes = append(f.includes, filter.Patterns())
}

func (f *fakeWatcher) Events(ctx context.Context) <-chan struct{} {
	return f.events
}

func (f *fakeWatcher) Close() error { return nil }

func (f *fakeWatcher) count(dir string) int {
	n := 0
	for _, d := range f.dirs {
		if d == dir {
			n++
		}
	}
	return n
}

const projectDir = "/p"

func p(rel string) string {
	return filepath.Join(projectDir, rel)
}

// multiReleaseConfig declares a common run, three per-version runs and
// override roots for java11 and java17 only.
func multiReleaseConfig() Config {
	return Config{
		ProjectDir: projectDir,
		Baseline: RootsConfig{
			Sources: []string{"src/main/java"},
			Outputs: []string{"build/classes/java/main"},
		},
		Runs: []RunConfig{
			{Name: "test"},
			{Name: "java11Test"},
			{Name: "java17Test"},
			{Name: "java21Test"},
			{Name: "integrationTest"},
		},
		CommonRun: "test",
		Overrides: map[string]RootsConfig{
			"java11": {Sources: []string{"src/main/java11"}, Outputs: []string{"build/classes/java/java11"}},
			"java17": {Sources: []string{"src/main/java17"}, Outputs: []string{"build/classes/java/java17"}},
		},
	}
}

func multiReleaseScanner() *fakeScanner {
	return &fakeScanner{files: map[string][]string{
		p("src/main/java"):             {"org/x/A.java", "org/x/B.java", "org/x/C.java"},
		p("build/classes/java/main"):   {"org/x/A.class", "org/x/B.class", "org/x/B$Inner.class", "org/x/C.class"},
		p("src/main/java11"):           {"org/x/C.java"},
		p("build/classes/java/java11"): {"org/x/C.class"},
		p("src/main/java17"):           {"org/x/B.java"},
		p("build/classes/java/java17"): {"org/x/B.class", "org/x/B$Inner.class"},
	}}
}
