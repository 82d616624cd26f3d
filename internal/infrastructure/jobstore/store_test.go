package jobstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/filetree"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

// samplePlan resolves a small multi-release project laid out in dir.
func samplePlan(t *testing.T, dir string, runs ...string) application.Plan {
	t.Helper()
	touch(t, dir,
		"src/main/java/p/A.java", "src/main/java/p/B.java",
		"build/classes/java/main/p/A.class", "build/classes/java/main/p/B.class",
		"src/main/java17/p/B.java", "build/classes/java/java17/p/B.class",
	)
	cfg := application.Config{
		ProjectDir: dir,
		Baseline:   application.RootsConfig{Sources: []string{"src/main/java"}, Outputs: []string{"build/classes/java/main"}},
		CommonRun:  "test",
		Overrides: map[string]application.RootsConfig{
			"java17": {Sources: []string{"src/main/java17"}, Outputs: []string{"build/classes/java/java17"}},
		},
	}
	for _, r := range append([]string{"test"}, runs...) {
		cfg.Runs = append(cfg.Runs, application.RunConfig{Name: r})
	}
	reg, err := application.Register(cfg)
	require.NoError(t, err)
	plan, err := (&application.Planner{Scanner: &filetree.Scanner{}}).Plan(context.Background(), reg)
	require.NoError(t, err)
	return plan
}

func TestFileStoreRegisterAndLoad(t *testing.T) {
	dir := t.TempDir()
	plan := samplePlan(t, dir, "java11Test", "java17Test")
	store := &FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}

	require.NoError(t, store.Register(context.Background(), plan))

	reg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, registryVersion, reg.Version)
	assert.Equal(t, "test", reg.CommonRun)
	assert.Equal(t, "java11Test", reg.FixedRun)
	require.Len(t, reg.Jobs, 2)

	job, ok := reg.Job("java17JacocoTestReport")
	require.True(t, ok)
	assert.Equal(t, []string{"java11Test", "java17Test", "test"}, job.DependsOn)
	assert.Equal(t, 1, job.OverriddenSources)
	assert.Equal(t, []string{
		filepath.Join(dir, "src/main/java/p/A.java"),
		filepath.Join(dir, "src/main/java17/p/B.java"),
	}, job.Sources)
	assert.Len(t, job.ExecutionData, 3)
	assert.Equal(t, []string{"java11Test", "java17Test", "test", "java11JacocoTestReport", "java17JacocoTestReport"}, reg.Order)
}

func TestFileStoreDropsUndiscoveredJobs(t *testing.T) {
	dir := t.TempDir()
	store := &FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}

	require.NoError(t, store.Register(context.Background(), samplePlan(t, dir, "java11Test", "java17Test")))
	require.NoError(t, store.Register(context.Background(), samplePlan(t, dir, "java17Test")))

	reg, err := store.Load()
	require.NoError(t, err)
	require.Len(t, reg.Jobs, 1)
	assert.Equal(t, "java17JacocoTestReport", reg.Jobs[0].Name)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := &FileStore{Path: filepath.Join(t.TempDir(), "jobs.json")}
	reg, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, reg.Jobs)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := (&FileStore{Path: path}).Load()
	require.Error(t, err)
}

func TestFileStoreConcurrentRegister(t *testing.T) {
	dir := t.TempDir()
	plan := samplePlan(t, dir, "java17Test")
	store := &FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Register(context.Background(), plan)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	reg, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, reg.Jobs, 1)
}

type recordingSink struct {
	calls int
}

func (r *recordingSink) Register(ctx context.Context, plan application.Plan) error {
	r.calls++
	return nil
}

func TestSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	require.NoError(t, Sinks{a, b}.Register(context.Background(), application.Plan{}))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestReportDirSink(t *testing.T) {
	dir := t.TempDir()
	plan := samplePlan(t, dir, "java17Test")
	require.Equal(t, filepath.Join(dir, ".mrcov"), plan.ReportDir)

	require.NoError(t, ReportDirSink{}.Register(context.Background(), plan))

	reg, err := (&FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}).Load()
	require.NoError(t, err)
	assert.Len(t, reg.Jobs, 1)
	assert.FileExists(t, filepath.Join(dir, ".mrcov", DescriptorDir, "java17JacocoTestReport.yaml"))

	plan.ReportDir = ""
	assert.Error(t, ReportDirSink{}.Register(context.Background(), plan))
}

func jobNames(reg Registry) []string {
	names := make([]string, 0, len(reg.Jobs))
	for _, j := range reg.Jobs {
		names = append(names, j.Name)
	}
	return names
}

func TestFileStoreFilteredRegistrationOrdersSubgraph(t *testing.T) {
	dir := t.TempDir()
	plan := samplePlan(t, dir, "java11Test", "java17Test", "java21Test")
	filtered, err := plan.Filter([]string{"java17"})
	require.NoError(t, err)
	store := &FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}

	require.NoError(t, store.Register(context.Background(), filtered))

	reg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"java17JacocoTestReport"}, jobNames(reg))
	assert.Equal(t, []string{"java11Test", "java17Test", "test", "java17JacocoTestReport"}, reg.Order)
}

func TestFileStoreRecoversFromCorruptRegistry(t *testing.T) {
	dir := t.TempDir()
	store := &FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path), 0o750))
	require.NoError(t, os.WriteFile(store.Path, []byte("{"), 0o600))

	require.NoError(t, store.Register(context.Background(), samplePlan(t, dir, "java17Test")))
	reg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"java17JacocoTestReport"}, jobNames(reg))
}

func TestReportDirSinkFilteredRegistrationKeepsSiblings(t *testing.T) {
	dir := t.TempDir()
	plan := samplePlan(t, dir, "java11Test", "java17Test", "java21Test")
	ctx := context.Background()
	require.NoError(t, ReportDirSink{}.Register(ctx, plan))

	filtered, err := plan.Filter([]string{"java17", "java17JacocoTestReport"})
	require.NoError(t, err)
	require.NoError(t, ReportDirSink{}.Register(ctx, filtered))

	reg, err := (&FileStore{Path: filepath.Join(dir, ".mrcov", RegistryFile)}).Load()
	require.NoError(t, err)
	all := []string{"java11JacocoTestReport", "java17JacocoTestReport", "java21JacocoTestReport"}
	assert.Equal(t, all, jobNames(reg))
	for _, name := range all {
		assert.FileExists(t, filepath.Join(dir, ".mrcov", DescriptorDir, name+".yaml"))
		assert.Contains(t, reg.Order, name)
	}
	assert.Len(t, reg.Order, 7)
}
