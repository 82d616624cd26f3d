package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/mrcov/internal/application"
)

const sampleYAML = `version: 1
baseline:
  sources: [src/main/java]
  outputs: [build/classes/java/main]
runs:
  - name: test
  - name: java11Test
  - name: java17Test
    trace: build/jacoco/j17.exec
commonRun: test
fixedRun: java11Test
variants:
  - id: java17
    version: "17"
    run: java17Test
    sources: [src/main/java17]
overrides:
  java11:
    sources: [src/main/java11]
    outputs: [build/classes/java/java11]
include: ["*.java", "*.class"]
report:
  format: json
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, ".mrcov.yaml", sampleYAML)

	cfg, err := Loader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected version 1")
	}
	if cfg.ProjectDir != tmp {
		t.Fatalf("expected project dir %s, got %s", tmp, cfg.ProjectDir)
	}
	if len(cfg.Runs) != 3 || cfg.Runs[2].Trace != "build/jacoco/j17.exec" {
		t.Fatalf("unexpected runs %+v", cfg.Runs)
	}
	if cfg.FixedRun != "java11Test" || cfg.CommonRun != "test" {
		t.Fatalf("unexpected runs policy %q %q", cfg.CommonRun, cfg.FixedRun)
	}
	if len(cfg.Variants) != 1 || cfg.Variants[0].Version != "17" {
		t.Fatalf("unexpected variants %+v", cfg.Variants)
	}
	if got := cfg.Overrides["java11"].Outputs; len(got) != 1 || got[0] != "build/classes/java/java11" {
		t.Fatalf("unexpected overrides %+v", cfg.Overrides)
	}
	if cfg.Report.Format != application.OutputJSON {
		t.Fatalf("expected json report format, got %q", cfg.Report.Format)
	}
	if cfg.TraceDir != application.DefaultTraceDir {
		t.Fatalf("expected default trace dir, got %q", cfg.TraceDir)
	}
	if strings.Join(cfg.Include, ",") != "*.java,*.class" {
		t.Fatalf("unexpected include patterns %v", cfg.Include)
	}
}

func TestLoadedConfigRegisters(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, ".mrcov.yaml", sampleYAML)

	cfg, err := Loader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg, err := application.Register(cfg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	run, _ := reg.Runs.Lookup("java17Test")
	if run.TraceFile != filepath.Join(tmp, "build", "jacoco", "j17.exec") {
		t.Fatalf("trace not anchored to the config dir: %s", run.TraceFile)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, ".mrcov.yaml", "baseline:\n  sources: [src]\n  outputs: [classes]\n")

	cfg, err := Loader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected version 1, got %d", cfg.Version)
	}
	if cfg.CommonRun != application.DefaultCommonRun {
		t.Fatalf("expected default common run, got %q", cfg.CommonRun)
	}
}

func TestLoadProjectDir(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, ".mrcov.yaml", "projectDir: lib\n")

	cfg, err := Loader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProjectDir != filepath.Join(tmp, "lib") {
		t.Fatalf("unexpected project dir %s", cfg.ProjectDir)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".mrcov.yaml", ":bad")
	if _, err := (Loader{}).Load(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadUnsupportedVersion(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".mrcov.yaml", "version: 2\n")
	if _, err := (Loader{}).Load(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLoadUnsupportedReportFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".mrcov.yaml", "report:\n  format: xml\n")
	if _, err := (Loader{}).Load(path); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	cfg := application.Config{
		Baseline:  application.RootsConfig{Sources: []string{"src/main/java"}, Outputs: []string{"build/classes/java/main"}},
		Runs:      []application.RunConfig{{Name: "test"}, {Name: "java17Test"}},
		CommonRun: "test",
		FixedRun:  application.FixedRunNone,
		Overrides: map[string]application.RootsConfig{"java17": {Sources: []string{"src/main/java17"}}},
		Include:   []string{"*.java"},
	}
	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"version: 1", "commonRun: test", "fixedRun: none", "java17:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "report:") || strings.Contains(out, "discovery:") {
		t.Fatalf("empty sections must be omitted:\n%s", out)
	}

	path := writeFile(t, t.TempDir(), ".mrcov.yaml", out)
	loaded, err := Loader{}.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.FixedRun != application.FixedRunNone || len(loaded.Runs) != 2 || len(loaded.Include) != 1 {
		t.Fatalf("unexpected reloaded config %+v", loaded)
	}
}

func TestExistsMissing(t *testing.T) {
	ok, err := (Loader{}).Exists(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatalf("expected missing to be false")
	}
}

func TestExistsPresent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "runs:\n")
	ok, err := (Loader{}).Exists(path)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatalf("expected exists to be true")
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	if _, err := (Loader{}).Load(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
