package autodetect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/felixgeelhaar/mrcov/internal/application"
)

// ErrNoLayout is returned when the project has no Gradle Java source layout.
var ErrNoLayout = errors.New("no src/main/java directory found")

var versionDir = regexp.MustCompile(`^java([0-9]+)$`)

// Detector derives a configuration from a Gradle multi-release layout:
// src/main/java plus one src/main/javaNN directory per override variant,
// compiled to build/classes/java/<sourceSet>.
type Detector struct{}

func (d Detector) Detect(projectDir string) (application.Config, error) {
	if projectDir == "" {
		projectDir = "."
	}
	baseDir := filepath.Join(projectDir, "src", "main", "java")
	if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
		return application.Config{}, fmt.Errorf("%w in %s", ErrNoLayout, projectDir)
	}

	overrides := versionDirs(filepath.Join(projectDir, "src", "main"))
	tests := versionDirs(filepath.Join(projectDir, "src", "test"))

	cfg := application.Config{
		Version:    1,
		ProjectDir: filepath.Clean(projectDir),
		Baseline: application.RootsConfig{
			Sources: []string{"src/main/java"},
			Outputs: []string{"build/classes/java/main"},
		},
		TraceDir:  application.DefaultTraceDir,
		CommonRun: application.DefaultCommonRun,
		Runs:      []application.RunConfig{{Name: application.DefaultCommonRun}},
	}
	for _, v := range mergeVersions(overrides, tests) {
		cfg.Runs = append(cfg.Runs, application.RunConfig{Name: "java" + v + "Test"})
	}
	if len(overrides) > 0 {
		cfg.Overrides = make(map[string]application.RootsConfig, len(overrides))
		for _, v := range overrides {
			id := "java" + v
			cfg.Overrides[id] = application.RootsConfig{
				Sources: []string{"src/main/" + id},
				Outputs: []string{"build/classes/java/" + id},
			}
		}
	}
	return cfg, nil
}

// versionDirs returns the version tags of the javaNN directories in dir.
func versionDirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if m := versionDir.FindStringSubmatch(entry.Name()); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

func mergeVersions(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, v := range set {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i])
		b, _ := strconv.Atoi(out[j])
		return a < b
	})
	return out
}
