package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/pathutil"
)

const currentVersion = 1

// Loader reads .mrcov.yaml files, or .mrcov.hcl files by extension.
type Loader struct{}

type fileConfig struct {
	Version    int                  `yaml:"version"`
	ProjectDir string               `yaml:"projectDir,omitempty"`
	Baseline   fileRoots            `yaml:"baseline"`
	TraceDir   string               `yaml:"traceDir,omitempty"`
	Runs       []fileRun            `yaml:"runs"`
	CommonRun  string               `yaml:"commonRun"`
	FixedRun   string               `yaml:"fixedRun,omitempty"`
	Discovery  *fileDiscovery       `yaml:"discovery,omitempty"`
	Variants   []fileVariant        `yaml:"variants,omitempty"`
	Overrides  map[string]fileRoots `yaml:"overrides,omitempty"`
	Include    []string             `yaml:"include,omitempty"`
	Report     *fileReport          `yaml:"report,omitempty"`
}

type fileRoots struct {
	Sources []string `yaml:"sources,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

type fileRun struct {
	Name  string `yaml:"name"`
	Trace string `yaml:"trace,omitempty"`
}

type fileDiscovery struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Suffix   string `yaml:"suffix,omitempty"`
}

type fileVariant struct {
	ID      string   `yaml:"id"`
	Version string   `yaml:"version,omitempty"`
	Run     string   `yaml:"run"`
	Sources []string `yaml:"sources,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

type fileReport struct {
	JobSuffix string `yaml:"jobSuffix,omitempty"`
	Dir       string `yaml:"dir,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l Loader) Load(path string) (application.Config, error) {
	clean, err := pathutil.ValidatePath(path)
	if err != nil {
		return application.Config{}, fmt.Errorf("config path: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return loadHCL(clean, path)
	}

	raw, err := os.ReadFile(clean)
	if err != nil {
		return application.Config{}, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return application.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return fromFile(cfg, path)
}

// fromFile applies defaults and anchors the project dir to the directory
// holding the config file.
func fromFile(fc fileConfig, path string) (application.Config, error) {
	if fc.Version == 0 {
		fc.Version = currentVersion
	}
	if fc.Version != currentVersion {
		return application.Config{}, fmt.Errorf("unsupported config version %d (expected %d)", fc.Version, currentVersion)
	}

	projectDir := filepath.Dir(path)
	if fc.ProjectDir != "" {
		if filepath.IsAbs(fc.ProjectDir) {
			projectDir = fc.ProjectDir
		} else {
			projectDir = filepath.Join(projectDir, fc.ProjectDir)
		}
	}

	cfg := application.Config{
		Version:    fc.Version,
		ProjectDir: filepath.Clean(projectDir),
		Baseline:   application.RootsConfig{Sources: fc.Baseline.Sources, Outputs: fc.Baseline.Outputs},
		TraceDir:   fc.TraceDir,
		CommonRun:  fc.CommonRun,
		FixedRun:   fc.FixedRun,
		Include:    fc.Include,
	}
	if cfg.TraceDir == "" {
		cfg.TraceDir = application.DefaultTraceDir
	}
	if cfg.CommonRun == "" {
		cfg.CommonRun = application.DefaultCommonRun
	}
	for _, r := range fc.Runs {
		cfg.Runs = append(cfg.Runs, application.RunConfig{Name: r.Name, Trace: r.Trace})
	}
	if fc.Discovery != nil {
		cfg.Discovery = application.DiscoveryConfig{
			Disabled: fc.Discovery.Disabled,
			Prefix:   fc.Discovery.Prefix,
			Suffix:   fc.Discovery.Suffix,
		}
	}
	for _, v := range fc.Variants {
		cfg.Variants = append(cfg.Variants, application.VariantConfig{
			ID:      v.ID,
			Version: v.Version,
			Run:     v.Run,
			Sources: v.Sources,
			Outputs: v.Outputs,
		})
	}
	if len(fc.Overrides) > 0 {
		cfg.Overrides = make(map[string]application.RootsConfig, len(fc.Overrides))
		for id, roots := range fc.Overrides {
			cfg.Overrides[id] = application.RootsConfig{Sources: roots.Sources, Outputs: roots.Outputs}
		}
	}
	if fc.Report != nil {
		format := application.OutputFormat(strings.ToLower(fc.Report.Format))
		switch format {
		case "", application.OutputYAML, application.OutputJSON:
		default:
			return application.Config{}, fmt.Errorf("unsupported report format %q (expected yaml or json)", fc.Report.Format)
		}
		cfg.Report = application.ReportConfig{JobSuffix: fc.Report.JobSuffix, Dir: fc.Report.Dir, Format: format}
	}
	return cfg, nil
}

// Write encodes cfg as YAML. Paths are written as given; ProjectDir is
// implied by where the file is stored.
func Write(w io.Writer, cfg application.Config) error {
	version := cfg.Version
	if version == 0 {
		version = currentVersion
	}
	out := fileConfig{
		Version:   version,
		Baseline:  fileRoots{Sources: cfg.Baseline.Sources, Outputs: cfg.Baseline.Outputs},
		TraceDir:  cfg.TraceDir,
		CommonRun: cfg.CommonRun,
		FixedRun:  cfg.FixedRun,
		Include:   cfg.Include,
	}
	for _, r := range cfg.Runs {
		out.Runs = append(out.Runs, fileRun{Name: r.Name, Trace: r.Trace})
	}
	if d := cfg.Discovery; d != (application.DiscoveryConfig{}) {
		out.Discovery = &fileDiscovery{Disabled: d.Disabled, Prefix: d.Prefix, Suffix: d.Suffix}
	}
	for _, v := range cfg.Variants {
		out.Variants = append(out.Variants, fileVariant{ID: v.ID, Version: v.Version, Run: v.Run, Sources: v.Sources, Outputs: v.Outputs})
	}
	if len(cfg.Overrides) > 0 {
		out.Overrides = make(map[string]fileRoots, len(cfg.Overrides))
		for id, roots := range cfg.Overrides {
			out.Overrides[id] = fileRoots{Sources: roots.Sources, Outputs: roots.Outputs}
		}
	}
	if r := cfg.Report; r != (application.ReportConfig{}) {
		out.Report = &fileReport{JobSuffix: r.JobSuffix, Dir: r.Dir, Format: string(r.Format)}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}
