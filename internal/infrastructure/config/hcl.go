package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/felixgeelhaar/mrcov/internal/application"
)

// hclFile is the block layout of a .mrcov.hcl file:
//
//	common_run = "test"
//	include    = ["*.java", "*.class"]
//	baseline {
//	  sources = ["src/main/java"]
//	  outputs = ["build/classes/java/main"]
//	}
//	run "java17Test" {}
//	override "java17" {
//	  sources = ["src/main/java17"]
//	}
type hclFile struct {
	Version    int            `hcl:"version,optional"`
	ProjectDir string         `hcl:"project_dir,optional"`
	TraceDir   string         `hcl:"trace_dir,optional"`
	CommonRun  string         `hcl:"common_run,optional"`
	FixedRun   string         `hcl:"fixed_run,optional"`
	Include    []string       `hcl:"include,optional"`
	Baseline   *hclRoots      `hcl:"baseline,block"`
	Runs       []*hclRun      `hcl:"run,block"`
	Discovery  *hclDiscovery  `hcl:"discovery,block"`
	Variants   []*hclVariant  `hcl:"variant,block"`
	Overrides  []*hclOverride `hcl:"override,block"`
	Report     *hclReport     `hcl:"report,block"`
}

type hclRoots struct {
	Sources []string `hcl:"sources,optional"`
	Outputs []string `hcl:"outputs,optional"`
}

type hclRun struct {
	Name  string `hcl:"name,label"`
	Trace string `hcl:"trace,optional"`
}

type hclDiscovery struct {
	Disabled bool   `hcl:"disabled,optional"`
	Prefix   string `hcl:"prefix,optional"`
	Suffix   string `hcl:"suffix,optional"`
}

type hclVariant struct {
	ID      string   `hcl:"id,label"`
	Version string   `hcl:"version,optional"`
	Run     string   `hcl:"run"`
	Sources []string `hcl:"sources,optional"`
	Outputs []string `hcl:"outputs,optional"`
}

type hclOverride struct {
	ID      string   `hcl:"id,label"`
	Sources []string `hcl:"sources,optional"`
	Outputs []string `hcl:"outputs,optional"`
}

type hclReport struct {
	JobSuffix string `hcl:"job_suffix,optional"`
	Dir       string `hcl:"dir,optional"`
	Format    string `hcl:"format,optional"`
}

// loadHCL parses src; path is the configured name, used for messages and
// for anchoring the project dir.
func loadHCL(src, path string) (application.Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(src)
	if diags.HasErrors() {
		return application.Config{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var hf hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &hf)
	if diags.HasErrors() {
		return application.Config{}, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	fc := fileConfig{
		Version:    hf.Version,
		ProjectDir: hf.ProjectDir,
		TraceDir:   hf.TraceDir,
		CommonRun:  hf.CommonRun,
		FixedRun:   hf.FixedRun,
		Include:    hf.Include,
	}
	if hf.Baseline != nil {
		fc.Baseline = fileRoots{Sources: hf.Baseline.Sources, Outputs: hf.Baseline.Outputs}
	}
	for _, r := range hf.Runs {
		fc.Runs = append(fc.Runs, fileRun{Name: r.Name, Trace: r.Trace})
	}
	if hf.Discovery != nil {
		fc.Discovery = &fileDiscovery{Disabled: hf.Discovery.Disabled, Prefix: hf.Discovery.Prefix, Suffix: hf.Discovery.Suffix}
	}
	for _, v := range hf.Variants {
		fc.Variants = append(fc.Variants, fileVariant{ID: v.ID, Version: v.Version, Run: v.Run, Sources: v.Sources, Outputs: v.Outputs})
	}
	if len(hf.Overrides) > 0 {
		fc.Overrides = make(map[string]fileRoots, len(hf.Overrides))
		for _, o := range hf.Overrides {
			if _, dup := fc.Overrides[o.ID]; dup {
				return application.Config{}, fmt.Errorf("%s: override %q declared twice", path, o.ID)
			}
			fc.Overrides[o.ID] = fileRoots{Sources: o.Sources, Outputs: o.Outputs}
		}
	}
	if hf.Report != nil {
		fc.Report = &fileReport{JobSuffix: hf.Report.JobSuffix, Dir: hf.Report.Dir, Format: hf.Report.Format}
	}
	return fromFile(fc, path)
}
