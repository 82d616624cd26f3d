// Package mcp exposes report job planning to agents over the Model Context
// Protocol.
package mcp

import (
	"context"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/report"
)

// Service defines the application operations needed by MCP.
type Service interface {
	// Tools
	Plan(ctx context.Context, opts application.PlanOptions) (application.Plan, error)
	Report(ctx context.Context, opts application.ReportOptions) (application.ReportResult, error)
	Verify(ctx context.Context, opts application.VerifyOptions) (application.VerifyResult, error)

	// Resources
	Config(ctx context.Context, configPath string) (application.Config, error)
}

// Config holds MCP server configuration.
type Config struct {
	ConfigPath string // Path to .mrcov.yaml (default: ".mrcov.yaml")
}

func DefaultConfig() Config {
	return Config{ConfigPath: application.DefaultConfigPath}
}

// JobsInput selects the config and the jobs a tool works on.
type JobsInput struct {
	ConfigPath string   `json:"configPath,omitempty" jsonschema:"Path to the .mrcov.yaml config file"`
	Jobs       []string `json:"jobs,omitempty" jsonschema:"Job names or release identifiers; empty means all"`
}

// ReportInput defines the input parameters for the report tool.
type ReportInput struct {
	ConfigPath      string   `json:"configPath,omitempty" jsonschema:"Path to the .mrcov.yaml config file"`
	Jobs            []string `json:"jobs,omitempty" jsonschema:"Job names or release identifiers; empty means all"`
	RequireComplete bool     `json:"requireComplete,omitempty" jsonschema:"Skip jobs whose runs have not recorded execution data"`
}

type PlanOutput struct {
	Summary string          `json:"summary"`
	Plan    report.PlanView `json:"plan"`
	Error   string          `json:"error,omitempty"`
}

type VerifyOutput struct {
	Ready   bool                    `json:"ready"`
	Summary string                  `json:"summary"`
	Jobs    []application.JobStatus `json:"jobs,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

type ReportOutput struct {
	Summary string                   `json:"summary"`
	Result  application.ReportResult `json:"result"`
	Error   string                   `json:"error,omitempty"`
}

// coalesce returns value if non-empty, otherwise fallback.
func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
