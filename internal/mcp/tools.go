package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/report"
)

// Tool failures are reported in the output, not as protocol errors, so the
// agent can read them.

func (s *Server) handlePlan(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input JobsInput,
) (*mcp.CallToolResult, PlanOutput, error) {
	plan, err := s.svc.Plan(ctx, application.PlanOptions{
		ConfigPath: coalesce(input.ConfigPath, s.config.ConfigPath),
		Jobs:       input.Jobs,
	})
	if err != nil {
		return nil, PlanOutput{Summary: "Planning failed", Error: err.Error()}, nil
	}
	view, err := report.NewPlanView(plan)
	if err != nil {
		return nil, PlanOutput{Summary: "Planning failed", Error: err.Error()}, nil
	}
	return nil, PlanOutput{Summary: planSummary(view), Plan: view}, nil
}

func (s *Server) handleVerify(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input JobsInput,
) (*mcp.CallToolResult, VerifyOutput, error) {
	result, err := s.svc.Verify(ctx, application.VerifyOptions{
		ConfigPath: coalesce(input.ConfigPath, s.config.ConfigPath),
		Jobs:       input.Jobs,
	})
	output := VerifyOutput{
		Ready:   err == nil && result.Ready(),
		Summary: verifySummary(result),
		Jobs:    result.Jobs,
	}
	if err != nil {
		output.Error = err.Error()
	}
	return nil, output, nil
}

func (s *Server) handleReport(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ReportInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	result, err := s.svc.Report(ctx, application.ReportOptions{
		ConfigPath:      coalesce(input.ConfigPath, s.config.ConfigPath),
		Jobs:            input.Jobs,
		RequireComplete: input.RequireComplete,
	})
	if err != nil {
		return nil, ReportOutput{Summary: "Registration failed", Error: err.Error()}, nil
	}
	summary := fmt.Sprintf("Registered %d job(s)", len(result.Registered))
	if len(result.Skipped) > 0 {
		summary += fmt.Sprintf(", skipped %d", len(result.Skipped))
	}
	return nil, ReportOutput{Summary: summary, Result: result}, nil
}

func planSummary(view report.PlanView) string {
	if len(view.Jobs) == 0 {
		return "No report jobs"
	}
	warnings := 0
	for _, job := range view.Jobs {
		warnings += len(job.Warnings)
	}
	fixed := view.FixedRun
	if fixed == "" {
		fixed = "none"
	}
	return fmt.Sprintf("%d job(s) | common run %s | fixed run %s | %d warning(s)",
		len(view.Jobs), view.CommonRun, fixed, warnings)
}

func verifySummary(result application.VerifyResult) string {
	if len(result.Jobs) == 0 {
		return "No report jobs"
	}
	ready := 0
	for _, job := range result.Jobs {
		if job.Ready {
			ready++
		}
	}
	status := "READY"
	if ready != len(result.Jobs) {
		status = "MISSING"
	}
	return fmt.Sprintf("%s | %d/%d jobs ready", status, ready, len(result.Jobs))
}
