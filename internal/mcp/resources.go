package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/config"
	"github.com/felixgeelhaar/mrcov/internal/infrastructure/report"
)

// handleConfigResource returns the current or detected configuration in
// the config file format.
func (s *Server) handleConfigResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	cfg, err := s.svc.Config(ctx, s.config.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var buf bytes.Buffer
	if err := config.Write(&buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/yaml",
			Text:     buf.String(),
		}},
	}, nil
}

// handleJobsResource returns the resolved report jobs.
func (s *Server) handleJobsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	plan, err := s.svc.Plan(ctx, application.PlanOptions{ConfigPath: s.config.ConfigPath})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve jobs: %w", err)
	}
	view, err := report.NewPlanView(plan)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jobs: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
