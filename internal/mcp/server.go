package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is set at build time.
var Version = "dev"

// Server wraps the application service with MCP protocol handling.
type Server struct {
	svc    Service
	config Config
	server *mcp.Server
}

func New(svc Service, cfg Config) *Server {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfig().ConfigPath
	}
	s := &Server{svc: svc, config: cfg}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "mrcov", Version: Version},
		&mcp.ServerOptions{
			Capabilities: &mcp.ServerCapabilities{
				Tools:     &mcp.ToolCapabilities{},
				Resources: &mcp.ResourceCapabilities{},
			},
		},
	)
	s.registerTools()
	s.registerResources()
	return s
}

// Run serves over stdio and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "plan",
		Description: "Resolve the per-release coverage report jobs: the runs whose execution data each job merges and its effective source and class files. Read-only.",
	}, s.handlePlan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verify",
		Description: "Check whether every run a report job merges has recorded its execution data.",
	}, s.handleVerify)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "report",
		Description: "Resolve the report jobs and register them: writes the job registry and one descriptor per job into the report dir.",
	}, s.handleReport)
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         "mrcov://config",
		Name:        "Current Configuration",
		Description: "Returns the current or auto-detected mrcov configuration",
		MIMEType:    "application/yaml",
	}, s.handleConfigResource)

	s.server.AddResource(&mcp.Resource{
		URI:         "mrcov://jobs",
		Name:        "Report Jobs",
		Description: "Lists every resolved report job with its runs and effective files",
		MIMEType:    "application/json",
	}, s.handleJobsResource)
}
