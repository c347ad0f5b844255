// Package server exposes the registry and packaging operations of xroci as
// MCP tools, over stdio or streamable HTTP.
package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/metaformsystems/xregistry-oci/internal/config"
	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/middleware"
)

var logServer = logger.New("server:server")

// ServerName is the implementation name announced to MCP clients
const ServerName = "xroci"

// Options configures a Server
type Options struct {
	// ProjectDir is the project every tool call works on
	ProjectDir string
	// Config is the loaded configuration; nil means defaults
	Config *config.Config
	// Version is announced to clients and reported by /health
	Version string
	// Middleware controls how large tool results are summarized
	Middleware middleware.Options
}

// ToolInfo stores metadata about a registered tool
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Handler     middleware.ToolHandler
}

// Server is an MCP server bound to one project directory
type Server struct {
	opts   Options
	server *sdk.Server
	tools  map[string]*ToolInfo

	// Builds write to the same build directory and must not overlap
	buildMu sync.Mutex
}

// New creates a server and registers all tools
func New(opts Options) (*Server, error) {
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		opts:  opts,
		tools: make(map[string]*ToolInfo),
	}
	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    ServerName,
		Version: opts.Version,
	}, nil)

	for _, tool := range s.toolDefinitions() {
		if err := s.register(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}

	logServer.Printf("Server created: project=%s, tools=%d", opts.ProjectDir, len(s.tools))
	return s, nil
}

// register adds a tool to the SDK server. Tools whose results can grow with
// the registry are wrapped by the summarizing middleware.
func (s *Server) register(tool *ToolInfo) error {
	if _, exists := s.tools[tool.Name]; exists {
		return fmt.Errorf("duplicate tool name")
	}

	handler := tool.Handler
	if summarizedTools[tool.Name] {
		handler = middleware.WrapToolHandler(handler, tool.Name, s.opts.Middleware)
	}
	tool.Handler = handler
	s.tools[tool.Name] = tool

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
	}, handler)
	return nil
}

// ToolNames returns the registered tool names in sorted order
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tool returns the registered tool with the given name
func (s *Server) Tool(name string) (*ToolInfo, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// SDKServer returns the underlying MCP server
func (s *Server) SDKServer() *sdk.Server {
	return s.server
}

// Run serves MCP over stdin and stdout until ctx is done or the client
// disconnects
func (s *Server) Run(ctx context.Context) error {
	logger.LogInfo("server", "Serving MCP over stdio, project=%s", s.opts.ProjectDir)
	return s.server.Run(ctx, &sdk.StdioTransport{})
}
