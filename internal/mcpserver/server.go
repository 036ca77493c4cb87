// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes roadmap tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/roadmapper/internal/roadmapservice"
)

const (
	formatResourceURI = "roadmap://format"
	searchLimit       = 20
	listLimit         = 100
)

// Server wraps the MCP server with roadmap tools.
type Server struct {
	mcp *server.MCPServer
	svc *roadmapservice.Service
}

// New creates a new MCP server with all roadmap tools registered.
func New(svc *roadmapservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Roadmapper",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_roadmap",
		mcp.WithDescription("Generate a learning roadmap for a topic. A roadmap generated earlier "+
			"for the same topic is returned unless refresh is true."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic to build a roadmap for")),
		mcp.WithBoolean("refresh", mcp.Description("Generate again even if a roadmap exists")),
	), s.generateRoadmap)

	s.mcp.AddTool(mcp.NewTool("parse_roadmap",
		mcp.WithDescription("Parse roadmap text into a tree without storing it. "+
			"Read the format first via get_roadmap_format or the roadmap://format resource."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Name of the root node")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Bar-delimited roadmap text")),
	), s.parseRoadmap)

	s.mcp.AddTool(mcp.NewTool("get_roadmap",
		mcp.WithDescription("Return a stored roadmap with its parsed tree."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Roadmap ID")),
	), s.getRoadmap)

	s.mcp.AddTool(mcp.NewTool("list_roadmaps",
		mcp.WithDescription("List stored roadmaps, newest first."),
	), s.listRoadmaps)

	s.mcp.AddTool(mcp.NewTool("search_roadmaps",
		mcp.WithDescription("Full-text search through roadmap topics and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRoadmaps)

	s.mcp.AddTool(mcp.NewTool("import_roadmap",
		mcp.WithDescription("Save roadmap text into the library as a .txt file and index it. "+
			"Text MUST follow the roadmap format."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Roadmap topic")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Bar-delimited roadmap text")),
		mcp.WithString("filename", mcp.Description("Library file name; derived from the topic when empty")),
	), s.importRoadmap)

	s.mcp.AddTool(mcp.NewTool("get_roadmap_format",
		mcp.WithDescription("Returns the roadmap text format. "+
			"Call this before writing roadmap text to ensure correct structure."),
	), s.getRoadmapFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatResourceURI, "Roadmap Format",
			mcp.WithResourceDescription("Bar-delimited text format used by every roadmap."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) generateRoadmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, _, err := s.svc.Generate(ctx, topic, req.GetBool("refresh", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) parseRoadmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Parse(ctx, topic, text))
}

func (s *Server) getRoadmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("roadmap %s: %v", id, err)), nil
	}
	return jsonResult(d)
}

func (s *Server) listRoadmaps(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.List(ctx, listLimit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) searchRoadmaps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, searchLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) importRoadmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Import(ctx, topic, text, req.GetString("filename", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) getRoadmapFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatResourceURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
