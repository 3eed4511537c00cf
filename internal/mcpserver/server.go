// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the analysis tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/gaps"
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/pipeline"
)

const gapReportURI = "stackscope://gap-report"

// Analyzer is the subset of the coordinator the tools call into.
type Analyzer interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
	GapReport(ctx context.Context) (*gaps.Report, error)
	EntitiesByType(ctx context.Context, t models.EntityType) ([]models.Entity, error)
	Entity(ctx context.Context, id string) (*models.Entity, error)
	RelatedEntities(ctx context.Context, id string, relType models.RelationshipType) ([]models.Entity, error)
	Search(ctx context.Context, query string, limit int) ([]graph.SearchResult, error)
}

var _ Analyzer = (*pipeline.Coordinator)(nil)

// Server wraps the MCP server with the analysis tools.
type Server struct {
	mcp *server.MCPServer
	an  Analyzer
}

// New creates a new MCP server with all tools registered.
func New(an Analyzer, version string) *Server {
	s := &Server{an: an}

	s.mcp = server.NewMCPServer(
		"Stackscope",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("analyze_codebase",
		mcp.WithDescription("Re-scan the Flutter and FastAPI sources, rebuild the entity graph and return the run summary."),
	), s.analyzeCodebase)

	s.mcp.AddTool(mcp.NewTool("gap_report",
		mcp.WithDescription("Reconcile declared API contracts against backend routes and UI call sites. "+
			"Returns missing endpoints, undeclared routes, unused contracts and method mismatches."),
	), s.gapReport)

	s.mcp.AddTool(mcp.NewTool("search_code",
		mcp.WithDescription("Full-text search over extracted entities (widgets, state containers, routes, models, services)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchCode)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List entities of one type."),
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Entity type"),
			mcp.Enum(entityTypeNames()...),
		),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("related_entities",
		mcp.WithDescription("List entities connected to the given entity in either direction."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity ID")),
		mcp.WithString("relationship_type", mcp.Description("Optional relationship filter (calls, extends, implements, uses)")),
	), s.relatedEntities)

	s.mcp.AddResource(
		mcp.NewResource(gapReportURI, "Gap Report",
			mcp.WithResourceDescription("Latest contract reconciliation report as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readGapReportResource,
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

func entityTypeNames() []string {
	out := make([]string, len(models.EntityTypes))
	for i, t := range models.EntityTypes {
		out[i] = string(t)
	}
	return out
}

func optionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, _ := args[key].(string)
	return val
}

// JSON numbers arrive as float64.
func optionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzeCodebase(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.an.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return jsonResult(sum)
}

func (s *Server) gapReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.an.GapReport(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) searchCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 20
	if v, ok := optionalFloat(req, "limit"); ok && v > 0 {
		limit = int(v)
	}
	results, err := s.an.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := models.ParseEntityType(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity type: %s", raw)), nil
	}
	ents, err := s.an.EntitiesByType(ctx, t)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ents)
}

func (s *Server) relatedEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var relType models.RelationshipType
	if raw := optionalString(req, "relationship_type"); raw != "" {
		if relType, err = models.ParseRelationshipType(raw); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown relationship type: %s", raw)), nil
		}
	}
	if _, err := s.an.Entity(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	ents, err := s.an.RelatedEntities(ctx, id, relType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ents) == 0 {
		return mcp.NewToolResultText("no related entities"), nil
	}
	return jsonResult(ents)
}

func (s *Server) readGapReportResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rep, err := s.an.GapReport(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(rep)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      gapReportURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
