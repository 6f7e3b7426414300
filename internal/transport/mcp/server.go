// Package mcp exposes retrieval as an MCP tool over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"
	"github.com/kailas-cloud/kbsearch/internal/version"
)

const (
	// ServerName is the MCP server name.
	ServerName = "kbsearch"
	// ToolName is the retrieval tool exposed to agents.
	ToolName = "retrieve_documentation"
)

// Output formats accepted by the tool.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Retriever runs a retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// Server wraps the MCP server.
type Server struct {
	mcp       *server.MCPServer
	retriever Retriever
	logger    *zap.Logger
}

// NewServer creates an MCP server with the retrieval tool registered.
func NewServer(r Retriever, logger *zap.Logger) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(ServerName, version.Version, server.WithToolCapabilities(false)),
		retriever: r,
		logger:    logger,
	}
	s.mcp.AddTool(retrieveTool(), s.handleRetrieve)
	return s
}

// Serve blocks serving stdio until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp) //nolint:wrapcheck // transparent
}

func retrieveTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Search the product support knowledge base. Combines structured "+
			"category/keyword search with vector similarity and returns ranked articles."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question about the product"),
		),
		mcp.WithString("format",
			mcp.Description("text (merged ranking) or json (all three result lists)"),
			mcp.Enum(FormatText, FormatJSON),
			mcp.DefaultString(FormatText),
		),
	)
}

func (s *Server) handleRetrieve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError(domain.ErrEmptyQuery.Error()), nil
	}
	format := req.GetString("format", FormatText)

	res, err := s.retriever.Retrieve(ctx, strings.TrimSpace(query))
	if err != nil {
		s.logger.Warn("Tool retrieval failed", zap.String("query", query), zap.Error(err))
		if errors.Is(err, domain.ErrDatastoreUnavailable) {
			return mcp.NewToolResultError("knowledge base is unavailable, try again later"), nil
		}
		return mcp.NewToolResultError("retrieval failed"), nil
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	case FormatText:
		return mcp.NewToolResultText(retrieval.FormatText(res.Merged)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}
}
