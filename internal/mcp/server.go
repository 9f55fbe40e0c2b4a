// Package mcp exposes docdex search and document listing as MCP tools over
// the stdio transport. Tool results are pretty-printed JSON strings; field
// names on the wire are frozen for client compatibility.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	errs "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/telemetry"
	"github.com/docdex/docdex/pkg/version"
)

// Server is the MCP server for docdex. It bridges MCP clients with the
// search and listing facades.
type Server struct {
	mcp     *mcp.Server
	svc     *index.Service
	metrics *telemetry.QueryMetrics
	store   *telemetry.Store
	logger  *slog.Logger
}

// NewServer creates an MCP server around the search service.
func NewServer(svc *index.Service, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{svc: svc, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docdex",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// SetTelemetry attaches a metrics collector and its backing store. Metrics
// are flushed to the store when the server closes.
func (s *Server) SetTelemetry(m *telemetry.QueryMetrics, store *telemetry.Store) {
	s.metrics = m
	s.store = store
	s.svc.SetMetrics(m)
}

// registerTools registers the search and list_documents tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Full-text search over indexed business document chunks. Returns the top ranked chunks with their source document, chunk index, and relevance score.",
	}, s.searchHandler)
	s.logger.Debug("registered tool", slog.String("name", "search"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every indexed source document with its chunk count. Use to discover what is in the index before searching.",
	}, s.listDocumentsHandler)
	s.logger.Debug("registered tool", slog.String("name", "list_documents"))

	s.logger.Info("MCP tools registered", slog.Int("count", 2))
}

// searchHandler handles the search tool. A malformed query comes back as a
// structured error payload in the result text, not a failed call, so
// clients can recover without special protocol handling.
func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	any,
	error,
) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, nil, invalidParams("query parameter is required and must be non-empty")
	}

	out, err := s.svc.Search(ctx, in.Query)
	if err != nil {
		if errs.GetCode(err) == errs.ErrCodeQueryParse {
			return textResult(formatError(err)), nil, nil
		}
		return nil, nil, err
	}

	payload, err := prettyJSON(out)
	if err != nil {
		return nil, nil, err
	}
	return textResult(payload), nil, nil
}

// listDocumentsHandler handles the list_documents tool.
func (s *Server) listDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult,
	any,
	error,
) {
	out, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return nil, nil, err
	}

	payload, err := prettyJSON(out)
	if err != nil {
		return nil, nil, err
	}
	return textResult(payload), nil, nil
}

// Serve runs the server on the stdio transport until ctx is canceled.
// Stdout belongs to the JSON-RPC stream; nothing else may write to it.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// Close flushes telemetry. The MCP server itself stops with its context.
func (s *Server) Close() error {
	if s.metrics != nil && s.store != nil {
		if err := s.metrics.FlushTo(s.store); err != nil {
			s.logger.Warn("flush telemetry", slog.String("error", err.Error()))
		}
		return s.store.Close()
	}
	return nil
}

// textResult wraps a payload string as a tool result.
func textResult(payload string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: payload}},
	}
}

// prettyJSON renders v as indented JSON.
func prettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}
