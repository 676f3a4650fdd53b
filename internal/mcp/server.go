// Package mcp exposes the retrieval engine over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/service"
	"github.com/docdex/docdex/internal/version"
)

// IndexInput is the input for docdex_index.
type IndexInput struct {
	Rebuild bool `json:"rebuild,omitempty" jsonschema:"Discard the existing index and re-embed every document. Required after changing the embedding backend."`
}

// QueryInput is the input for docdex_query.
type QueryInput struct {
	Query          string   `json:"query" jsonschema:"The search query, in natural language."`
	TopK           int      `json:"top_k,omitempty" jsonschema:"Maximum number of chunks to return."`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" jsonschema:"Drop results with a similarity score below this value. Zero keeps every hit."`
}

// RemoveInput is the input for docdex_remove.
type RemoveInput struct {
	Path string `json:"path" jsonschema:"Document path relative to the docs directory."`
}

// StatusInput is the input for docdex_status (empty).
type StatusInput struct{}

// Server wraps the official MCP SDK server around a Service.
type Server struct {
	server *sdkmcp.Server
	svc    *service.Service
	log    *zap.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(svc *service.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, log: log}

	s.server = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "docdex",
		Version: version.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: "docdex answers similarity queries over a local reference-document " +
			"index. Use docdex_query to retrieve relevant document chunks; run " +
			"docdex_index first if the docs directory changed.",
	})

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "docdex_index",
		Description: "Index the documents directory. Only changed documents are re-embedded; pass rebuild to start from scratch.",
	}, s.handleIndex)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "docdex_query",
		Description: "Retrieve document chunks semantically similar to a query. Returns chunks ordered by similarity score.",
	}, s.handleQuery)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "docdex_remove",
		Description: "Remove a document and all its chunks from the index.",
	}, s.handleRemove)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "docdex_status",
		Description: "Get index statistics: document, chunk, and vector counts plus the embedding configuration.",
	}, s.handleStatus)

	return s
}

// Run serves MCP over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) handleIndex(ctx context.Context, req *sdkmcp.CallToolRequest, input IndexInput) (*sdkmcp.CallToolResult, any, error) {
	var (
		sum any
		err error
	)
	if input.Rebuild {
		sum, err = s.svc.Rebuild(ctx)
	} else {
		sum, err = s.svc.SyncDocs(ctx)
	}
	if err != nil {
		s.log.Error("index tool failed", zap.Error(err))
		return errorResult(fmt.Sprintf("indexing failed: %v", err)), nil, nil
	}
	return jsonResult(sum)
}

func (s *Server) handleQuery(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Query == "" {
		return errorResult("query is required"), nil, nil
	}
	threshold := -1.0
	if input.ScoreThreshold != nil {
		threshold = *input.ScoreThreshold
	}
	results, err := s.svc.Query(ctx, input.Query, input.TopK, threshold)
	if err != nil {
		s.log.Error("query tool failed", zap.Error(err))
		return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
	}
	return jsonResult(map[string]any{
		"query":   input.Query,
		"results": results,
	})
}

func (s *Server) handleRemove(ctx context.Context, req *sdkmcp.CallToolRequest, input RemoveInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Path == "" {
		return errorResult("path is required"), nil, nil
	}
	sum, err := s.svc.RemoveDocument(ctx, input.Path)
	if err != nil {
		s.log.Error("remove tool failed", zap.Error(err))
		return errorResult(fmt.Sprintf("remove failed: %v", err)), nil, nil
	}
	return jsonResult(sum)
}

func (s *Server) handleStatus(ctx context.Context, req *sdkmcp.CallToolRequest, input StatusInput) (*sdkmcp.CallToolResult, any, error) {
	return jsonResult(s.svc.Status())
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil, nil
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: msg}},
	}
}
