package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/service"
)

func testMCPServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Embedding.Dimensions = 16

	docsDir := filepath.Join(root, cfg.DocsDir)
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "tls.md"),
		[]byte("certificates are rotated before they expire"), 0o644))

	svc, err := service.Open(root, cfg, nil, false)
	require.NoError(t, err)
	return NewServer(svc, nil)
}

func textOf(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestIndexTool(t *testing.T) {
	s := testMCPServer(t)

	res, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var sum struct {
		ChunksAdded int `json:"chunks_added"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &sum))
	assert.Positive(t, sum.ChunksAdded)
}

func TestQueryTool(t *testing.T) {
	s := testMCPServer(t)
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	res, _, err := s.handleQuery(context.Background(), nil, QueryInput{
		Query: "certificates are rotated",
		TopK:  1,
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body struct {
		Results []struct {
			SourcePath string `json:"source_path"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "tls.md", body.Results[0].SourcePath)
}

func TestQueryToolExplicitZeroThreshold(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Embedding.Dimensions = 16
	cfg.Search.ScoreThreshold = 0.95

	docsDir := filepath.Join(root, cfg.DocsDir)
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "tls.md"),
		[]byte("certificates are rotated before they expire"), 0o644))

	svc, err := service.Open(root, cfg, nil, false)
	require.NoError(t, err)
	s := NewServer(svc, nil)

	_, _, err = s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	// Omitted threshold uses the configured default.
	res, _, err := s.handleQuery(context.Background(), nil, QueryInput{
		Query: "unrelated migration notes",
	})
	require.NoError(t, err)
	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Empty(t, body.Results)

	// An explicit zero turns filtering off.
	zero := 0.0
	res, _, err = s.handleQuery(context.Background(), nil, QueryInput{
		Query:          "unrelated migration notes",
		ScoreThreshold: &zero,
	})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.NotEmpty(t, body.Results)
}

func TestQueryToolRequiresText(t *testing.T) {
	s := testMCPServer(t)

	res, _, err := s.handleQuery(context.Background(), nil, QueryInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRemoveTool(t *testing.T) {
	s := testMCPServer(t)
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	res, _, err := s.handleRemove(context.Background(), nil, RemoveInput{Path: "tls.md"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var sum struct {
		ChunksRemoved int `json:"chunks_removed"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &sum))
	assert.Positive(t, sum.ChunksRemoved)
}

func TestStatusTool(t *testing.T) {
	s := testMCPServer(t)
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	res, _, err := s.handleStatus(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body struct {
		Engine struct {
			Documents int `json:"documents"`
		} `json:"engine"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Equal(t, 1, body.Engine.Documents)
}

func TestIndexToolRebuild(t *testing.T) {
	s := testMCPServer(t)
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	res, _, err := s.handleIndex(context.Background(), nil, IndexInput{Rebuild: true})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var sum struct {
		ChunksAdded int `json:"chunks_added"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &sum))
	assert.Positive(t, sum.ChunksAdded, "rebuild re-embeds all documents")
}
