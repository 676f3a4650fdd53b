package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "docs", cfg.DocsDir)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, "hash", cfg.Embedding.Backend)
	assert.Equal(t, 64, cfg.Embedding.Dimensions)
	assert.Equal(t, 1200, cfg.Indexing.WindowSize)
	assert.Equal(t, 200, cfg.Indexing.Overlap)
	assert.Equal(t, "flat", cfg.Indexing.VectorIndex)
	assert.Equal(t, 3, cfg.Search.TopK)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.Backend, cfg.Embedding.Backend)
	assert.Equal(t, Default().Indexing.WindowSize, cfg.Indexing.WindowSize)
}

func TestLoadFromFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, DefaultDataDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	content := `docs_dir: reference
embedding:
  backend: hash
  dimensions: 128
indexing:
  window_size: 800
search:
  top_k: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "reference", cfg.DocsDir)
	assert.Equal(t, 128, cfg.Embedding.Dimensions)
	assert.Equal(t, 800, cfg.Indexing.WindowSize)
	assert.Equal(t, 5, cfg.Search.TopK)
	// Unset keys keep their defaults.
	assert.Equal(t, 200, cfg.Indexing.Overlap)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DOCDEX_EMBEDDING_DIMENSIONS", "256")
	t.Setenv("DOCDEX_SEARCH_TOP_K", "7")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Embedding.Dimensions)
	assert.Equal(t, 7, cfg.Search.TopK)
}

func TestLoadOpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Embedding.OpenAIAPIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DocsDir = "handbook"
	cfg.Embedding.Dimensions = 96
	require.NoError(t, cfg.Save(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "handbook", loaded.DocsDir)
	assert.Equal(t, 96, loaded.Embedding.Dimensions)
}

func TestSnapshotPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t,
		filepath.Join("/project", DefaultDataDir, DefaultSnapshotFile),
		cfg.SnapshotPath("/project"))
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, DefaultDataDir), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Chdir(nested)

	found, err := FindRoot()
	require.NoError(t, err)
	// TempDir may sit behind a symlink; compare resolved paths.
	wantResolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, wantResolved, gotResolved)
}
