package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/logger"
	"github.com/docdex/docdex/internal/mcp"
	"github.com/docdex/docdex/internal/service"
	"github.com/docdex/docdex/internal/version"
	"github.com/docdex/docdex/internal/web"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "docdex",
	Short:         "Local semantic search over reference documents",
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `docdex indexes a directory of reference documents and answers
natural-language similarity queries over them.

Documents are chunked, embedded, and stored in a local vector index
inside the .docdex directory. The index is served to AI assistants
over the Model Context Protocol and to other clients over HTTP.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docdex %s\n", version.Version)
		fmt.Printf("  commit:  %s\n", version.Commit)
		fmt.Printf("  built:   %s\n", version.Date)
	},
}

var initCmd = &cobra.Command{
	Use:   "init [docs-dir]",
	Short: "Initialize docdex in the current directory",
	Long: `Initialize a new docdex project in the current directory.
This creates a .docdex directory with the default configuration.
If docs-dir is given it is recorded as the documents directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the documents directory",
	Long: `Scan the documents directory and bring the index up to date.
Unchanged documents are skipped; documents that no longer exist are
removed. Use --rebuild to discard the index and re-embed everything,
which is required after changing the embedding backend.`,
	RunE: runIndex,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve the most similar document chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a document from the index",
	Long:  `Remove a document and all its chunks from the index. The path is relative to the documents directory.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status and statistics",
	RunE:  runStatus,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over MCP or HTTP",
	Long: `Serve the index to clients. By default an MCP server runs on stdio
for AI assistant integration; --http starts the JSON API instead.
When watching is enabled the server keeps the index synced with the
documents directory.`,
	RunE: runServe,
}

func init() {
	rootCmd.SetVersionTemplate("docdex version {{.Version}}\n")

	initCmd.Flags().Bool("force", false, "overwrite existing configuration")
	initCmd.Flags().String("backend", "", "embedding backend (hash, ollama, openai)")
	initCmd.Flags().String("model", "", "embedding model name")

	indexCmd.Flags().Bool("rebuild", false, "discard the index and re-embed everything")

	queryCmd.Flags().IntP("top-k", "k", 0, "maximum number of results")
	queryCmd.Flags().Float64P("threshold", "t", -1, "minimum similarity score (0 keeps every hit)")
	queryCmd.Flags().Bool("json", false, "print results as JSON")

	statusCmd.Flags().Bool("json", false, "print status as JSON")

	serveCmd.Flags().Bool("http", false, "serve the JSON HTTP API instead of MCP stdio")
	serveCmd.Flags().String("host", "", "HTTP server host")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP server port")
	serveCmd.Flags().Bool("watch", false, "keep the index synced with the documents directory")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfgPath := filepath.Join(cwd, config.DefaultDataDir, config.DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("already initialized (use --force to overwrite)")
	}

	cfg := config.Default()
	if len(args) == 1 {
		cfg.DocsDir = args[0]
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Embedding.Backend = backend
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Embedding.Model = model
	}

	if err := cfg.Save(cwd); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Initialized docdex in %s\n", cwd)
	fmt.Printf("  Docs dir: %s\n", cfg.DocsDir)
	fmt.Printf("  Backend:  %s\n", cfg.Embedding.Backend)
	fmt.Println("\nRun 'docdex index' to build the index.")
	return nil
}

// openService loads the project and opens the index service.
func openService(rebuild bool) (*service.Service, *config.Config, *zap.Logger, error) {
	root, err := config.FindRoot()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("not in a docdex project: run 'docdex init' first")
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	svc, err := service.Open(root, cfg, log, rebuild)
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, cfg, log, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	rebuild, _ := cmd.Flags().GetBool("rebuild")

	svc, _, log, err := openService(rebuild)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sum, err := svc.SyncDocs(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	st := svc.Status()
	fmt.Printf("Indexed %s\n", st.DocsDir)
	fmt.Printf("  Chunks added:   %d\n", sum.ChunksAdded)
	fmt.Printf("  Chunks removed: %d\n", sum.ChunksRemoved)
	fmt.Printf("  Documents:      %d\n", st.Engine.Documents)
	fmt.Printf("  Vectors:        %d\n", st.Engine.Vectors)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	asJSON, _ := cmd.Flags().GetBool("json")
	text := strings.Join(args, " ")

	svc, _, log, err := openService(false)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	results, err := svc.Query(cmd.Context(), text, topK, threshold)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s (score %.4f)\n", i+1, r.SourcePath, r.Score)
		fmt.Printf("   %s\n\n", indentText(r.Text, "   "))
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	svc, _, log, err := openService(false)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sum, err := svc.RemoveDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}

	if sum.ChunksRemoved == 0 {
		fmt.Printf("%s was not indexed\n", args[0])
		return nil
	}
	fmt.Printf("Removed %s (%d chunks)\n", args[0], sum.ChunksRemoved)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	svc, _, log, err := openService(false)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st := svc.Status()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Println("docdex status")
	fmt.Printf("  Docs dir:   %s\n", st.DocsDir)
	fmt.Printf("  Snapshot:   %s\n", st.SnapshotPath)
	fmt.Printf("  Backend:    %s\n", st.Engine.BackendID)
	fmt.Printf("  Dimensions: %d\n", st.Engine.Dimensions)
	fmt.Printf("  Documents:  %d\n", st.Engine.Documents)
	fmt.Printf("  Chunks:     %d\n", st.Engine.Chunks)
	fmt.Printf("  Vectors:    %d\n", st.Engine.Vectors)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	httpMode, _ := cmd.Flags().GetBool("http")
	watch, _ := cmd.Flags().GetBool("watch")

	svc, cfg, log, err := openService(false)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	host := cfg.Server.Host
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}
	port := cfg.Server.Port
	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		port = v
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if watch || cfg.Server.Watch {
		go func() {
			if err := svc.Watch(ctx, index.DefaultDebounce); err != nil && ctx.Err() == nil {
				log.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	if httpMode {
		srv := web.NewServer(web.ServerConfig{
			Host:    host,
			Port:    port,
			Service: svc,
			Log:     log,
		})
		return srv.ListenAndServe(ctx)
	}

	return mcp.NewServer(svc, log).Run(ctx)
}

// indentText rewrites newlines so multi-line chunk text stays aligned
// under its result header.
func indentText(s, prefix string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n"+prefix)
}
