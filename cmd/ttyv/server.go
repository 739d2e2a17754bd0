package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/ttyv/internal/api"
	"github.com/kalambet/ttyv/internal/config"
	"github.com/kalambet/ttyv/internal/gemini"
	"github.com/kalambet/ttyv/internal/index"
	"github.com/kalambet/ttyv/internal/runner"
	"github.com/kalambet/ttyv/internal/store"
	"github.com/kalambet/ttyv/internal/transcript"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ttyv server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running ttyv server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ttyv system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "ttyv.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func slogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "ttyv version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.Log.Level),
	})))

	// Check if a server is already listening before claiming the PID file.
	pidPath := pidFilePath(cfg.Index.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("ttyv is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("ttyv is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The server boots without a Gemini key; /health reports it and
	// analysis requests fail at generation time until one is set.
	gem := gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey)
	if !cfg.GeminiConfigured() {
		printWarning("GEMINI_API_KEY is not set; analysis will fail until it is configured")
	} else if !gem.IsReachable(ctx) {
		printWarning("Gemini API not reachable at %s", cfg.Gemini.BaseURL)
	}

	// Open the vector store. Vectors share the cache lifecycle: jobs die
	// with the process, so every boot starts from an empty index.
	vectors, err := index.Open(cfg.Index.DataDir)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer func() {
		if err := vectors.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing vector store: %v\n", err)
		}
	}()
	if err := vectors.Purge(); err != nil {
		return fmt.Errorf("purging stale vectors: %w", err)
	}

	st := store.New(cfg.Jobs.MaxJobs, cfg.Jobs.MaxSessions)
	st.OnEvict(func(videoID string) {
		if _, err := vectors.DeleteVideo(videoID); err != nil {
			slog.Warn("deleting vectors for evicted video", "video_id", videoID, "error", err)
		}
	})

	embedder := index.NewEmbedder(gem, cfg.Gemini.EmbedModel)
	builder := index.NewBuilder(embedder, vectors)

	run := runner.New(st, transcript.New(""), runner.BuilderFunc(
		func(buildCtx context.Context, videoID string, chunks []store.Chunk) (store.Searcher, error) {
			return builder.Build(buildCtx, videoID, chunks)
		},
	), gem, runner.Config{
		Workers:     cfg.Jobs.Workers,
		QueueSize:   cfg.Jobs.QueueSize,
		CallTimeout: cfg.Jobs.CallTimeout,
		TopK:        cfg.Index.TopK,
		Model:       cfg.Gemini.Model,
	}, slog.Default())
	run.Start(ctx)
	defer run.Stop()

	deps := api.AppDeps{
		Store:            st,
		Runner:           run,
		Token:            cfg.Server.APIToken,
		Version:          version,
		GeminiConfigured: cfg.GeminiConfigured(),
	}

	// Build and start MCP server (stdio transport in a goroutine).
	stdioSrv := server.NewStdioServer(api.NewMCPServer(deps))
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "ttyv listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Index.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("ttyv is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop ttyv (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to ttyv (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	var health struct {
		CacheSize      int `json:"cache_size"`
		ActiveSessions int `json:"active_sessions"`
	}
	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		if resp.StatusCode == 200 && json.NewDecoder(resp.Body).Decode(&health) == nil {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Check Gemini.
	if !cfg.GeminiConfigured() {
		printStatus("Gemini", "not configured (GEMINI_API_KEY unset)")
	} else {
		gem := gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey)
		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if gem.IsReachable(probeCtx) {
			printStatus("Gemini", "reachable at %s", cfg.Gemini.BaseURL)
			if models, err := gem.ListModels(probeCtx); err == nil && !containsModel(models, cfg.Gemini.Model) {
				printWarning("model %s is not in the API's model list", cfg.Gemini.Model)
			}
		} else {
			printStatus("Gemini", "not reachable at %s", cfg.Gemini.BaseURL)
		}
		cancel()
	}

	// Show models.
	printStatus("Model", "%s", cfg.Gemini.Model)
	printStatus("Embed model", "%s", cfg.Gemini.EmbedModel)

	// Show cache counts if server is running.
	if running {
		printStatus("Cached videos", "%d", health.CacheSize)
		printStatus("Chat sessions", "%d", health.ActiveSessions)
	}

	printStatus("Data dir", "%s", cfg.Index.DataDir)
	return nil
}

func containsModel(models []string, name string) bool {
	for _, m := range models {
		if m == name {
			return true
		}
	}
	return false
}
