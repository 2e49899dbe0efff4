package main

import (
	"context"
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
	"golang.org/x/sync/errgroup"

	"github.com/folio-hq/folio/internal/api"
	"github.com/folio-hq/folio/internal/chat"
	"github.com/folio-hq/folio/internal/composer"
	"github.com/folio-hq/folio/internal/config"
	"github.com/folio-hq/folio/internal/portfolio"
	"github.com/folio-hq/folio/internal/proxy"
	"github.com/folio-hq/folio/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the folio HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running folio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the portfolio tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show folio server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "folio.pid")
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

func setupLogging(cfg config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// openStore opens the persistence backend selected by storage.backend.
func openStore(ctx context.Context, cfg config.Config) (portfolio.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		s, err := storage.OpenMongo(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := storage.OpenSQLite(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func closeStore(store portfolio.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

func newServices(cfg config.Config, store portfolio.Store) (*portfolio.Manager, *chat.Relay) {
	client := proxy.NewClient(proxy.Options{
		BaseURL: cfg.Chat.BaseURL,
		Referer: cfg.Server.PublicURL,
		Timeout: cfg.ChatTimeout(),
	})
	builder := composer.New(composer.Options{DefaultEmail: cfg.Context.DefaultEmail})
	return portfolio.NewManager(store), chat.NewRelay(client, builder, cfg.Chat.Model)
}

func runServer(parent context.Context) error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeStore(store)

	manager, relay := newServices(cfg, store)
	handler := api.NewHandler(api.Deps{
		Portfolios:    manager,
		Relay:         relay,
		Token:         apiToken,
		ChatPerMinute: cfg.Chat.RatePerMinute,
		ChatBurst:     cfg.Chat.RateBurst,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("folio listening", "addr", addr, "storage", cfg.Storage.Backend, "model", cfg.Chat.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs go to stderr only.
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeStore(store)

	manager, relay := newServices(cfg, store)
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Portfolios: manager,
		Relay:      relay,
		Version:    version,
	})

	slog.Info("MCP server started (stdio transport)", "storage", cfg.Storage.Backend)
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("folio is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("could not stop folio (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to folio (PID %d)", pid)
	return nil
}

type healthStatus struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func checkHealth(ctx context.Context, c *apiClient) (healthStatus, int, error) {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return healthStatus{}, 0, err
	}
	code := resp.StatusCode
	var hs healthStatus
	if code == http.StatusServiceUnavailable {
		// Degraded health still carries a body worth showing.
		defer resp.Body.Close()
		if err := decodeBody(resp, &hs); err != nil {
			return healthStatus{}, code, err
		}
		return hs, code, nil
	}
	if err := decodeJSON(resp, &hs); err != nil {
		return healthStatus{}, code, err
	}
	return hs, code, nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    resolveServerURL(cfg),
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}
	hs, code, err := checkHealth(ctx, client)
	switch {
	case err != nil && code == 0:
		printStatus("Server", "stopped")
	case err != nil:
		printStatus("Server", "error (HTTP %d)", code)
	case hs.Status == "ok":
		printStatus("Server", "running at %s", client.baseURL)
	default:
		printStatus("Server", "%s (storage: %s)", hs.Status, hs.Storage)
	}

	printStatus("Storage", "%s", cfg.Storage.Backend)
	if cfg.Storage.Backend == config.BackendMongo {
		printStatus("Database", "%s", cfg.Storage.MongoDatabase)
	}
	printStatus("Chat model", "%s", cfg.Chat.Model)
	if cfg.Chat.RatePerMinute > 0 {
		printStatus("Chat limit", "%s/min per client (burst %d)", strconv.FormatFloat(cfg.Chat.RatePerMinute, 'f', -1, 64), cfg.Chat.RateBurst)
	} else {
		printStatus("Chat limit", "disabled")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
