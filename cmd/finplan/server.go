package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/finplan/internal/api"
	"github.com/kalambet/finplan/internal/config"
	"github.com/kalambet/finplan/internal/convlog"
	"github.com/kalambet/finplan/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve past sessions over HTTP and MCP (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpStdio, _ := cmd.Flags().GetBool("mcp-stdio")
		return runServer(cmd, mcpStdio)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running finplan server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer(cmd)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show finplan configuration and server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp-stdio", false, "also serve the MCP protocol on stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "finplan.pid")
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

// ensureAPIToken returns the configured bearer token, generating and
// storing one on first use.
func ensureAPIToken(cfg config.Config) (string, error) {
	if cfg.Server.APIToken != "" {
		return cfg.Server.APIToken, nil
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := config.SetSecret("server.api_token", token); err != nil {
		return "", fmt.Errorf("storing generated API token: %w", err)
	}
	printWarning("Generated a new API token and stored it as server.api_token")
	return token, nil
}

func runServer(cmd *cobra.Command, mcpStdio bool) error {
	fmt.Fprintf(stderr, "finplan version %s\n", version)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	token, err := ensureAPIToken(cfg)
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logs := convlog.NewStore(cfg.LogDir())
	m := newMatcher(cfg, store)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewAppHandler(api.AppDeps{
			Store:   store,
			Logs:    logs,
			Matcher: m,
			Token:   token,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(stderr, "finplan listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if mcpStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Store:   store,
			Logs:    logs,
			Matcher: m,
			Version: version,
		})
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			err := server.NewStdioServer(mcpSrv).Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func stopServer(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("finplan server is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop finplan (PID %d): %v", pid, err)
		os.Remove(pidPath)
		return err
	}

	printSuccess("Sent stop signal to finplan (PID %d)", pid)
	return nil
}

func showStatus(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}
	ctx := cmd.Context()

	client := newAPIClient(cfg)
	if err := client.health(ctx); err != nil {
		printStatus("Server", "stopped")
	} else {
		printStatus("Server", "running on port %d", cfg.Server.Port)
		var sessions []json.RawMessage
		if err := client.getJSON(ctx, "/sessions?limit=100", &sessions); err == nil {
			printStatus("Sessions", "%s", countLabel(len(sessions), 100))
		}
	}

	printStatus("Agent", "%s (%s)", cfg.Agent.Backend, modelLabel(cfg))
	printStatus("Completion", "%s", cfg.Completion.Mode)
	printStatus("Match", "%s, tolerance %.0f%%", cfg.Match.Source, cfg.Match.Tolerance*100)
	printStatus("Log dir", "%s", cfg.LogDir())
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func modelLabel(cfg config.Config) string {
	if cfg.Agent.Model == "" {
		return "default model"
	}
	return cfg.Agent.Model
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
