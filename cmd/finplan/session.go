package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kalambet/finplan/internal/agent"
	"github.com/kalambet/finplan/internal/completion"
	"github.com/kalambet/finplan/internal/config"
	"github.com/kalambet/finplan/internal/convlog"
	"github.com/kalambet/finplan/internal/matcher"
	"github.com/kalambet/finplan/internal/ollama"
	"github.com/kalambet/finplan/internal/prompt"
	"github.com/kalambet/finplan/internal/session"
	"github.com/kalambet/finplan/internal/storage"
	"github.com/kalambet/finplan/internal/terminal"
)

// loadConfig loads configuration, applies root flag overrides and sets up
// logging.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	applyFlags(cmd, &cfg)
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if v, _ := flags.GetString("backend"); v != "" {
		cfg.Agent.Backend = v
	}
	if v, _ := flags.GetString("model"); v != "" {
		cfg.Agent.Model = v
	}
	if v, _ := flags.GetString("log-dir"); v != "" {
		cfg.Storage.LogDir = v
	}
	if v, _ := flags.GetString("completion"); v != "" {
		cfg.Completion.Mode = v
	}
	if flags.Changed("html") {
		cfg.Report.HTML, _ = flags.GetBool("html")
	}
}

// newMatcher selects the candidate source for cfg. The index is used only
// when it is configured and open.
func newMatcher(cfg config.Config, store *storage.Store) *matcher.Matcher {
	var src matcher.Source = matcher.DirSource{Dir: cfg.LogDir()}
	if cfg.Match.Source == "index" && store != nil {
		src = matcher.IndexSource{Store: store}
	}
	return matcher.New(src, decimal.NewFromFloat(cfg.Match.Tolerance))
}

func agentConfig(cfg config.Config) agent.Config {
	return agent.Config{
		Backend:          cfg.Agent.Backend,
		Model:            cfg.Agent.Model,
		System:           prompt.System(cfg.Completion.Mode == completion.ModeMarker),
		GeminiAPIKey:     cfg.Agent.GeminiAPIKey,
		OpenRouterAPIKey: cfg.Agent.OpenRouterAPIKey,
		OllamaBaseURL:    cfg.Agent.OllamaBaseURL,
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	detector, err := completion.New(cfg.Completion.Mode)
	if err != nil {
		return err
	}

	acfg := agentConfig(cfg)
	if acfg.Backend == agent.BackendOllama {
		if err := ollama.EnsureModel(ctx, ollama.New(acfg.OllamaBaseURL), agent.ModelFor(acfg), os.Stderr); err != nil {
			return fmt.Errorf("%w: %v", agent.ErrUnavailable, err)
		}
	}
	ag, err := agent.New(ctx, acfg)
	if err != nil {
		return err
	}

	// The index is an optional companion to the log files; a session still
	// runs without it.
	var index session.Index
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("session index unavailable: %v", err)
		store = nil
	} else {
		defer store.Close()
		index = store
		if cfg.Match.Source == "index" {
			if n, err := matcher.Reindex(ctx, cfg.LogDir(), store); err != nil {
				slog.Warn("reindexing conversation logs failed", "error", err)
			} else if n > 0 {
				slog.Info("indexed existing conversation logs", "count", n)
			}
		}
	}

	input, out, err := terminal.Open(cfg.HistoryFile())
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer input.Close()

	ctrl := session.New(session.Config{
		Agent:      ag,
		Logs:       convlog.NewStore(cfg.LogDir()),
		Input:      input,
		Out:        out,
		Finder:     newMatcher(cfg, store),
		Index:      index,
		Detector:   detector,
		HTMLReport: cfg.Report.HTML,
		Backend:    acfg.Backend,
	})

	res, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}
	if res.Report.HTML != "" {
		printSuccess("HTML copy saved to %s", res.Report.HTML)
	}
	return nil
}
