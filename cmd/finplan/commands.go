package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kalambet/finplan/internal/agent"
	"github.com/kalambet/finplan/internal/config"
	"github.com/kalambet/finplan/internal/convlog"
	"github.com/kalambet/finplan/internal/matcher"
	"github.com/kalambet/finplan/internal/ollama"
	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/proxy"
	"github.com/kalambet/finplan/internal/storage"
)

// openStore loads config and opens the session index.
func openStore(cmd *cobra.Command) (config.Config, *storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("opening session index: %w", err)
	}
	return cfg, store, nil
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse past planning sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		_, store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		return listSessions(cmd.OutOrStdout(), store, limit)
	},
}

func listSessions(w io.Writer, store *storage.Store, limit int) error {
	sessions, err := store.ListSessions(limit, 0)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintln(w, sessionLine(s))
	}
	return nil
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session and its conversation log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		return showSession(cmd.OutOrStdout(), store, convlog.NewStore(cfg.LogDir()), args[0])
	},
}

func showSession(w io.Writer, store *storage.Store, logs *convlog.Store, id string) error {
	sess, err := store.GetSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, sessionLine(sess))
	fmt.Fprintf(w, "  log:    %s\n", sess.LogFile)
	if sess.ReportFile != "" {
		fmt.Fprintf(w, "  report: %s\n", sess.ReportFile)
	}
	if sess.Backend != "" {
		fmt.Fprintf(w, "  agent:  %s\n", sess.Backend)
	}

	records, err := logs.LoadFile(sess.LogFile)
	if errors.Is(err, convlog.ErrLogMissing) {
		fmt.Fprintln(w, "\n(no conversation log)")
		return nil
	}
	if err != nil {
		return err
	}
	for i, r := range records {
		fmt.Fprintf(w, "\n%s %s\n", colorize(colorBold, fmt.Sprintf("[%d] You:", i+1)), r.Query)
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Agent:"), r.Response)
	}
	return nil
}

var sessionsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Add conversation logs in the log directory to the session index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		printStep("Scanning %s", cfg.LogDir())
		n, err := matcher.Reindex(cmd.Context(), cfg.LogDir(), store)
		if err != nil {
			return err
		}
		printSuccess("Indexed %d new session(s)", n)
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().Int("limit", 20, "maximum number of sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsReindexCmd)
}

// --- match ---

var matchCmd = &cobra.Command{
	Use:   "match <income> <gender> <city>",
	Short: "Find a past session similar to a profile",
	Long: `Find a past session with the same gender and city whose income is within
the configured tolerance (match.tolerance, default 20%).

Example:
  finplan match 12.5 F Pune`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		income, err := decimal.NewFromString(args[0])
		if err != nil || !income.IsPositive() {
			return fmt.Errorf("income must be a positive number, got %q", args[0])
		}
		gender, err := profile.ParseGender(args[1])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var store *storage.Store
		if cfg.Match.Source == "index" {
			if store, err = storage.Open(cfg.Storage.DataDir); err != nil {
				return fmt.Errorf("opening session index: %w", err)
			}
			defer store.Close()
		}

		c, ok, err := newMatcher(cfg, store).FindMatch(cmd.Context(), income, gender, args[2])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No similar profile found.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found a similar profile: %s\n", filepath.Base(c.LogFile))
		return nil
	},
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available to the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		pull, _ := cmd.Flags().GetBool("pull")
		return listModels(cmd.Context(), cmd.OutOrStdout(), agentConfig(cfg), pull)
	},
}

func listModels(ctx context.Context, w io.Writer, cfg agent.Config, pull bool) error {
	current := agent.ModelFor(cfg)

	var names []string
	switch cfg.Backend {
	case agent.BackendOllama:
		client := ollama.New(cfg.OllamaBaseURL)
		if pull {
			if err := ollama.EnsureModel(ctx, client, current, stderr); err != nil {
				return err
			}
		}
		models, err := client.ListModels(ctx)
		if err != nil {
			return err
		}
		names = models
	case agent.BackendOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return errors.New("openrouter API key is not set")
		}
		models, err := proxy.NewClient(cfg.OpenRouterAPIKey).ListModels(ctx)
		if err != nil {
			return err
		}
		for _, m := range models {
			names = append(names, m.ID)
		}
	default:
		fmt.Fprintf(w, "%s (gemini)\n", current)
		return nil
	}

	sort.Strings(names)
	for _, n := range names {
		if n == current {
			fmt.Fprintln(w, colorize(colorGreen, n+" *"))
			continue
		}
		fmt.Fprintln(w, n)
	}
	return nil
}

func init() {
	modelsCmd.Flags().String("backend", "", "agent backend (overrides agent.backend)")
	modelsCmd.Flags().String("model", "", "model to mark or pull (overrides agent.model)")
	modelsCmd.Flags().Bool("pull", false, "pull the configured Ollama model if it is missing")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out := make(map[string]string)
			for _, k := range config.ShowAll(cfg) {
				out[k.Key] = k.Value
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> [value]",
	Short: "Store an API key or token in the platform secret store",
	Long: `Store an API key or token in the platform secret store. When value is
omitted it is read from stdin.

Secret keys: agent.gemini_api_key, agent.openrouter_api_key, server.api_token`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			v, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			value = v
		}

		if err := config.SetSecret(key, value); err != nil {
			return err
		}
		printSuccess("Stored %s", key)
		return nil
	},
}

func readSecret(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func init() {
	configShowCmd.Flags().Bool("json", false, "print as JSON")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
