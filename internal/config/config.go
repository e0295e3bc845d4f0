package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// keychainService is the service name secrets are stored under.
const keychainService = "finplan"

type Config struct {
	Agent      AgentConfig
	Storage    StorageConfig
	Match      MatchConfig
	Completion CompletionConfig
	Report     ReportConfig
	Server     ServerConfig
	Log        LogConfig
}

type AgentConfig struct {
	// Backend is one of gemini, openrouter or ollama.
	Backend          string
	Model            string
	GeminiAPIKey     string
	OpenRouterAPIKey string
	OllamaBaseURL    string
}

type StorageConfig struct {
	DataDir string
	// LogDir holds conversation logs and reports. Empty means the current
	// working directory.
	LogDir string
}

type MatchConfig struct {
	// Source is "index" (session database) or "dir" (scan LogDir).
	Source    string
	Tolerance float64
}

type CompletionConfig struct {
	// Mode is "keyword" or "marker".
	Mode string
}

type ReportConfig struct {
	HTML bool
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Agent: AgentConfig{
			Backend:       "gemini",
			OllamaBaseURL: "http://localhost:11434",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Match: MatchConfig{
			Source:    "index",
			Tolerance: 0.2,
		},
		Completion: CompletionConfig{
			Mode: "keyword",
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in increasing priority: defaults, the platform
// backend, then FINPLAN_* environment variables (including any set by .env
// and .env.local in the working directory). Secrets still empty after that
// are read from the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.finplan.app) and
// secrets live in the login Keychain (service: finplan).
// Elsewhere the backend is a JSON file at $XDG_CONFIG_HOME/finplan/config.json
// and secrets fall back to $XDG_DATA_HOME/finplan/secrets.json.
//
// Missing API keys are not an error here; the agent reports them when the
// selected backend needs one.
func Load() (Config, error) {
	loadEnvFiles()
	return loadWith(newPlatformBackend(), keychainReader{})
}

// loadEnvFiles never overrides variables already set in the environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Agent.Backend {
	case "gemini", "openrouter", "ollama":
	default:
		return fmt.Errorf("invalid agent.backend %q: want gemini, openrouter or ollama", cfg.Agent.Backend)
	}
	switch cfg.Match.Source {
	case "index", "dir":
	default:
		return fmt.Errorf("invalid match.source %q: want index or dir", cfg.Match.Source)
	}
	switch cfg.Completion.Mode {
	case "keyword", "marker":
	default:
		return fmt.Errorf("invalid completion.mode %q: want keyword or marker", cfg.Completion.Mode)
	}
	if cfg.Match.Tolerance <= 0 {
		return fmt.Errorf("invalid match.tolerance %v: must be positive", cfg.Match.Tolerance)
	}
	return nil
}

// LogDir returns the directory for conversation logs, resolving an empty
// setting to the working directory.
func (c Config) LogDir() string {
	if c.Storage.LogDir == "" {
		return "."
	}
	return c.Storage.LogDir
}

// HistoryFile is where the interactive prompt keeps its line history.
func (c Config) HistoryFile() string {
	return filepath.Join(c.Storage.DataDir, "history")
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
