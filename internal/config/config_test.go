package config

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain map[string]string

func (m mockKeychain) Get(service, account string) (string, error) {
	if service != keychainService {
		return "", errors.New("unknown service")
	}
	v, ok := m[account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

// mapBackend is an in-memory ConfigBackend.
type mapBackend map[string]string

func (m mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapBackend) Set(key string, val any) error {
	m[key] = fmt.Sprint(val)
	return nil
}

func (m mapBackend) Delete(key string) error {
	delete(m, key)
	return nil
}

// clearEnv blanks every FINPLAN_* variable the key table reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Agent.Backend != "gemini" {
		t.Errorf("Agent.Backend = %q, want gemini", cfg.Agent.Backend)
	}
	if cfg.Agent.OllamaBaseURL != "http://localhost:11434" {
		t.Errorf("Agent.OllamaBaseURL = %q", cfg.Agent.OllamaBaseURL)
	}
	if cfg.Match.Source != "index" {
		t.Errorf("Match.Source = %q, want index", cfg.Match.Source)
	}
	if cfg.Match.Tolerance != 0.2 {
		t.Errorf("Match.Tolerance = %v, want 0.2", cfg.Match.Tolerance)
	}
	if cfg.Completion.Mode != "keyword" {
		t.Errorf("Completion.Mode = %q, want keyword", cfg.Completion.Mode)
	}
	if cfg.Report.HTML {
		t.Error("Report.HTML should default to false")
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir should have a default")
	}
	if cfg.LogDir() != "." {
		t.Errorf("LogDir() = %q, want .", cfg.LogDir())
	}
}

func TestMissingAPIKeyIsNotAnError(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agent.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want empty", cfg.Agent.GeminiAPIKey)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := mapBackend{
		"agent.backend":         "ollama",
		"agent.model":           "qwen2.5",
		"agent.ollama_base_url": "http://gpu:11434",
		"storage.log_dir":       "/tmp/plans",
		"match.source":          "dir",
		"match.tolerance":       "0.1",
		"completion.mode":       "marker",
		"report.html":           "true",
		"server.port":           "5000",
		"log.level":             "debug",
	}

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Config{
		Agent: AgentConfig{
			Backend:       "ollama",
			Model:         "qwen2.5",
			OllamaBaseURL: "http://gpu:11434",
		},
		Storage:    StorageConfig{DataDir: cfg.Storage.DataDir, LogDir: "/tmp/plans"},
		Match:      MatchConfig{Source: "dir", Tolerance: 0.1},
		Completion: CompletionConfig{Mode: "marker"},
		Report:     ReportConfig{HTML: true},
		Server:     ServerConfig{Port: 5000},
		Log:        LogConfig{Level: "debug"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestBackendSecretsIgnored(t *testing.T) {
	clearEnv(t)
	b := mapBackend{"agent.gemini_api_key": "from-file"}

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agent.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, secrets must not come from the config backend", cfg.Agent.GeminiAPIKey)
	}
}

func TestBackendInvalidValue(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(mapBackend{"server.port": "lots"}, mockKeychain{})
	if err == nil {
		t.Fatal("expected error for non-integer port")
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("error = %q, want it to name the key", err)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINPLAN_AGENT_BACKEND", "openrouter")
	t.Setenv("FINPLAN_OPENROUTER_API_KEY", "env-key")
	t.Setenv("FINPLAN_REPORT_HTML", "1")
	t.Setenv("FINPLAN_MATCH_TOLERANCE", "0.35")

	b := mapBackend{"agent.backend": "ollama"}
	cfg, err := loadWith(b, mockKeychain{"openrouter_api_key": "keychain-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Agent.Backend != "openrouter" {
		t.Errorf("Agent.Backend = %q, want openrouter", cfg.Agent.Backend)
	}
	if cfg.Agent.OpenRouterAPIKey != "env-key" {
		t.Errorf("OpenRouterAPIKey = %q, want env-key", cfg.Agent.OpenRouterAPIKey)
	}
	if !cfg.Report.HTML {
		t.Error("Report.HTML should be true")
	}
	if cfg.Match.Tolerance != 0.35 {
		t.Errorf("Match.Tolerance = %v, want 0.35", cfg.Match.Tolerance)
	}
}

func TestEnvOverride_UnparseableIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINPLAN_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(mapBackend{"server.port": "5000"}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want backend value 5000", cfg.Server.Port)
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	kc := mockKeychain{
		"gemini_api_key": "gemini-secret",
		"api_token":      "token-secret",
	}
	cfg, err := loadWith(mapBackend{}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Agent.GeminiAPIKey != "gemini-secret" {
		t.Errorf("GeminiAPIKey = %q, want gemini-secret", cfg.Agent.GeminiAPIKey)
	}
	if cfg.Server.APIToken != "token-secret" {
		t.Errorf("APIToken = %q, want token-secret", cfg.Server.APIToken)
	}
	if cfg.Agent.OpenRouterAPIKey != "" {
		t.Errorf("OpenRouterAPIKey = %q, want empty", cfg.Agent.OpenRouterAPIKey)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"agent.backend", "claude", "agent.backend"},
		{"match.source", "cloud", "match.source"},
		{"completion.mode", "vibes", "completion.mode"},
		{"match.tolerance", "-0.5", "match.tolerance"},
		{"match.tolerance", "0", "match.tolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			_, err := loadWith(mapBackend{tt.key: tt.value}, mockKeychain{})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestShowAll_MasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Agent.GeminiAPIKey = "super-secret"

	infos := ShowAll(cfg)
	if len(infos) != len(specs) {
		t.Fatalf("len = %d, want %d", len(infos), len(specs))
	}
	for _, ki := range infos {
		if strings.Contains(ki.Value, "super-secret") {
			t.Errorf("%s leaks secret value", ki.Key)
		}
		switch ki.Key {
		case "agent.gemini_api_key":
			if ki.Value != "(set)" || !ki.Secret {
				t.Errorf("gemini key info = %+v", ki)
			}
		case "agent.openrouter_api_key":
			if ki.Value != "(unset)" {
				t.Errorf("openrouter key value = %q, want (unset)", ki.Value)
			}
		case "server.port":
			if ki.Value != "4100" || ki.EnvVar != "FINPLAN_SERVER_PORT" {
				t.Errorf("server.port info = %+v", ki)
			}
		}
	}
}

func TestSetKey(t *testing.T) {
	b := mapBackend{}

	if err := setKeyWith(b, "report.html", "true"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "agent.model", "gemini-2.5-pro"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b["report.html"] != "true" || b["agent.model"] != "gemini-2.5-pro" {
		t.Errorf("backend = %v", b)
	}

	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("expected error for invalid integer")
	}
	if err := setKeyWith(b, "agent.gemini_api_key", "x"); err == nil {
		t.Error("expected error for secret key")
	}
	if err := setKeyWith(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidAndSecretKeys(t *testing.T) {
	valid := ValidKeys()
	secret := SecretKeys()
	if len(valid)+len(secret) != len(specs) {
		t.Errorf("valid %d + secret %d != %d", len(valid), len(secret), len(specs))
	}
	want := []string{"agent.gemini_api_key", "agent.openrouter_api_key", "server.api_token"}
	if diff := cmp.Diff(want, secret); diff != "" {
		t.Errorf("secret keys mismatch (-want +got):\n%s", diff)
	}
}
