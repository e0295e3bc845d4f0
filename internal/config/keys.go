package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

func (t keyType) String() string {
	switch t {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kFloat:
		return "number"
	default:
		return "string"
	}
}

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	// account is the secret store account for secret keys.
	account string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "agent.backend", typ: kString, env: "FINPLAN_AGENT_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Agent.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.Backend },
	},
	{
		key: "agent.model", typ: kString, env: "FINPLAN_AGENT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Agent.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.Model },
	},
	{
		key: "agent.gemini_api_key", typ: kString, env: "FINPLAN_GEMINI_API_KEY",
		secret: true, account: "gemini_api_key",
		apply:   func(cfg *Config, v any) { cfg.Agent.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.GeminiAPIKey },
	},
	{
		key: "agent.openrouter_api_key", typ: kString, env: "FINPLAN_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.Agent.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.OpenRouterAPIKey },
	},
	{
		key: "agent.ollama_base_url", typ: kString, env: "FINPLAN_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Agent.OllamaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.OllamaBaseURL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FINPLAN_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.log_dir", typ: kString, env: "FINPLAN_STORAGE_LOG_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.LogDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.LogDir },
	},
	{
		key: "match.source", typ: kString, env: "FINPLAN_MATCH_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Match.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Match.Source },
	},
	{
		key: "match.tolerance", typ: kFloat, env: "FINPLAN_MATCH_TOLERANCE",
		apply:   func(cfg *Config, v any) { cfg.Match.Tolerance = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.Tolerance },
	},
	{
		key: "completion.mode", typ: kString, env: "FINPLAN_COMPLETION_MODE",
		apply:   func(cfg *Config, v any) { cfg.Completion.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Mode },
	},
	{
		key: "report.html", typ: kBool, env: "FINPLAN_REPORT_HTML",
		apply:   func(cfg *Config, v any) { cfg.Report.HTML = v.(bool) },
		extract: func(cfg Config) any { return cfg.Report.HTML },
	},
	{
		key: "server.port", typ: kInt, env: "FINPLAN_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "FINPLAN_API_TOKEN",
		secret: true, account: "api_token",
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "log.level", typ: kString, env: "FINPLAN_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts raw into the key's Go type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s for %s: %q", s.typ, s.key, raw)
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			slog.Warn("ignoring unparseable environment variable", "env", s.env, "value", raw, "want", s.typ.String())
			continue
		}
		s.apply(cfg, v)
	}
}

func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
