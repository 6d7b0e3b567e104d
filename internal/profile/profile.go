package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AIPriority controls when the generative AI provider is consulted
// relative to web search in the resolution cascade.
type AIPriority string

const (
	// AIPriorityPreferred tries the AI provider before web search when the
	// query looks AI-suited.
	AIPriorityPreferred AIPriority = "preferred"
	// AIPriorityFallback tries the AI provider only after both the knowledge
	// base and web search produced nothing usable.
	AIPriorityFallback AIPriority = "fallback"
)

// Profile is the immutable configuration to start the main server.
// It is constructed once at startup and passed by reference into each
// component; no component reads ambient state after boot.
type Profile struct {
	Mode        string
	Addr        string
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
	Port        int

	// Unified LLM configuration (OpenAI-compatible protocol).
	// All providers (zai, deepseek, openai, siliconflow, ollama) use the same config.
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  int // seconds

	// Anthropic configuration (native protocol, optional second Generate backend).
	AnthropicAPIKey string
	AnthropicModel  string

	// Web search configuration.
	SearchBaseURL string
	SearchTimeout int // seconds
	SearchEnabled bool

	// Resolution tuning.
	AIPriority         AIPriority
	RetrievalThreshold float64 // admission gate for knowledge retrieval
	MaxQueryLen        int     // normalizer truncation length, in runes
	CacheTTLDays       int     // answer cache freshness window
	CacheRetentionDays int     // answer cache hard-delete window
	TelegramBotToken   string
	TelegramBotEnabled bool
}

// Provider default configurations for the unified LLM backend.
// Used when SAGELY_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-5.2",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if a generative provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.AnthropicAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("SAGELY_AI_LLM_PROVIDER", "zai")
	p.LLMAPIKey = getEnvOrDefault("SAGELY_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("SAGELY_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("SAGELY_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("SAGELY_AI_LLM_TIMEOUT_SECONDS", 8)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: zai", "provider", p.LLMProvider)
			p.LLMProvider = "zai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	p.AnthropicAPIKey = getEnvOrDefault("SAGELY_AI_ANTHROPIC_API_KEY", "")
	p.AnthropicModel = getEnvOrDefault("SAGELY_AI_ANTHROPIC_MODEL", "claude-3-5-haiku-latest")

	p.SearchBaseURL = getEnvOrDefault("SAGELY_SEARCH_BASE_URL", "https://api.duckduckgo.com")
	p.SearchTimeout = getEnvOrDefaultInt("SAGELY_SEARCH_TIMEOUT_SECONDS", 5)
	p.SearchEnabled = getEnvOrDefault("SAGELY_SEARCH_ENABLED", "true") == "true"

	p.AIPriority = AIPriority(getEnvOrDefault("SAGELY_AI_PRIORITY", string(AIPriorityFallback)))
	p.RetrievalThreshold = getEnvOrDefaultFloat("SAGELY_RETRIEVAL_THRESHOLD", 0.55)
	p.MaxQueryLen = getEnvOrDefaultInt("SAGELY_MAX_QUERY_LEN", 500)
	p.CacheTTLDays = getEnvOrDefaultInt("SAGELY_CACHE_TTL_DAYS", 7)
	p.CacheRetentionDays = getEnvOrDefaultInt("SAGELY_CACHE_RETENTION_DAYS", 30)

	p.TelegramBotToken = getEnvOrDefault("SAGELY_TELEGRAM_BOT_TOKEN", "")
	p.TelegramBotEnabled = p.TelegramBotToken != ""
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.AIPriority != AIPriorityPreferred && p.AIPriority != AIPriorityFallback {
		p.AIPriority = AIPriorityFallback
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/sagely"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := "sagely_" + p.Mode + ".db"
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.RetrievalThreshold <= 0 || p.RetrievalThreshold >= 1 {
		return errors.Errorf("retrieval threshold must be in (0, 1), got %f", p.RetrievalThreshold)
	}

	return nil
}
