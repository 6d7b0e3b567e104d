package profile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearSagelyEnvVars() {
	for _, key := range []string{
		"SAGELY_AI_LLM_PROVIDER",
		"SAGELY_AI_LLM_API_KEY",
		"SAGELY_AI_LLM_BASE_URL",
		"SAGELY_AI_LLM_MODEL",
		"SAGELY_AI_ANTHROPIC_API_KEY",
		"SAGELY_AI_PRIORITY",
		"SAGELY_SEARCH_BASE_URL",
		"SAGELY_SEARCH_ENABLED",
		"SAGELY_RETRIEVAL_THRESHOLD",
		"SAGELY_CACHE_TTL_DAYS",
		"SAGELY_TELEGRAM_BOT_TOKEN",
	} {
		os.Unsetenv(key)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearSagelyEnvVars()

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "zai", p.LLMProvider)
	require.Equal(t, "https://open.bigmodel.cn/api/paas/v4", p.LLMBaseURL)
	require.Equal(t, "glm-4.7", p.LLMModel)
	require.Equal(t, AIPriorityFallback, p.AIPriority)
	require.Equal(t, "https://api.duckduckgo.com", p.SearchBaseURL)
	require.True(t, p.SearchEnabled)
	require.InDelta(t, 0.55, p.RetrievalThreshold, 1e-9)
	require.Equal(t, 7, p.CacheTTLDays)
	require.Equal(t, 30, p.CacheRetentionDays)
	require.Equal(t, 500, p.MaxQueryLen)
	require.False(t, p.IsAIEnabled())
	require.False(t, p.TelegramBotEnabled)
}

func TestFromEnvOverrides(t *testing.T) {
	clearSagelyEnvVars()
	t.Setenv("SAGELY_AI_LLM_PROVIDER", "deepseek")
	t.Setenv("SAGELY_AI_LLM_API_KEY", "test-key")
	t.Setenv("SAGELY_AI_PRIORITY", "preferred")
	t.Setenv("SAGELY_RETRIEVAL_THRESHOLD", "0.6")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "deepseek", p.LLMProvider)
	require.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	require.Equal(t, "deepseek-chat", p.LLMModel)
	require.Equal(t, AIPriorityPreferred, p.AIPriority)
	require.InDelta(t, 0.6, p.RetrievalThreshold, 1e-9)
	require.True(t, p.IsAIEnabled())
}

func TestFromEnvUnknownProviderFallsBack(t *testing.T) {
	clearSagelyEnvVars()
	t.Setenv("SAGELY_AI_LLM_PROVIDER", "no-such-provider")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "zai", p.LLMProvider)
}

func TestValidate(t *testing.T) {
	p := &Profile{
		Mode:               "dev",
		Data:               t.TempDir(),
		Driver:             "sqlite",
		AIPriority:         "bogus",
		RetrievalThreshold: 0.55,
	}
	require.NoError(t, p.Validate())
	require.Equal(t, AIPriorityFallback, p.AIPriority)
	require.NotEmpty(t, p.DSN)

	p.RetrievalThreshold = 1.5
	require.Error(t, p.Validate())
}
