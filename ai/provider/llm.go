package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	llmConfidence = 0.85

	// generatePrompt keeps answers short and declarative so they can be
	// stored as knowledge entries verbatim.
	generatePrompt = "You are a concise factual assistant. Answer the question in one or two short sentences, with no preamble. If you do not know, say exactly: I don't know."
)

// LLMConfig configures an OpenAI-compatible generative backend.
type LLMConfig struct {
	Provider    string // zai, deepseek, openai, siliconflow, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// LLM generates answers through any OpenAI-compatible chat API.
type LLM struct {
	client      *openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewLLM creates a generative backend for the configured provider.
func NewLLM(cfg LLMConfig) *LLM {
	httpClient := newHTTPClient(60 * time.Second)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = httpClient

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case "deepseek":
			baseURL = "https://api.deepseek.com"
		case "siliconflow":
			baseURL = "https://api.siliconflow.cn/v1"
		case "zai":
			baseURL = "https://open.bigmodel.cn/api/paas/v4"
		case "ollama":
			baseURL = "http://localhost:11434"
		case "openai":
			// go-openai default.
		default:
			slog.Info("using generic OpenAI-compatible provider", "provider", cfg.Provider)
		}
	}
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &LLM{
		client:      openai.NewClientWithConfig(clientConfig),
		provider:    cfg.Provider,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

func (l *LLM) Name() string {
	return "llm:" + l.provider
}

func (l *LLM) Generate(ctx context.Context, query string) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatePrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm generate failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from llm")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" || strings.EqualFold(text, "i don't know.") || strings.EqualFold(text, "i don't know") {
		return nil, fmt.Errorf("llm declined to answer")
	}

	slog.Debug("llm answer generated",
		"provider", l.provider,
		"model", l.model,
		"tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Answer{
		Text:       capText(text),
		Source:     "ai",
		Context:    l.provider + "/" + l.model,
		Confidence: llmConfidence,
	}, nil
}
