package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// Anthropic generates answers through the Anthropic messages API.
type Anthropic struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

func NewAnthropic(apiKey, model string, timeout time.Duration) *Anthropic {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Anthropic{
		client:  anthropic.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

func (a *Anthropic) Name() string {
	return "llm:anthropic"
}

func (a *Anthropic) Generate(ctx context.Context, query string) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := generatePrompt + "\n\nQuestion: " + query
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: 512,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic generate failed: %w", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text = strings.TrimSpace(*block.Text)
			break
		}
	}
	if text == "" || strings.EqualFold(text, "i don't know.") || strings.EqualFold(text, "i don't know") {
		return nil, fmt.Errorf("anthropic declined to answer")
	}

	return &Answer{
		Text:       capText(text),
		Source:     "ai",
		Context:    "anthropic/" + a.model,
		Confidence: llmConfidence,
	}, nil
}
