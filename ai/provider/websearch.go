package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const websearchConfidence = 0.85

// WebSearch answers factual queries from the DuckDuckGo instant-answer API.
type WebSearch struct {
	baseURL string
	client  *http.Client
}

// NewWebSearch creates a web search backend against the given base URL
// (empty means the public DuckDuckGo endpoint).
func NewWebSearch(baseURL string, timeout time.Duration) *WebSearch {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &WebSearch{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

func (w *WebSearch) Name() string {
	return "websearch"
}

// instantAnswer is the subset of the DuckDuckGo response we read.
type instantAnswer struct {
	AbstractText string `json:"AbstractText"`
	AbstractURL  string `json:"AbstractURL"`
	Answer       string `json:"Answer"`
	Definition   string `json:"Definition"`
	Heading      string `json:"Heading"`
}

func (w *WebSearch) Search(ctx context.Context, query string) (*Answer, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		w.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var ia instantAnswer
	if err := json.Unmarshal(body, &ia); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	text := firstNonEmpty(ia.Answer, ia.AbstractText, ia.Definition)
	if text == "" {
		return nil, fmt.Errorf("no instant answer for query")
	}

	return &Answer{
		Text:       capText(text),
		Source:     "web",
		Context:    ia.AbstractURL,
		Confidence: websearchConfidence,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
