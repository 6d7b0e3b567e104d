// Package server boots the HTTP surface and the background workers around
// the resolution pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/sagely/ai/answercache"
	"github.com/hrygo/sagely/ai/intent"
	"github.com/hrygo/sagely/ai/knowledge"
	"github.com/hrygo/sagely/ai/metrics"
	"github.com/hrygo/sagely/ai/normalize"
	"github.com/hrygo/sagely/ai/orchestrator"
	"github.com/hrygo/sagely/ai/provider"
	"github.com/hrygo/sagely/ai/retrieval"
	"github.com/hrygo/sagely/ai/reverify"
	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/plugin/telegram"
	apiv1 "github.com/hrygo/sagely/server/router/api/v1"
	"github.com/hrygo/sagely/store"
)

const (
	// sweepInterval is how often the answer cache retention sweep runs.
	sweepInterval = 24 * time.Hour

	// providerCallsPerSecond bounds each generative backend in the rotation.
	providerCallsPerSecond = 2.0

	reverifyConcurrency = 3
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
	cache      *answercache.Cache
	bot        *telegram.Bot
}

func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())

	exporter := metrics.NewExporter(metrics.DefaultConfig())
	normalizer := normalize.New(p.MaxQueryLen)
	classifier := intent.NewClassifier()
	retriever := retrieval.New(s, p.RetrievalThreshold)
	knowledgeSvc := knowledge.NewService(s, normalizer)
	cache := answercache.New(s, p.CacheTTLDays, p.CacheRetentionDays)

	searcher := newSearcher(p)
	generator := newGenerator(p, exporter)

	orch := orchestrator.New(p, s, normalizer, classifier, retriever, knowledgeSvc, cache, searcher, generator, exporter)

	var reverifier *reverify.Reverifier
	if searcher != nil || generator != nil {
		reverifier = reverify.New(s, searcher, generator, reverifyConcurrency)
	}

	server := &Server{
		Profile:    p,
		Store:      s,
		echoServer: echoServer,
		apiService: apiv1.NewAPIV1Service(p, s, orch, knowledgeSvc, reverifier, exporter),
		cache:      cache,
	}
	server.apiService.RegisterRoutes(echoServer)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	if p.TelegramBotEnabled {
		bot, err := telegram.NewBot(p.TelegramBotToken, orch)
		if err != nil {
			slog.Warn("failed to create telegram bot, channel disabled", "error", err)
		} else {
			server.bot = bot
		}
	}

	return server, nil
}

// Start launches the HTTP listener and the background workers. It returns
// immediately; the caller waits on its own shutdown signal.
func (s *Server) Start(ctx context.Context) error {
	go s.sweepLoop(ctx)
	if s.bot != nil {
		go s.bot.Start(ctx)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.bot != nil {
		s.bot.Stop()
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("sagely stopped properly")
}

// sweepLoop periodically evicts answer cache entries past the retention
// window. One sweep runs at startup so a long-stopped instance catches up.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		if removed, err := s.cache.Sweep(ctx); err != nil {
			slog.Warn("answer cache sweep failed", "error", err)
		} else if removed > 0 {
			slog.Info("answer cache sweep removed entries", "count", removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newSearcher(p *profile.Profile) provider.Searcher {
	if !p.SearchEnabled {
		return nil
	}
	return provider.NewWebSearch(p.SearchBaseURL, time.Duration(p.SearchTimeout)*time.Second)
}

// newGenerator assembles the generative rotation from the profile: the
// OpenAI-compatible backend first, the Anthropic backend as its fallback.
func newGenerator(p *profile.Profile, exporter *metrics.Exporter) provider.Generator {
	timeout := time.Duration(p.LLMTimeout) * time.Second

	var generators []provider.Generator
	if p.LLMAPIKey != "" || p.LLMProvider == "ollama" {
		generators = append(generators, provider.NewLLM(provider.LLMConfig{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  timeout,
		}))
	}
	if p.AnthropicAPIKey != "" {
		generators = append(generators, provider.NewAnthropic(p.AnthropicAPIKey, p.AnthropicModel, timeout))
	}
	if len(generators) == 0 {
		return nil
	}
	return provider.NewRotation(generators, timeout, providerCallsPerSecond, exporter)
}
