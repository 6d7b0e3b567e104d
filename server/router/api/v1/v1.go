// Package v1 exposes the assistant and admin REST API.
package v1

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/sagely/ai/knowledge"
	"github.com/hrygo/sagely/ai/metrics"
	"github.com/hrygo/sagely/ai/orchestrator"
	"github.com/hrygo/sagely/ai/reverify"
	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
)

type APIV1Service struct {
	Profile      *profile.Profile
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Knowledge    *knowledge.Service
	Reverifier   *reverify.Reverifier
	Metrics      *metrics.Exporter
}

func NewAPIV1Service(
	p *profile.Profile,
	s *store.Store,
	orch *orchestrator.Orchestrator,
	knowledgeSvc *knowledge.Service,
	reverifier *reverify.Reverifier,
	exporter *metrics.Exporter,
) *APIV1Service {
	return &APIV1Service{
		Profile:      p,
		Store:        s,
		Orchestrator: orch,
		Knowledge:    knowledgeSvc,
		Reverifier:   reverifier,
		Metrics:      exporter,
	}
}

// RegisterRoutes mounts the REST endpoints on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1", middleware.CORS())

	apiGroup.POST("/assistant/resolve", s.ResolveQuery)
	apiGroup.POST("/assistant/feedback", s.SubmitFeedback)
	apiGroup.POST("/assistant/reverify", s.TriggerReverify)

	apiGroup.GET("/knowledge", s.ListKnowledge)
	apiGroup.DELETE("/knowledge", s.PurgeKnowledge)
}
