package v1

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/sagely/ai/orchestrator"
	"github.com/hrygo/sagely/store"
)

// maxQueryRunes rejects oversized queries before they reach the pipeline.
// The normalizer truncates much earlier; this guard exists so a caller gets
// an explicit error instead of a silently shortened query.
const maxQueryRunes = 2000

const (
	msgQueryRequired = "query is required"
	msgQueryTooLong  = "query is too long, the limit is 2000 characters"
)

type ResolveRequest struct {
	Query  string `json:"query"`
	UserID *int32 `json:"userId,omitempty"`
}

type ResolveResponse struct {
	Response         string  `json:"response"`
	Source           string  `json:"source"`
	Kind             string  `json:"kind"`
	Confidence       float64 `json:"confidence"`
	KnowledgeID      *int32  `json:"knowledgeId,omitempty"`
	ConversationID   int32   `json:"conversationId"`
	ConversationUID  string  `json:"conversationUid"`
	AwaitingReverify bool    `json:"awaitingReverify,omitempty"`
}

func (s *APIV1Service) ResolveQuery(c echo.Context) error {
	request := &ResolveRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	query := strings.TrimSpace(request.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, msgQueryRequired)
	}
	if utf8.RuneCountInString(query) > maxQueryRunes {
		return echo.NewHTTPError(http.StatusBadRequest, msgQueryTooLong)
	}

	result, err := s.Orchestrator.Resolve(c.Request().Context(), query, request.UserID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, msgQueryRequired)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve query").SetInternal(err)
	}

	return c.JSON(http.StatusOK, &ResolveResponse{
		Response:         result.Response,
		Source:           result.Source,
		Kind:             string(result.Kind),
		Confidence:       result.Confidence,
		KnowledgeID:      result.KnowledgeID,
		ConversationID:   result.ConversationID,
		ConversationUID:  result.ConversationUID,
		AwaitingReverify: result.AwaitingReverify,
	})
}

type FeedbackRequest struct {
	ConversationID int32 `json:"conversationId"`
	Feedback       int32 `json:"feedback"`
}

func (s *APIV1Service) SubmitFeedback(c echo.Context) error {
	request := &FeedbackRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if request.Feedback < store.FeedbackNegative || request.Feedback > store.FeedbackPositive {
		return echo.NewHTTPError(http.StatusBadRequest, "feedback must be -1, 0 or 1")
	}

	if err := s.Knowledge.ApplyFeedback(c.Request().Context(), request.ConversationID, request.Feedback); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to apply feedback").SetInternal(err)
	}

	if s.Metrics != nil {
		s.Metrics.RecordFeedback(feedbackKind(request.Feedback))
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "feedback recorded"})
}

func feedbackKind(feedback int32) string {
	switch {
	case feedback > 0:
		return "positive"
	case feedback < 0:
		return "negative"
	default:
		return "neutral"
	}
}

func (s *APIV1Service) TriggerReverify(c echo.Context) error {
	if s.Reverifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no external provider configured")
	}

	report, err := s.Reverifier.Run(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "reverification failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, report)
}
