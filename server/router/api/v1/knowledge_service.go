package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/sagely/store"
)

// listKnowledgeLimit caps one admin listing page.
const listKnowledgeLimit = 200

type KnowledgeEntryResponse struct {
	UID             string  `json:"uid"`
	NormalizedQuery string  `json:"normalizedQuery"`
	Response        string  `json:"response"`
	Source          string  `json:"source"`
	AIProvider      *string `json:"aiProvider,omitempty"`
	OwnerID         *int32  `json:"ownerId,omitempty"`
	Confidence      float64 `json:"confidence"`
	TimesUsed       int32   `json:"timesUsed"`
	IsPublic        bool    `json:"isPublic"`
	CreatedTs       int64   `json:"createdTs"`
	UpdatedTs       int64   `json:"updatedTs"`
	LastVerifiedTs  int64   `json:"lastVerifiedTs"`
}

type ListKnowledgeResponse struct {
	Entries []*KnowledgeEntryResponse `json:"entries"`
}

func (s *APIV1Service) ListKnowledge(c echo.Context) error {
	find := &store.FindKnowledge{Limit: listKnowledgeLimit}
	if err := parseKnowledgeFilter(c.QueryParam("filter"), find); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := s.Store.ListKnowledge(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list knowledge entries").SetInternal(err)
	}

	response := &ListKnowledgeResponse{Entries: make([]*KnowledgeEntryResponse, 0, len(list))}
	for _, entry := range list {
		response.Entries = append(response.Entries, &KnowledgeEntryResponse{
			UID:             entry.UID,
			NormalizedQuery: entry.NormalizedQuery,
			Response:        entry.Response,
			Source:          string(entry.Source),
			AIProvider:      entry.AIProvider,
			OwnerID:         entry.OwnerID,
			Confidence:      entry.Confidence,
			TimesUsed:       entry.TimesUsed,
			IsPublic:        entry.IsPublic,
			CreatedTs:       entry.CreatedTs,
			UpdatedTs:       entry.UpdatedTs,
			LastVerifiedTs:  entry.LastVerifiedTs,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// PurgeKnowledge deletes all learned entries except those with source
// system, which are seeded and must survive an admin purge.
func (s *APIV1Service) PurgeKnowledge(c echo.Context) error {
	err := s.Store.DeleteKnowledge(c.Request().Context(), &store.DeleteKnowledge{PreserveSystem: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to purge knowledge entries").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "knowledge purged"})
}
