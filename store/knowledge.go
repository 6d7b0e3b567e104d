package store

import (
	"context"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// Source tags where a knowledge entry's answer came from.
type Source string

const (
	SourceUser         Source = "user"
	SourceUserExplicit Source = "user_explicit"
	SourceWeb          Source = "web"
	SourceAI           Source = "ai"
	SourceSystem       Source = "system"
)

// Confidence bounds for knowledge entries. Every write clamps into this range.
const (
	MinConfidence = 0.1
	MaxConfidence = 1.0
)

// ClampConfidence clamps c into [MinConfidence, MaxConfidence].
func ClampConfidence(c float64) float64 {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// KnowledgeEntry is one learned question/answer fact.
type KnowledgeEntry struct {
	UID             string
	NormalizedQuery string
	Response        string
	Context         string
	Source          Source
	AIProvider      *string
	OwnerID         *int32
	Confidence      float64
	ID              int32
	TimesUsed       int32
	IsPublic        bool
	IsAIGenerated   bool
	CreatedTs       int64
	UpdatedTs       int64
	LastVerifiedTs  int64
}

// FindKnowledge specifies conditions for listing knowledge entries.
type FindKnowledge struct {
	ID  *int32
	UID *string
	// QueryLike restricts candidates to entries whose normalized query
	// contains the given substring.
	QueryLike *string
	// VisibleTo scopes results to entries the given user may see: owned by
	// the user, ownerless, or public. Nil means no visibility scoping.
	VisibleTo     *int32
	OwnerID       *int32
	IsPublic      *bool
	Source        *Source
	MinConfidence *float64
	// VerifiedBefore restricts to entries last verified before the given
	// unix timestamp.
	VerifiedBefore *int64
	Limit          int
}

// UpdateKnowledge specifies a partial update of a knowledge entry.
type UpdateKnowledge struct {
	ID             int32
	Response       *string
	Context        *string
	Source         *Source
	Confidence     *float64
	UpdatedTs      *int64
	LastVerifiedTs *int64
}

// DeleteKnowledge specifies a delete. With ID unset it is a bulk purge;
// PreserveSystem keeps entries with source = system.
type DeleteKnowledge struct {
	ID             *int32
	PreserveSystem bool
}

func (s *Store) CreateKnowledge(ctx context.Context, create *KnowledgeEntry) (*KnowledgeEntry, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	create.Confidence = ClampConfidence(create.Confidence)
	var entry *KnowledgeEntry
	err := withRetry(ctx, func() error {
		var err error
		entry, err = s.driver.CreateKnowledge(ctx, create)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create knowledge entry")
	}
	return entry, nil
}

func (s *Store) ListKnowledge(ctx context.Context, find *FindKnowledge) ([]*KnowledgeEntry, error) {
	var list []*KnowledgeEntry
	err := withRetry(ctx, func() error {
		var err error
		list, err = s.driver.ListKnowledge(ctx, find)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list knowledge entries")
	}
	return list, nil
}

func (s *Store) GetKnowledge(ctx context.Context, find *FindKnowledge) (*KnowledgeEntry, error) {
	list, err := s.ListKnowledge(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateKnowledge(ctx context.Context, update *UpdateKnowledge) (*KnowledgeEntry, error) {
	if update.Confidence != nil {
		clamped := ClampConfidence(*update.Confidence)
		update.Confidence = &clamped
	}
	var entry *KnowledgeEntry
	err := withRetry(ctx, func() error {
		var err error
		entry, err = s.driver.UpdateKnowledge(ctx, update)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge entry")
	}
	return entry, nil
}

func (s *Store) DeleteKnowledge(ctx context.Context, delete *DeleteKnowledge) error {
	err := withRetry(ctx, func() error {
		return s.driver.DeleteKnowledge(ctx, delete)
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete knowledge entries")
	}
	return nil
}

func (s *Store) IncrementKnowledgeUsage(ctx context.Context, id int32) error {
	err := withRetry(ctx, func() error {
		return s.driver.IncrementKnowledgeUsage(ctx, id)
	})
	if err != nil {
		return errors.Wrap(err, "failed to increment knowledge usage")
	}
	return nil
}
