package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Feedback values stamped on a conversation by the feedback endpoint.
const (
	FeedbackNegative int32 = -1
	FeedbackNeutral  int32 = 0
	FeedbackPositive int32 = 1
)

// Conversation is one resolved query audit row. KnowledgeID is a weak
// back-reference to the knowledge entry that answered it, if any; it never
// implies ownership. Feedback is the only mutable field.
type Conversation struct {
	UID         string
	Query       string
	Response    string
	UserID      *int32
	KnowledgeID *int32
	Confidence  float64
	ID          int32
	Feedback    int32
	CreatedTs   int64
}

// FindConversation specifies conditions for listing conversations.
type FindConversation struct {
	ID     *int32
	UID    *string
	UserID *int32
	Limit  int
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	if create.UID == "" {
		create.UID = uuid.NewString()
	}
	var conv *Conversation
	err := withRetry(ctx, func() error {
		var err error
		conv, err = s.driver.CreateConversation(ctx, create)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return conv, nil
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	var list []*Conversation
	err := withRetry(ctx, func() error {
		var err error
		list, err = s.driver.ListConversations(ctx, find)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	return list, nil
}

func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversationFeedback(ctx context.Context, id int32, feedback int32) (*Conversation, error) {
	var conv *Conversation
	err := withRetry(ctx, func() error {
		var err error
		conv, err = s.driver.UpdateConversationFeedback(ctx, id, feedback)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update conversation feedback")
	}
	return conv, nil
}
