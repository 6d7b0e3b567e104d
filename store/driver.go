package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store database drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// Knowledge model related methods.
	CreateKnowledge(ctx context.Context, create *KnowledgeEntry) (*KnowledgeEntry, error)
	ListKnowledge(ctx context.Context, find *FindKnowledge) ([]*KnowledgeEntry, error)
	UpdateKnowledge(ctx context.Context, update *UpdateKnowledge) (*KnowledgeEntry, error)
	DeleteKnowledge(ctx context.Context, delete *DeleteKnowledge) error
	IncrementKnowledgeUsage(ctx context.Context, id int32) error

	// Answer cache model related methods.
	UpsertAnswerCache(ctx context.Context, upsert *UpsertAnswerCache) (*AnswerCache, error)
	GetAnswerCacheByHash(ctx context.Context, queryHash string) (*AnswerCache, error)
	DeleteAnswerCacheBefore(ctx context.Context, beforeTs int64) (int64, error)

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversationFeedback(ctx context.Context, id int32, feedback int32) (*Conversation, error)
}
