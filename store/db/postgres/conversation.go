package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/sagely/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO conversation (uid, user_id, query, response, knowledge_id, confidence, feedback, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, create.Query, create.Response,
		create.KnowledgeID, create.Confidence, create.Feedback, create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT id, uid, user_id, query, response, knowledge_id, confidence, feedback, created_ts
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := []*store.Conversation{}
	for rows.Next() {
		var conv store.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.UID, &conv.UserID, &conv.Query, &conv.Response,
			&conv.KnowledgeID, &conv.Confidence, &conv.Feedback, &conv.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateConversationFeedback(ctx context.Context, id int32, feedback int32) (*store.Conversation, error) {
	stmt := `UPDATE conversation SET feedback = $1 WHERE id = $2
		RETURNING id, uid, user_id, query, response, knowledge_id, confidence, feedback, created_ts`

	var conv store.Conversation
	err := d.db.QueryRowContext(ctx, stmt, feedback, id).Scan(
		&conv.ID, &conv.UID, &conv.UserID, &conv.Query, &conv.Response,
		&conv.KnowledgeID, &conv.Confidence, &conv.Feedback, &conv.CreatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation feedback: %w", err)
	}

	return &conv, nil
}
