package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/sagely/store"
)

func (d *DB) CreateKnowledge(ctx context.Context, create *store.KnowledgeEntry) (*store.KnowledgeEntry, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	if create.LastVerifiedTs == 0 {
		create.LastVerifiedTs = create.CreatedTs
	}

	stmt := `INSERT INTO knowledge_entry (
			uid, normalized_query, response, context, source, ai_provider, owner_id,
			is_public, is_ai_generated, confidence, times_used, created_ts, updated_ts, last_verified_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.NormalizedQuery, create.Response, create.Context,
		string(create.Source), create.AIProvider, create.OwnerID,
		create.IsPublic, create.IsAIGenerated, create.Confidence, create.TimesUsed,
		create.CreatedTs, create.UpdatedTs, create.LastVerifiedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge entry: %w", err)
	}

	return create, nil
}

func (d *DB) ListKnowledge(ctx context.Context, find *store.FindKnowledge) ([]*store.KnowledgeEntry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.QueryLike != nil {
		where, args = append(where, "normalized_query LIKE ?"), append(args, "%"+*find.QueryLike+"%")
	}
	if find.VisibleTo != nil {
		where, args = append(where, "(owner_id IS NULL OR owner_id = ? OR is_public = 1)"), append(args, *find.VisibleTo)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}
	if find.IsPublic != nil {
		where, args = append(where, "is_public = ?"), append(args, *find.IsPublic)
	}
	if find.Source != nil {
		where, args = append(where, "source = ?"), append(args, string(*find.Source))
	}
	if find.MinConfidence != nil {
		where, args = append(where, "confidence >= ?"), append(args, *find.MinConfidence)
	}
	if find.VerifiedBefore != nil {
		where, args = append(where, "last_verified_ts < ?"), append(args, *find.VerifiedBefore)
	}

	query := `SELECT id, uid, normalized_query, response, context, source, ai_provider, owner_id,
			is_public, is_ai_generated, confidence, times_used, created_ts, updated_ts, last_verified_ts
		FROM knowledge_entry
		WHERE ` + joinAnd(where) + `
		ORDER BY updated_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}
	defer rows.Close()

	list := []*store.KnowledgeEntry{}
	for rows.Next() {
		var entry store.KnowledgeEntry
		var source string
		if err := rows.Scan(
			&entry.ID, &entry.UID, &entry.NormalizedQuery, &entry.Response, &entry.Context,
			&source, &entry.AIProvider, &entry.OwnerID,
			&entry.IsPublic, &entry.IsAIGenerated, &entry.Confidence, &entry.TimesUsed,
			&entry.CreatedTs, &entry.UpdatedTs, &entry.LastVerifiedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		entry.Source = store.Source(source)
		list = append(list, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge entry rows: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateKnowledge(ctx context.Context, update *store.UpdateKnowledge) (*store.KnowledgeEntry, error) {
	set, args := []string{}, []any{}

	if update.Response != nil {
		set, args = append(set, "response = ?"), append(args, *update.Response)
	}
	if update.Context != nil {
		set, args = append(set, "context = ?"), append(args, *update.Context)
	}
	if update.Source != nil {
		set, args = append(set, "source = ?"), append(args, string(*update.Source))
	}
	if update.Confidence != nil {
		set, args = append(set, "confidence = ?"), append(args, *update.Confidence)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	} else {
		set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	}
	if update.LastVerifiedTs != nil {
		set, args = append(set, "last_verified_ts = ?"), append(args, *update.LastVerifiedTs)
	}
	args = append(args, update.ID)

	stmt := `UPDATE knowledge_entry SET ` + joinComma(set) + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to update knowledge entry: %w", err)
	}

	list, err := d.ListKnowledge(ctx, &store.FindKnowledge{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("knowledge entry %d not found", update.ID)
	}
	return list[0], nil
}

func (d *DB) DeleteKnowledge(ctx context.Context, delete *store.DeleteKnowledge) error {
	where, args := []string{"1 = 1"}, []any{}

	if delete.ID != nil {
		where, args = append(where, "id = ?"), append(args, *delete.ID)
	}
	if delete.PreserveSystem {
		where, args = append(where, "source != ?"), append(args, string(store.SourceSystem))
	}

	stmt := `DELETE FROM knowledge_entry WHERE ` + joinAnd(where)
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete knowledge entries: %w", err)
	}
	return nil
}

func (d *DB) IncrementKnowledgeUsage(ctx context.Context, id int32) error {
	stmt := `UPDATE knowledge_entry SET times_used = times_used + 1 WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, id); err != nil {
		return fmt.Errorf("failed to increment knowledge usage: %w", err)
	}
	return nil
}
