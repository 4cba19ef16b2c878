package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type MemoryRepo struct {
	db  *sql.DB
	now core.Clock
}

func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db, now: time.Now}
}

func (r *MemoryRepo) AddMemory(ctx context.Context, entry core.MemoryEntry) (int64, error) {
	importance := entry.Importance
	if importance < 1 {
		importance = 1
	}
	if importance > 10 {
		importance = 10
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO memory (content, category, source_session_id, source_message_id, importance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Content, entry.Category, entry.SourceSessionID, entry.SourceMessageID,
		importance, r.now().UnixMilli(),
	)
	if err != nil {
		return 0, core.NewStorageError("add memory", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.NewStorageError("add memory", err)
	}
	return id, nil
}

func (r *MemoryRepo) GetMemory(ctx context.Context, id int64) (*core.MemoryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, content, category, source_session_id, source_message_id, importance, created_at
		 FROM memory WHERE id = ?`, id)

	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.NewStorageError("get memory", err)
	}
	return m, nil
}

func (r *MemoryRepo) ListMemories(ctx context.Context, category string) ([]core.MemoryEntry, error) {
	query := `SELECT id, content, category, source_session_id, source_message_id, importance, created_at
		 FROM memory`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY importance DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStorageError("list memories", err)
	}
	defer rows.Close()

	return collectMemories(rows)
}

func (r *MemoryRepo) TopMemories(ctx context.Context, n int) ([]core.MemoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, category, source_session_id, source_message_id, importance, created_at
		 FROM memory ORDER BY importance DESC, created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, core.NewStorageError("top memories", err)
	}
	defer rows.Close()

	return collectMemories(rows)
}

func (r *MemoryRepo) DeleteMemory(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("delete memory", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM embeddings WHERE source_type = ? AND source_id = ?`,
		core.SourceMemory, id,
	)
	if err != nil {
		return core.NewStorageError("delete memory embedding", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM memory WHERE id = ?`, id)
	if err != nil {
		return core.NewStorageError("delete memory", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("delete memory", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return core.NewStorageError("delete memory", err)
	}
	return nil
}

func scanMemory(row rowScanner) (*core.MemoryEntry, error) {
	var m core.MemoryEntry
	var createdAt int64
	if err := row.Scan(&m.ID, &m.Content, &m.Category, &m.SourceSessionID, &m.SourceMessageID, &m.Importance, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = time.UnixMilli(createdAt)
	return &m, nil
}

func collectMemories(rows *sql.Rows) ([]core.MemoryEntry, error) {
	var memories []core.MemoryEntry
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, core.NewStorageError("scan memory", err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("scan memory", err)
	}
	return memories, nil
}
