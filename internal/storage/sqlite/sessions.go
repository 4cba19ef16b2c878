package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type SessionsRepo struct {
	db  *sql.DB
	now core.Clock
}

func NewSessionsRepo(db *sql.DB) *SessionsRepo {
	return &SessionsRepo{db: db, now: time.Now}
}

func (r *SessionsRepo) CreateSession(ctx context.Context, title string) (int64, error) {
	ts := r.now().UnixMilli()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (title, created_at, updated_at) VALUES (?, ?, ?)`,
		title, ts, ts,
	)
	if err != nil {
		return 0, core.NewStorageError("create session", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.NewStorageError("create session", err)
	}
	return id, nil
}

func (r *SessionsRepo) GetSession(ctx context.Context, id int64) (*core.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at, message_count, last_message_preview
		 FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.NewStorageError("get session", err)
	}
	return s, nil
}

func (r *SessionsRepo) ListSessions(ctx context.Context) ([]core.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at, message_count, last_message_preview
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, core.NewStorageError("list sessions", err)
	}
	defer rows.Close()

	var sessions []core.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, core.NewStorageError("list sessions", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list sessions", err)
	}
	return sessions, nil
}

func (r *SessionsRepo) DeleteSession(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("delete session", err)
	}
	defer tx.Rollback()

	// Embedding records are keyed by source id, not by foreign key, so
	// the cascade does not reach them.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM embeddings WHERE source_type = ? AND source_id IN
		 (SELECT id FROM messages WHERE session_id = ?)`,
		core.SourceMessage, id,
	)
	if err != nil {
		return core.NewStorageError("delete session embeddings", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return core.NewStorageError("delete session", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("delete session", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return core.NewStorageError("delete session", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*core.Session, error) {
	var s core.Session
	var createdAt, updatedAt int64
	if err := row.Scan(&s.ID, &s.Title, &createdAt, &updatedAt, &s.MessageCount, &s.LastMessagePreview); err != nil {
		return nil, err
	}
	s.CreatedAt = time.UnixMilli(createdAt)
	s.UpdatedAt = time.UnixMilli(updatedAt)
	return &s, nil
}
