package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const previewLength = 100

type MessagesRepo struct {
	db  *sql.DB
	now core.Clock
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db, now: time.Now}
}

// AppendMessage inserts the message and maintains the session counters
// in the same transaction, so message_count never drifts from the
// actual row count.
func (r *MessagesRepo) AppendMessage(ctx context.Context, sessionID int64, content string, isUser bool) (int64, error) {
	ts := r.now().UnixMilli()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.NewStorageError("append message", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, core.NewStorageError("append message", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, content, is_user, timestamp) VALUES (?, ?, ?, ?)`,
		sessionID, content, boolToInt(isUser), ts,
	)
	if err != nil {
		return 0, core.NewStorageError("insert message", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.NewStorageError("insert message", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = message_count + 1, updated_at = ?, last_message_preview = ?
		 WHERE id = ?`,
		ts, preview(content), sessionID,
	)
	if err != nil {
		return 0, core.NewStorageError("update session counters", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, core.NewStorageError("append message", err)
	}
	return id, nil
}

func (r *MessagesRepo) GetMessage(ctx context.Context, id int64) (*core.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, content, is_user, timestamp FROM messages WHERE id = ?`, id)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.NewStorageError("get message", err)
	}
	return m, nil
}

// GetRecentMessages returns the last limit messages of the session in
// chronological order.
func (r *MessagesRepo) GetRecentMessages(ctx context.Context, sessionID int64, limit int) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, content, is_user, timestamp
		 FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, core.NewStorageError("recent messages", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, core.NewStorageError("recent messages", err)
	}

	// The query returned newest first; reverse back to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(messages)).Msg("loaded recent messages")
	return messages, nil
}

func (r *MessagesRepo) GetUserMessages(ctx context.Context) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, content, is_user, timestamp
		 FROM messages WHERE is_user = 1 ORDER BY id`)
	if err != nil {
		return nil, core.NewStorageError("user messages", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, core.NewStorageError("user messages", err)
	}
	return messages, nil
}

func (r *MessagesRepo) SearchMessagesByText(ctx context.Context, query string, limit int) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, content, is_user, timestamp
		 FROM messages WHERE content LIKE '%' || ? || '%' ORDER BY id DESC LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, core.NewStorageError("text search", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, core.NewStorageError("text search", err)
	}
	return messages, nil
}

func scanMessage(row rowScanner) (*core.Message, error) {
	var m core.Message
	var isUser int
	var ts int64
	if err := row.Scan(&m.ID, &m.SessionID, &m.Content, &isUser, &ts); err != nil {
		return nil, err
	}
	m.IsUser = isUser != 0
	m.Timestamp = time.UnixMilli(ts)
	return &m, nil
}

func collectMessages(rows *sql.Rows) ([]core.Message, error) {
	var messages []core.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// preview truncates content for the session list view. The cut is by
// rune so multi-byte text stays valid.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
