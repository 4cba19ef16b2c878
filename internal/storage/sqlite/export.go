package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type ExportRepo struct {
	db  *sql.DB
	now core.Clock
}

func NewExportRepo(db *sql.DB) *ExportRepo {
	return &ExportRepo{db: db, now: time.Now}
}

// ExportPairs produces instruction/response examples. Each user message
// is paired with the first assistant reply that follows it in the same
// session; trailing user messages without a reply are skipped.
func (r *ExportRepo) ExportPairs(ctx context.Context) ([]core.ExportPair, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, content, is_user FROM messages ORDER BY session_id, id`)
	if err != nil {
		return nil, core.NewStorageError("export pairs", err)
	}
	defer rows.Close()

	var pairs []core.ExportPair
	var pendingInstruction string
	var havePending bool
	var currentSession int64 = -1

	for rows.Next() {
		var sessionID int64
		var content string
		var isUser int
		if err := rows.Scan(&sessionID, &content, &isUser); err != nil {
			return nil, core.NewStorageError("export pairs", err)
		}

		if sessionID != currentSession {
			currentSession = sessionID
			havePending = false
		}

		if isUser != 0 {
			pendingInstruction = content
			havePending = true
			continue
		}

		if havePending {
			pairs = append(pairs, core.ExportPair{
				Instruction: pendingInstruction,
				Output:      content,
			})
			havePending = false
		}
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("export pairs", err)
	}
	return pairs, nil
}

// ExportConversations produces one multi-turn record per session, in
// the human/gpt turn format. Empty sessions are omitted.
func (r *ExportRepo) ExportConversations(ctx context.Context) ([]core.ExportConversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, content, is_user FROM messages ORDER BY session_id, id`)
	if err != nil {
		return nil, core.NewStorageError("export conversations", err)
	}
	defer rows.Close()

	var conversations []core.ExportConversation
	var current *core.ExportConversation
	var currentSession int64 = -1

	for rows.Next() {
		var sessionID int64
		var content string
		var isUser int
		if err := rows.Scan(&sessionID, &content, &isUser); err != nil {
			return nil, core.NewStorageError("export conversations", err)
		}

		if sessionID != currentSession {
			currentSession = sessionID
			conversations = append(conversations, core.ExportConversation{
				ID: fmt.Sprintf("session_%d", sessionID),
			})
			current = &conversations[len(conversations)-1]
		}

		from := "gpt"
		if isUser != 0 {
			from = "human"
		}
		current.Conversations = append(current.Conversations, core.ExportTurn{
			From:  from,
			Value: content,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("export conversations", err)
	}
	return conversations, nil
}

// ExportDump produces a complete snapshot: every session with its
// messages, all memories and the persona profile if one exists.
func (r *ExportRepo) ExportDump(ctx context.Context) (*core.ExportDump, error) {
	dump := &core.ExportDump{ExportedAt: r.now()}

	sessions, err := NewSessionsRepo(r.db).ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		msgs, err := r.sessionMessages(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		dump.Sessions = append(dump.Sessions, core.SessionExport{Session: s, Messages: msgs})
	}

	dump.Memories, err = NewMemoryRepo(r.db).ListMemories(ctx, "")
	if err != nil {
		return nil, err
	}

	dump.Persona, err = NewPersonaRepo(r.db).GetPersona(ctx)
	if err != nil {
		return nil, err
	}
	return dump, nil
}

func (r *ExportRepo) sessionMessages(ctx context.Context, sessionID int64) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, content, is_user, timestamp
		 FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, core.NewStorageError("export dump", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, core.NewStorageError("export dump", err)
	}
	return msgs, nil
}
