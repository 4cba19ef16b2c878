package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type EmbeddingsRepo struct {
	db  *sql.DB
	now core.Clock
}

func NewEmbeddingsRepo(db *sql.DB) *EmbeddingsRepo {
	return &EmbeddingsRepo{db: db, now: time.Now}
}

func (r *EmbeddingsRepo) UpsertEmbedding(ctx context.Context, rec core.EmbeddingRecord) error {
	blob, err := serializeVector(rec.Vector)
	if err != nil {
		return core.NewStorageError("upsert embedding", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO embeddings (source_type, source_id, content_hash, model, dimension, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_type, source_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			model = excluded.model,
			dimension = excluded.dimension,
			vector = excluded.vector,
			created_at = excluded.created_at`,
		rec.SourceType, rec.SourceID, rec.ContentHash, rec.Model, rec.Dimension,
		blob, r.now().UnixMilli(),
	)
	if err != nil {
		return core.NewStorageError("upsert embedding", err)
	}
	return nil
}

// HasEmbedding reports whether the source already has a vector for this
// exact content hash, so unchanged content is not re-embedded.
func (r *EmbeddingsRepo) HasEmbedding(ctx context.Context, sourceType core.SourceType, sourceID int64, contentHash string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM embeddings WHERE source_type = ? AND source_id = ? AND content_hash = ?`,
		sourceType, sourceID, contentHash,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, core.NewStorageError("has embedding", err)
	}
	return true, nil
}

func (r *EmbeddingsRepo) AllEmbeddings(ctx context.Context) ([]core.EmbeddingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source_type, source_id, content_hash, model, dimension, vector, created_at
		 FROM embeddings`)
	if err != nil {
		return nil, core.NewStorageError("all embeddings", err)
	}
	defer rows.Close()

	var records []core.EmbeddingRecord
	for rows.Next() {
		var rec core.EmbeddingRecord
		var blob []byte
		var createdAt int64
		if err := rows.Scan(&rec.SourceType, &rec.SourceID, &rec.ContentHash, &rec.Model, &rec.Dimension, &blob, &createdAt); err != nil {
			return nil, core.NewStorageError("scan embedding", err)
		}
		rec.Vector, err = deserializeVector(blob)
		if err != nil {
			return nil, core.NewStorageError("scan embedding", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("all embeddings", err)
	}
	return records, nil
}

func (r *EmbeddingsRepo) DeleteEmbedding(ctx context.Context, sourceType core.SourceType, sourceID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM embeddings WHERE source_type = ? AND source_id = ?`,
		sourceType, sourceID,
	)
	if err != nil {
		return core.NewStorageError("delete embedding", err)
	}
	return nil
}

func (r *EmbeddingsRepo) DeleteAllEmbeddings(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return core.NewStorageError("delete all embeddings", err)
	}
	return nil
}

// UnindexedMessages lists messages without a vector, oldest first.
// Blank content is excluded: it can never be embedded, so returning it
// would make every sweep report the same rows again.
func (r *EmbeddingsRepo) UnindexedMessages(ctx context.Context, limit int) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.session_id, m.content, m.is_user, m.timestamp
		 FROM messages m
		 LEFT JOIN embeddings e ON e.source_type = ? AND e.source_id = m.id
		 WHERE e.source_id IS NULL AND TRIM(m.content) != ''
		 ORDER BY m.id LIMIT ?`,
		core.SourceMessage, limit,
	)
	if err != nil {
		return nil, core.NewStorageError("unindexed messages", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, core.NewStorageError("unindexed messages", err)
	}
	return messages, nil
}

func (r *EmbeddingsRepo) UnindexedMemories(ctx context.Context, limit int) ([]core.MemoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.content, m.category, m.source_session_id, m.source_message_id, m.importance, m.created_at
		 FROM memory m
		 LEFT JOIN embeddings e ON e.source_type = ? AND e.source_id = m.id
		 WHERE e.source_id IS NULL AND TRIM(m.content) != ''
		 ORDER BY m.id LIMIT ?`,
		core.SourceMemory, limit,
	)
	if err != nil {
		return nil, core.NewStorageError("unindexed memories", err)
	}
	defer rows.Close()

	return collectMemories(rows)
}
