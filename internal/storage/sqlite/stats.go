package sqlite

import (
	"context"
	"database/sql"

	"github.com/sandevgo/recall/internal/core"
)

type StatsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) GetStats(ctx context.Context) (core.StoreStats, error) {
	var s core.StoreStats

	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM messages WHERE is_user = 1),
			(SELECT COUNT(*) FROM messages WHERE is_user = 0),
			(SELECT COUNT(*) FROM memory),
			(SELECT COALESCE(SUM(LENGTH(content)), 0) FROM messages)
	`).Scan(
		&s.TotalSessions, &s.TotalMessages, &s.UserMessages,
		&s.AssistantMessages, &s.TotalMemories, &s.TotalCharacters,
	)
	if err != nil {
		return core.StoreStats{}, core.NewStorageError("stats", err)
	}

	// Rough token estimate at 4 characters per token.
	s.EstimatedTokens = s.TotalCharacters / 4
	return s, nil
}
