package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/providers/rag"
	"github.com/sandevgo/recall/internal/storage/sqlite"
)

type fixture struct {
	db       *sql.DB
	sessions *sqlite.SessionsRepo
	messages *sqlite.MessagesRepo
	memory   *sqlite.MemoryRepo
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		sessions: sqlite.NewSessionsRepo(db),
		messages: sqlite.NewMessagesRepo(db),
		memory:   sqlite.NewMemoryRepo(db),
	}

	f.service, err = NewService(
		rag.NewHashEmbedder(64),
		sqlite.NewEmbeddingsRepo(db),
		f.messages,
		f.memory,
		16,
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) addMessage(t *testing.T, sid int64, content string) int64 {
	t.Helper()
	id, err := f.messages.AppendMessage(context.Background(), sid, content, true)
	require.NoError(t, err)
	return id
}

func TestSearch_EmptyIndex(t *testing.T) {
	f := newFixture(t)

	hits, err := f.service.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	m1 := f.addMessage(t, sid, "I drink espresso every morning")
	f.addMessage(t, sid, "the weather is nice today")

	n, err := f.service.IndexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := f.service.Search(ctx, "I drink espresso every morning", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.SourceMessage, hits[0].SourceType)
	assert.Equal(t, m1, hits[0].SourceID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
}

func TestIndexAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	f.addMessage(t, sid, "hello world")

	n, err := f.service.IndexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.service.IndexAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexAll_BlankContentNeverRecounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	f.addMessage(t, sid, "real content")
	f.addMessage(t, sid, "   ")

	n, err := f.service.IndexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.service.IndexAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexAll_FullBatchOfBlanksTerminates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	// One more blank row than the batch size, so a sweep that returns
	// blanks would keep fetching the same batch forever.
	for i := 0; i < 17; i++ {
		f.addMessage(t, sid, " ")
	}

	n, err := f.service.IndexAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndex_SkipsUnchangedContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	mid := f.addMessage(t, sid, "stable content")

	require.NoError(t, f.service.Index(ctx, core.SourceMessage, mid, "stable content"))
	require.NoError(t, f.service.Index(ctx, core.SourceMessage, mid, "stable content"))

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEmbeddings)
}

func TestIndex_MemoriesCarryImportance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.memory.AddMemory(ctx, core.MemoryEntry{
		Content: "user prefers dark roast", Category: core.CategoryPreference, Importance: 8,
	})
	require.NoError(t, err)

	_, err = f.service.IndexAll(ctx)
	require.NoError(t, err)

	hits, err := f.service.Search(ctx, "user prefers dark roast", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.SourceMemory, hits[0].SourceType)
	assert.Equal(t, id, hits[0].SourceID)
	assert.Equal(t, 8, hits[0].Importance)
}

func TestSearch_PrunesDanglingHits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.memory.AddMemory(ctx, core.MemoryEntry{
		Content: "doomed memory", Category: core.CategoryFact, Importance: 5,
	})
	require.NoError(t, err)

	_, err = f.service.IndexAll(ctx)
	require.NoError(t, err)

	// Remove the row directly so the index still holds the vector.
	_, err = f.db.ExecContext(ctx, `DELETE FROM memory WHERE id = ?`, id)
	require.NoError(t, err)
	_, err = f.db.ExecContext(ctx, `DELETE FROM embeddings WHERE source_type = 'memory' AND source_id = ?`, id)
	require.NoError(t, err)
	// Re-insert embedding record without the source to simulate drift.
	require.NoError(t, f.service.Index(ctx, core.SourceMemory, id, "doomed memory"))

	hits, err := f.service.Search(ctx, "doomed memory", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEmbeddings)
}

func TestSearch_EqualSimilarityPrefersRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Identical content embeds to identical vectors, so both hits tie
	// on similarity and recency decides.
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO memory (content, category, source_session_id, source_message_id, importance, created_at)
		 VALUES ('twin fact', 'fact', 0, 0, 5, 1000), ('twin fact', 'fact', 0, 0, 5, 2000)`)
	require.NoError(t, err)

	_, err = f.service.IndexAll(ctx)
	require.NoError(t, err)

	hits, err := f.service.Search(ctx, "twin fact", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Similarity, hits[1].Similarity)
	assert.True(t, hits[0].CreatedAt.After(hits[1].CreatedAt))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	f.addMessage(t, sid, "a message")
	_, err = f.memory.AddMemory(ctx, core.MemoryEntry{Content: "a fact", Category: core.CategoryFact, Importance: 5})
	require.NoError(t, err)

	_, err = f.service.IndexAll(ctx)
	require.NoError(t, err)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEmbeddings)
	assert.Equal(t, 1, stats.ByType[core.SourceMessage])
	assert.Equal(t, 1, stats.ByType[core.SourceMemory])
	assert.Equal(t, 64, stats.Dimension)
	assert.Equal(t, "hash-v1", stats.Model)
}

func TestRebuild_DropsStaleModelVectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.CreateSession(ctx, "chat")
	require.NoError(t, err)
	mid := f.addMessage(t, sid, "indexed under old model")

	embeddings := sqlite.NewEmbeddingsRepo(f.db)
	require.NoError(t, embeddings.UpsertEmbedding(ctx, core.EmbeddingRecord{
		SourceType: core.SourceMessage, SourceID: mid,
		ContentHash: "stale", Model: "old-model", Dimension: 3, Vector: []float32{1, 2, 3},
	}))

	require.NoError(t, f.service.Rebuild(ctx))

	// The stale record is gone, so the message is unindexed again.
	pending, err := embeddings.UnindexedMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mid, pending[0].ID)
}
