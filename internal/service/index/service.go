package index

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const collectionName = "recall"

// Service maintains the semantic index. Vectors are persisted in the
// embeddings table and mirrored into an in-memory chromem collection,
// which is rebuilt from the table on startup.
type Service struct {
	mu         sync.RWMutex
	col        *chromem.Collection
	db         *chromem.DB
	embedder   core.Embedder
	embeddings core.EmbeddingsRepository
	messages   core.MessagesRepository
	memory     core.MemoryRepository
	batchSize  int
}

func NewService(
	embedder core.Embedder,
	embeddings core.EmbeddingsRepository,
	messages core.MessagesRepository,
	memory core.MemoryRepository,
	batchSize int,
) (*Service, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Service{
		col:        col,
		db:         db,
		embedder:   embedder,
		embeddings: embeddings,
		messages:   messages,
		memory:     memory,
		batchSize:  batchSize,
	}, nil
}

// Rebuild loads persisted vectors into the collection. Records from a
// different model or dimension are dropped; their sources show up as
// unindexed again and are re-embedded by IndexAll.
func (s *Service) Rebuild(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	records, err := s.embeddings.AllEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, dropped := 0, 0
	for _, rec := range records {
		if rec.Model != s.embedder.ModelID() || rec.Dimension != s.embedder.Dimensions() {
			if err := s.embeddings.DeleteEmbedding(ctx, rec.SourceType, rec.SourceID); err != nil {
				return fmt.Errorf("drop stale embedding: %w", err)
			}
			dropped++
			continue
		}

		doc := chromem.Document{
			ID:        docID(rec.SourceType, rec.SourceID),
			Content:   rec.ContentHash,
			Embedding: rec.Vector,
			Metadata: map[string]string{
				"source_type": string(rec.SourceType),
				"created_at":  strconv.FormatInt(rec.CreatedAt.UnixMilli(), 10),
			},
		}
		if err := s.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("add document: %w", err)
		}
		loaded++
	}

	logger.Info().Int("loaded", loaded).Int("dropped", dropped).Msg("semantic index rebuilt")
	return nil
}

// Index embeds one source and stores the vector. Unchanged content is
// detected by hash and skipped.
func (s *Service) Index(ctx context.Context, sourceType core.SourceType, sourceID int64, text string) error {
	_, err := s.indexOne(ctx, sourceType, sourceID, text)
	return err
}

// indexOne reports whether a vector was actually stored, so IndexAll
// counts real work rather than visited rows.
func (s *Service) indexOne(ctx context.Context, sourceType core.SourceType, sourceID int64, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	hash := contentHash(text)
	exists, err := s.embeddings.HasEmbedding(ctx, sourceType, sourceID, hash)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	vec, err := s.embedder.EmbedPassage(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed passage: %w", err)
	}
	if len(vec) != s.embedder.Dimensions() {
		return false, &core.DimensionMismatchError{Want: s.embedder.Dimensions(), Got: len(vec)}
	}

	now := time.Now()
	rec := core.EmbeddingRecord{
		SourceType:  sourceType,
		SourceID:    sourceID,
		ContentHash: hash,
		Model:       s.embedder.ModelID(),
		Dimension:   len(vec),
		Vector:      vec,
		CreatedAt:   now,
	}
	if err := s.embeddings.UpsertEmbedding(ctx, rec); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.col.AddDocument(ctx, chromem.Document{
		ID:        docID(sourceType, sourceID),
		Content:   hash,
		Embedding: vec,
		Metadata: map[string]string{
			"source_type": string(sourceType),
			"created_at":  strconv.FormatInt(now.UnixMilli(), 10),
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// IndexAll embeds every source that has no current vector, in batches,
// and reports how many it indexed. Re-running it is a no-op once
// everything is covered.
func (s *Service) IndexAll(ctx context.Context) (int, error) {
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		msgs, err := s.embeddings.UnindexedMessages(ctx, s.batchSize)
		if err != nil {
			return total, err
		}
		for _, m := range msgs {
			stored, err := s.indexOne(ctx, core.SourceMessage, m.ID, m.Content)
			if err != nil {
				return total, err
			}
			if stored {
				total++
			}
		}
		if len(msgs) < s.batchSize {
			break
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		mems, err := s.embeddings.UnindexedMemories(ctx, s.batchSize)
		if err != nil {
			return total, err
		}
		for _, m := range mems {
			stored, err := s.indexOne(ctx, core.SourceMemory, m.ID, m.Content)
			if err != nil {
				return total, err
			}
			if stored {
				total++
			}
		}
		if len(mems) < s.batchSize {
			break
		}
	}

	return total, nil
}

// Search returns the most similar indexed sources. An empty index
// yields empty results, not an error. Hits whose source row is gone
// are pruned lazily and never surface.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	qvec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != s.embedder.Dimensions() {
		return nil, &core.DimensionMismatchError{Want: s.embedder.Dimensions(), Got: len(qvec)}
	}

	s.mu.RLock()
	count := s.col.Count()
	// Over-fetch so lazily pruned hits do not shrink the result set.
	n := limit * 2
	if n > count {
		n = count
	}
	var results []chromem.Result
	if n > 0 {
		results, err = s.col.QueryEmbedding(ctx, qvec, n, nil, nil)
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	var hits []core.SearchHit
	for _, res := range results {
		sourceType, sourceID, err := parseDocID(res.ID)
		if err != nil {
			continue
		}

		hit, err := s.resolveHit(ctx, sourceType, sourceID, float64(res.Similarity))
		if errors.Is(err, core.ErrNotFound) {
			s.prune(ctx, sourceType, sourceID, res.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, *hit)
	}

	// Equal similarity is ordered by source recency.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// resolveHit fetches the live source row behind an index entry.
func (s *Service) resolveHit(ctx context.Context, sourceType core.SourceType, sourceID int64, similarity float64) (*core.SearchHit, error) {
	switch sourceType {
	case core.SourceMessage:
		m, err := s.messages.GetMessage(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		return &core.SearchHit{
			SourceType: sourceType,
			SourceID:   sourceID,
			Content:    m.Content,
			Similarity: similarity,
			CreatedAt:  m.Timestamp,
		}, nil
	case core.SourceMemory:
		m, err := s.memory.GetMemory(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		return &core.SearchHit{
			SourceType: sourceType,
			SourceID:   sourceID,
			Content:    m.Content,
			Similarity: similarity,
			Importance: m.Importance,
			CreatedAt:  m.CreatedAt,
		}, nil
	default:
		return nil, core.ErrNotFound
	}
}

func (s *Service) prune(ctx context.Context, sourceType core.SourceType, sourceID int64, id string) {
	logger := log.FromCtx(ctx)

	s.mu.Lock()
	if err := s.col.Delete(ctx, nil, nil, id); err != nil {
		logger.Warn().Err(err).Str("doc", id).Msg("failed to prune index document")
	}
	s.mu.Unlock()

	if err := s.embeddings.DeleteEmbedding(ctx, sourceType, sourceID); err != nil {
		logger.Warn().Err(err).Str("doc", id).Msg("failed to prune embedding record")
	}
}

func (s *Service) Stats(ctx context.Context) (core.IndexStats, error) {
	records, err := s.embeddings.AllEmbeddings(ctx)
	if err != nil {
		return core.IndexStats{}, err
	}

	stats := core.IndexStats{
		ByType:    make(map[core.SourceType]int),
		Dimension: s.embedder.Dimensions(),
		Model:     s.embedder.ModelID(),
	}
	for _, rec := range records {
		stats.TotalEmbeddings++
		stats.ByType[rec.SourceType]++
	}
	return stats, nil
}

func docID(sourceType core.SourceType, sourceID int64) string {
	return fmt.Sprintf("%s:%d", sourceType, sourceID)
}

func parseDocID(id string) (core.SourceType, int64, error) {
	typ, rawID, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed doc id %q", id)
	}
	sourceID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed doc id %q", id)
	}
	return core.SourceType(typ), sourceID, nil
}

// contentHash is an FNV-1a fingerprint used to skip re-embedding
// unchanged content.
func contentHash(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return strconv.FormatUint(h.Sum64(), 16)
}
