package core

import (
	"context"
	"time"
)

type SessionsRepository interface {
	CreateSession(ctx context.Context, title string) (int64, error)
	GetSession(ctx context.Context, id int64) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	// DeleteSession cascades to the session's messages and removes
	// their embedding records.
	DeleteSession(ctx context.Context, id int64) error
}

type MessagesRepository interface {
	// AppendMessage inserts the message and atomically maintains the
	// session's message_count, updated_at and last_message_preview.
	AppendMessage(ctx context.Context, sessionID int64, content string, isUser bool) (int64, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	GetRecentMessages(ctx context.Context, sessionID int64, limit int) ([]Message, error)
	GetUserMessages(ctx context.Context) ([]Message, error)
	// SearchMessagesByText is the substring fallback used when
	// semantic search is unavailable. Newest first.
	SearchMessagesByText(ctx context.Context, query string, limit int) ([]Message, error)
}

type MemoryRepository interface {
	AddMemory(ctx context.Context, entry MemoryEntry) (int64, error)
	GetMemory(ctx context.Context, id int64) (*MemoryEntry, error)
	// ListMemories returns all memories, optionally filtered by
	// category, ordered by importance then recency.
	ListMemories(ctx context.Context, category string) ([]MemoryEntry, error)
	TopMemories(ctx context.Context, n int) ([]MemoryEntry, error)
	DeleteMemory(ctx context.Context, id int64) error
}

type PersonaRepository interface {
	// SavePersona replaces the singleton profile wholesale.
	SavePersona(ctx context.Context, traits PersonaTraits) error
	// GetPersona returns nil if analysis has never run.
	GetPersona(ctx context.Context) (*PersonaTraits, error)
}

type EmbeddingsRepository interface {
	UpsertEmbedding(ctx context.Context, rec EmbeddingRecord) error
	HasEmbedding(ctx context.Context, sourceType SourceType, sourceID int64, contentHash string) (bool, error)
	AllEmbeddings(ctx context.Context) ([]EmbeddingRecord, error)
	DeleteEmbedding(ctx context.Context, sourceType SourceType, sourceID int64) error
	DeleteAllEmbeddings(ctx context.Context) error
	// UnindexedMessages / UnindexedMemories list sources without a
	// persisted vector, oldest first, for batch indexing.
	UnindexedMessages(ctx context.Context, limit int) ([]Message, error)
	UnindexedMemories(ctx context.Context, limit int) ([]MemoryEntry, error)
}

// SemanticIndex answers nearest-neighbor queries over indexed content.
// The current implementation is a brute-force in-memory collection;
// the interface allows swapping in an approximate structure later.
type SemanticIndex interface {
	Index(ctx context.Context, sourceType SourceType, sourceID int64, text string) error
	IndexAll(ctx context.Context) (int, error)
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
	Stats(ctx context.Context) (IndexStats, error)
}

// ExportPair is one instruction/response example derived from a user
// message and the first assistant reply that followed it.
type ExportPair struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// ExportTurn and ExportConversation form the multi-turn export format.
type ExportTurn struct {
	From  string `json:"from"` // "human" or "gpt"
	Value string `json:"value"`
}

type ExportConversation struct {
	ID            string       `json:"id"`
	Conversations []ExportTurn `json:"conversations"`
}

// SessionExport couples a session with its full message history.
type SessionExport struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// ExportDump is a complete portable snapshot of the store.
type ExportDump struct {
	ExportedAt time.Time       `json:"exported_at"`
	Sessions   []SessionExport `json:"sessions"`
	Memories   []MemoryEntry   `json:"memories"`
	Persona    *PersonaTraits  `json:"persona,omitempty"`
}

type Exporter interface {
	ExportPairs(ctx context.Context) ([]ExportPair, error)
	ExportConversations(ctx context.Context) ([]ExportConversation, error)
	ExportDump(ctx context.Context) (*ExportDump, error)
}

// Clock lets tests pin timestamps; production code uses time.Now.
type Clock func() time.Time
