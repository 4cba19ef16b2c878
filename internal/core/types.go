package core

import "time"

const (
	AppName    = "Recall"
	AppVersion = "0.1.0"
)

// Session groups messages into a single conversation thread.
type Session struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	MessageCount       int       `json:"message_count"`
	LastMessagePreview string    `json:"last_message_preview"`
}

// Message is a single conversation turn. Messages are append-only:
// they are never edited or deleted individually, only together with
// their session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory categories. The column is an open string, these are the ones
// the engine itself produces.
const (
	CategoryFact       = "fact"
	CategoryPreference = "preference"
	CategoryName       = "name"
	CategoryTopic      = "topic"
	CategorySkill      = "skill"
	CategoryGoal       = "goal"
)

// MemoryEntry is a durable fact extracted from (or recorded about) a
// conversation. Source ids are weak references: a memory outlives the
// message it was extracted from.
type MemoryEntry struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	Category        string    `json:"category"`
	SourceSessionID int64     `json:"source_session_id,omitempty"`
	SourceMessageID int64     `json:"source_message_id,omitempty"`
	Importance      int       `json:"importance"` // clamped to [1,10]
	CreatedAt       time.Time `json:"created_at"`
}

// PersonaTraits is the derived style profile of the user, recomputed
// wholesale on every analysis run.
type PersonaTraits struct {
	WritingStyle     string    `json:"writing_style"` // formal, casual, technical, neutral
	AvgMessageLength float64   `json:"avg_message_length"`
	CommonPhrases    []string  `json:"common_phrases"`
	TopicsOfInterest []string  `json:"topics_of_interest"`
	Language         string    `json:"language"`
	EmojiUsage       string    `json:"emoji_usage"`       // none, rare, moderate, frequent
	PunctuationStyle string    `json:"punctuation_style"` // minimal, normal, expressive
	Tone             string    `json:"tone"`
	ResponseLength   string    `json:"response_length"`  // brief, medium, detailed
	VocabularyLevel  string    `json:"vocabulary_level"` // basic, medium, advanced
	MessagesAnalyzed int       `json:"messages_analyzed"`
	LastUpdated      time.Time `json:"last_updated"`
}

// SourceType identifies which table an embedding vector was derived from.
type SourceType string

const (
	SourceMessage SourceType = "message"
	SourceMemory  SourceType = "memory"
)

// EmbeddingRecord is one persisted vector, keyed by (SourceType, SourceID).
// Re-indexing the same source overwrites the record.
type EmbeddingRecord struct {
	SourceType  SourceType `json:"source_type"`
	SourceID    int64      `json:"source_id"`
	ContentHash string     `json:"content_hash"`
	Model       string     `json:"model"`
	Dimension   int        `json:"dimension"`
	Vector      []float32  `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SearchHit is one semantic search result. Similarity is raw cosine
// similarity in [-1,1]; higher is more relevant.
type SearchHit struct {
	SourceType SourceType `json:"source_type"`
	SourceID   int64      `json:"source_id"`
	Content    string     `json:"content"`
	Similarity float64    `json:"similarity"`
	Importance int        `json:"importance,omitempty"` // memories only
	CreatedAt  time.Time  `json:"created_at"`
}

// IndexStats describes the current state of the semantic index.
type IndexStats struct {
	TotalEmbeddings int                `json:"total_embeddings"`
	ByType          map[SourceType]int `json:"by_type"`
	Dimension       int                `json:"dimension"`
	Model           string             `json:"model"`
}

// Prompt segment roles. The inference engine decides how these are
// serialized into its own prompt format.
const (
	RoleSystem    = "system"
	RoleContext   = "context"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PromptSegment is one role-tagged block of the assembled prompt.
type PromptSegment struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SamplingParams are passed by value into the generation coordinator;
// there is no ambient settings state.
type SamplingParams struct {
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	ContextLength int     `json:"context_length"`
}

// StoreStats summarizes the persisted corpus.
type StoreStats struct {
	TotalSessions     int64 `json:"total_sessions"`
	TotalMessages     int64 `json:"total_messages"`
	UserMessages      int64 `json:"user_messages"`
	AssistantMessages int64 `json:"assistant_messages"`
	TotalMemories     int64 `json:"total_memories"`
	TotalCharacters   int64 `json:"total_characters"`
	EstimatedTokens   int64 `json:"estimated_tokens"`
}
