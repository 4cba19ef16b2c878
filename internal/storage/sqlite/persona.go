package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type PersonaRepo struct {
	db *sql.DB
}

func NewPersonaRepo(db *sql.DB) *PersonaRepo {
	return &PersonaRepo{db: db}
}

// SavePersona replaces the single profile row. List-valued traits are
// stored as JSON arrays.
func (r *PersonaRepo) SavePersona(ctx context.Context, traits core.PersonaTraits) error {
	phrases, err := json.Marshal(traits.CommonPhrases)
	if err != nil {
		return fmt.Errorf("failed to marshal common phrases: %w", err)
	}
	topics, err := json.Marshal(traits.TopicsOfInterest)
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_persona (
			id, writing_style, avg_message_length, common_phrases, topics_of_interest,
			language, emoji_usage, punctuation_style, tone, response_length,
			vocabulary_level, messages_analyzed, last_updated
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			writing_style = excluded.writing_style,
			avg_message_length = excluded.avg_message_length,
			common_phrases = excluded.common_phrases,
			topics_of_interest = excluded.topics_of_interest,
			language = excluded.language,
			emoji_usage = excluded.emoji_usage,
			punctuation_style = excluded.punctuation_style,
			tone = excluded.tone,
			response_length = excluded.response_length,
			vocabulary_level = excluded.vocabulary_level,
			messages_analyzed = excluded.messages_analyzed,
			last_updated = excluded.last_updated`,
		traits.WritingStyle, traits.AvgMessageLength, string(phrases), string(topics),
		traits.Language, traits.EmojiUsage, traits.PunctuationStyle, traits.Tone,
		traits.ResponseLength, traits.VocabularyLevel, traits.MessagesAnalyzed,
		traits.LastUpdated.UnixMilli(),
	)
	if err != nil {
		return core.NewStorageError("save persona", err)
	}
	return nil
}

// GetPersona returns nil when analysis has never produced a profile.
func (r *PersonaRepo) GetPersona(ctx context.Context) (*core.PersonaTraits, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT writing_style, avg_message_length, common_phrases, topics_of_interest,
			language, emoji_usage, punctuation_style, tone, response_length,
			vocabulary_level, messages_analyzed, last_updated
		 FROM user_persona WHERE id = 1`)

	var t core.PersonaTraits
	var phrases, topics string
	var lastUpdated int64
	err := row.Scan(
		&t.WritingStyle, &t.AvgMessageLength, &phrases, &topics,
		&t.Language, &t.EmojiUsage, &t.PunctuationStyle, &t.Tone,
		&t.ResponseLength, &t.VocabularyLevel, &t.MessagesAnalyzed, &lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStorageError("get persona", err)
	}

	if err := json.Unmarshal([]byte(phrases), &t.CommonPhrases); err != nil {
		return nil, core.NewStorageError("decode common phrases", err)
	}
	if err := json.Unmarshal([]byte(topics), &t.TopicsOfInterest); err != nil {
		return nil, core.NewStorageError("decode topics", err)
	}
	t.LastUpdated = time.UnixMilli(lastUpdated)
	return &t, nil
}
