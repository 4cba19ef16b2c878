package persona

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/core"
)

type fakeMessages struct {
	core.MessagesRepository
	msgs []core.Message
}

func (f *fakeMessages) GetUserMessages(ctx context.Context) ([]core.Message, error) {
	return f.msgs, nil
}

type fakePersona struct {
	core.PersonaRepository
	saved *core.PersonaTraits
}

func (f *fakePersona) SavePersona(ctx context.Context, traits core.PersonaTraits) error {
	f.saved = &traits
	return nil
}

func newTestAnalyzer(contents []string) (*Analyzer, *fakePersona) {
	msgs := make([]core.Message, len(contents))
	for i, c := range contents {
		msgs[i] = core.Message{ID: int64(i + 1), Content: c, IsUser: true}
	}
	store := &fakePersona{}
	return NewAnalyzer(&fakeMessages{msgs: msgs}, store, 20, 500), store
}

func repeat(content string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = content
	}
	return out
}

func TestAnalyze_InsufficientData(t *testing.T) {
	a, store := newTestAnalyzer(repeat("hello", 19))

	_, err := a.Analyze(context.Background())
	require.ErrorIs(t, err, core.ErrInsufficientData)
	assert.Nil(t, store.saved)
}

func TestAnalyze_SavesProfile(t *testing.T) {
	a, store := newTestAnalyzer(repeat("just a short note", 25))

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	require.NotNil(t, store.saved)
	assert.Equal(t, 25, traits.MessagesAnalyzed)
	assert.Equal(t, "en", traits.Language)
	assert.Equal(t, "brief", traits.ResponseLength)
}

func TestAnalyze_DetectsRussian(t *testing.T) {
	a, _ := newTestAnalyzer(repeat("добрый день, как дела", 20))

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ru", traits.Language)
}

func TestAnalyze_TechnicalStyle(t *testing.T) {
	a, _ := newTestAnalyzer(repeat("the function has a bug in this method", 20))

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "technical", traits.WritingStyle)
	assert.Equal(t, "direct", traits.Tone)
}

func TestAnalyze_CasualWithEmoji(t *testing.T) {
	a, _ := newTestAnalyzer(repeat("hey there 😀 everything okay", 20))

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "casual", traits.WritingStyle)
	assert.NotEqual(t, "none", traits.EmojiUsage)
	assert.Equal(t, "friendly", traits.Tone)
}

func TestAnalyze_ExpressivePunctuation(t *testing.T) {
	a, _ := newTestAnalyzer(repeat("wow!! this is amazing!!!", 20))

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "expressive", traits.PunctuationStyle)
}

func TestAnalyze_CommonPhrases(t *testing.T) {
	contents := repeat("machine learning is great", 20)
	a, _ := newTestAnalyzer(contents)

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Contains(t, traits.CommonPhrases, "machine learning")
	assert.LessOrEqual(t, len(traits.CommonPhrases), 10)
}

func TestAnalyze_SampleLimit(t *testing.T) {
	var contents []string
	for i := 0; i < 600; i++ {
		contents = append(contents, fmt.Sprintf("message number %d", i))
	}
	a, _ := newTestAnalyzer(contents)

	traits, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, traits.MessagesAnalyzed)
}

func TestEmojiBuckets(t *testing.T) {
	assert.Equal(t, "none", emojiBucket(0.05))
	assert.Equal(t, "rare", emojiBucket(0.3))
	assert.Equal(t, "moderate", emojiBucket(1.5))
	assert.Equal(t, "frequent", emojiBucket(3.0))
}

func TestLengthBuckets(t *testing.T) {
	assert.Equal(t, "brief", lengthBucket(5))
	assert.Equal(t, "medium", lengthBucket(15))
	assert.Equal(t, "detailed", lengthBucket(45))
}

func TestBuildPrompt_NilTraits(t *testing.T) {
	assert.Equal(t, DefaultPrompt, BuildPrompt(nil))
}

func TestBuildPrompt_RendersTraits(t *testing.T) {
	p := BuildPrompt(&core.PersonaTraits{
		WritingStyle:     "casual",
		Tone:             "friendly",
		ResponseLength:   "brief",
		VocabularyLevel:  "medium",
		EmojiUsage:       "none",
		Language:         "ru",
		TopicsOfInterest: []string{"coffee", "golang"},
	})

	assert.Contains(t, p, "casual")
	assert.Contains(t, p, "Do not use emojis")
	assert.Contains(t, p, "Respond in Russian")
	assert.Contains(t, p, "coffee, golang")
}
