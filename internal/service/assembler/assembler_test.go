package assembler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/persona"
)

type fakePersonaRepo struct {
	core.PersonaRepository
	traits *core.PersonaTraits
	err    error
}

func (f *fakePersonaRepo) GetPersona(ctx context.Context) (*core.PersonaTraits, error) {
	return f.traits, f.err
}

type fakeIndex struct {
	core.SemanticIndex
	hits []core.SearchHit
	err  error
}

func (f *fakeIndex) Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	return f.hits, f.err
}

type fakeMemory struct {
	core.MemoryRepository
	memories []core.MemoryEntry
}

func (f *fakeMemory) TopMemories(ctx context.Context, n int) ([]core.MemoryEntry, error) {
	if len(f.memories) > n {
		return f.memories[:n], nil
	}
	return f.memories, nil
}

type fakeMessagesRepo struct {
	core.MessagesRepository
	turns []core.Message
}

func (f *fakeMessagesRepo) GetRecentMessages(ctx context.Context, sessionID int64, limit int) ([]core.Message, error) {
	if len(f.turns) > limit {
		return f.turns[len(f.turns)-limit:], nil
	}
	return f.turns, nil
}

func defaultConfig() Config {
	return Config{
		TokenBudget:      2048,
		RecentTurns:      10,
		RetrievalLimit:   5,
		TopMemories:      5,
		RelevanceFloor:   0.5,
		RetrievalEnabled: true,
		PersonaEnabled:   true,
	}
}

func newAssembler(p *fakePersonaRepo, idx *fakeIndex, mem *fakeMemory, msgs *fakeMessagesRepo, cfg Config) *Assembler {
	if p == nil {
		p = &fakePersonaRepo{}
	}
	if idx == nil {
		idx = &fakeIndex{}
	}
	if mem == nil {
		mem = &fakeMemory{}
	}
	if msgs == nil {
		msgs = &fakeMessagesRepo{}
	}
	return New(p, idx, mem, msgs, cfg)
}

func TestBuild_MinimalPrompt(t *testing.T) {
	a := newAssembler(nil, nil, nil, nil, defaultConfig())

	segments, err := a.Build(context.Background(), 1, "hello")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, core.RoleSystem, segments[0].Role)
	assert.Equal(t, persona.DefaultPrompt, segments[0].Content)
	assert.Equal(t, core.RoleUser, segments[1].Role)
	assert.Equal(t, "hello", segments[1].Content)
}

func TestBuild_PersonaBlockUsesProfile(t *testing.T) {
	p := &fakePersonaRepo{traits: &core.PersonaTraits{
		WritingStyle: "technical", Tone: "direct",
		ResponseLength: "brief", VocabularyLevel: "advanced",
		EmojiUsage: "none", Language: "en",
	}}
	a := newAssembler(p, nil, nil, nil, defaultConfig())

	segments, err := a.Build(context.Background(), 1, "hi")
	require.NoError(t, err)
	assert.Contains(t, segments[0].Content, "technical")
}

func TestBuild_FiltersBelowRelevanceFloor(t *testing.T) {
	idx := &fakeIndex{hits: []core.SearchHit{
		{Content: "relevant hit", Similarity: 0.8},
		{Content: "weak hit", Similarity: 0.3},
	}}
	a := newAssembler(nil, idx, nil, nil, defaultConfig())

	segments, err := a.Build(context.Background(), 1, "query")
	require.NoError(t, err)

	var contextBlock string
	for _, s := range segments {
		if s.Role == core.RoleContext {
			contextBlock += s.Content
		}
	}
	assert.Contains(t, contextBlock, "relevant hit")
	assert.NotContains(t, contextBlock, "weak hit")
}

func TestBuild_SearchFailureDegradesSilently(t *testing.T) {
	idx := &fakeIndex{err: errors.New("embedding server down")}
	a := newAssembler(nil, idx, nil, nil, defaultConfig())

	segments, err := a.Build(context.Background(), 1, "query")
	require.NoError(t, err)
	for _, s := range segments {
		assert.NotEqual(t, core.RoleContext, s.Role)
	}
}

func TestBuild_HistoryChronological(t *testing.T) {
	now := time.Now()
	msgs := &fakeMessagesRepo{turns: []core.Message{
		{Content: "first question", IsUser: true, Timestamp: now.Add(-2 * time.Minute)},
		{Content: "first answer", IsUser: false, Timestamp: now.Add(-time.Minute)},
	}}
	a := newAssembler(nil, nil, nil, msgs, defaultConfig())

	segments, err := a.Build(context.Background(), 1, "next question")
	require.NoError(t, err)
	require.Len(t, segments, 4)
	assert.Equal(t, core.RoleUser, segments[1].Role)
	assert.Equal(t, "first question", segments[1].Content)
	assert.Equal(t, core.RoleAssistant, segments[2].Role)
	assert.Equal(t, "next question", segments[3].Content)
}

func TestBuild_BudgetEvictsHistoryNotPersona(t *testing.T) {
	msgs := &fakeMessagesRepo{turns: []core.Message{
		{Content: "a very long old message that will not fit the tiny budget at all", IsUser: true},
	}}
	cfg := defaultConfig()
	cfg.TokenBudget = 1
	a := newAssembler(nil, nil, nil, msgs, cfg)

	segments, err := a.Build(context.Background(), 1, "hi")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, core.RoleSystem, segments[0].Role)
	assert.Equal(t, core.RoleUser, segments[1].Role)
}

func TestBuild_NewestHistoryWinsBudget(t *testing.T) {
	msgs := &fakeMessagesRepo{turns: []core.Message{
		{Content: "oldest message with quite a few extra words padding it out substantially beyond the budget", IsUser: true},
		{Content: "newest", IsUser: false},
	}}
	cfg := defaultConfig()
	cfg.TokenBudget = countTokens(persona.DefaultPrompt) + countTokens("hi") + countTokens("newest") + 1
	a := newAssembler(nil, nil, nil, msgs, cfg)

	segments, err := a.Build(context.Background(), 1, "hi")
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "newest", segments[1].Content)
}

func TestBuild_MemoriesIncluded(t *testing.T) {
	mem := &fakeMemory{memories: []core.MemoryEntry{
		{Content: "allergic to peanuts", Category: core.CategoryFact, Importance: 9},
	}}
	a := newAssembler(nil, nil, mem, nil, defaultConfig())

	segments, err := a.Build(context.Background(), 1, "dinner ideas")
	require.NoError(t, err)

	found := false
	for _, s := range segments {
		if s.Role == core.RoleContext && strings.Contains(s.Content, "allergic to peanuts") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuild_RetrievalDisabledSkipsSearch(t *testing.T) {
	idx := &fakeIndex{hits: []core.SearchHit{
		{Content: "relevant hit", Similarity: 0.9},
	}}
	cfg := defaultConfig()
	cfg.RetrievalEnabled = false
	a := newAssembler(nil, idx, nil, nil, cfg)

	segments, err := a.Build(context.Background(), 1, "query")
	require.NoError(t, err)
	for _, s := range segments {
		assert.NotContains(t, s.Content, "relevant hit")
	}
}

func TestBuild_PersonaDisabledUsesDefaultPrompt(t *testing.T) {
	p := &fakePersonaRepo{traits: &core.PersonaTraits{
		WritingStyle: "technical", Tone: "direct",
		ResponseLength: "brief", VocabularyLevel: "advanced",
		EmojiUsage: "none", Language: "en",
	}}
	cfg := defaultConfig()
	cfg.PersonaEnabled = false
	a := newAssembler(p, nil, nil, nil, cfg)

	segments, err := a.Build(context.Background(), 1, "hi")
	require.NoError(t, err)
	assert.Equal(t, persona.DefaultPrompt, segments[0].Content)
}

func TestRankHits_ImportanceBreaksNearTies(t *testing.T) {
	hits := []core.SearchHit{
		{Content: "low importance", Similarity: 0.82, Importance: 2},
		{Content: "high importance", Similarity: 0.80, Importance: 9},
		{Content: "clearly better", Similarity: 0.95, Importance: 1},
	}
	rankHits(hits)

	assert.Equal(t, "clearly better", hits[0].Content)
	assert.Equal(t, "high importance", hits[1].Content)
	assert.Equal(t, "low importance", hits[2].Content)
}

func TestRankHits_OrderIndependentOfInput(t *testing.T) {
	// A chain of near-ties whose endpoints differ by more than epsilon.
	base := []core.SearchHit{
		{Content: "a", Similarity: 0.90, Importance: 1},
		{Content: "b", Similarity: 0.86, Importance: 9},
		{Content: "c", Similarity: 0.82, Importance: 5},
	}

	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	var want []string
	for _, perm := range permutations {
		hits := make([]core.SearchHit, len(base))
		for i, p := range perm {
			hits[i] = base[p]
		}
		rankHits(hits)

		got := []string{hits[0].Content, hits[1].Content, hits[2].Content}
		if want == nil {
			want = got
		}
		assert.Equal(t, want, got)
	}
}
