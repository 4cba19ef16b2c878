package assembler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/persona"
	"github.com/sandevgo/recall/pkg/log"
)

// importanceEpsilon is the similarity band within which two hits count
// as equally relevant and importance decides their order.
const importanceEpsilon = 0.05

type Config struct {
	TokenBudget    int
	RecentTurns    int
	RetrievalLimit int
	TopMemories    int
	RelevanceFloor float64
	// RetrievalEnabled and PersonaEnabled switch the optional prompt
	// sources off entirely. With persona off the default instruction
	// is used instead of the profile.
	RetrievalEnabled bool
	PersonaEnabled   bool
}

// Assembler builds the prompt for one generation: persona instruction,
// retrieved context, durable memories and the recent conversation,
// packed greedily into the token budget.
type Assembler struct {
	personaRepo core.PersonaRepository
	index       core.SemanticIndex
	memory      core.MemoryRepository
	messages    core.MessagesRepository
	cfg         Config
}

func New(
	personaRepo core.PersonaRepository,
	index core.SemanticIndex,
	memory core.MemoryRepository,
	messages core.MessagesRepository,
	cfg Config,
) *Assembler {
	return &Assembler{
		personaRepo: personaRepo,
		index:       index,
		memory:      memory,
		messages:    messages,
		cfg:         cfg,
	}
}

// Build assembles the prompt for query in the given session. The
// persona block and the query itself are always included; everything
// else competes for the remaining budget. Failures of the optional
// sources degrade silently to a smaller prompt.
func (a *Assembler) Build(ctx context.Context, sessionID int64, query string) ([]core.PromptSegment, error) {
	logger := log.FromCtx(ctx)

	var traits *core.PersonaTraits
	if a.cfg.PersonaEnabled {
		var err error
		traits, err = a.personaRepo.GetPersona(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("persona unavailable, using default prompt")
			traits = nil
		}
	}
	personaBlock := persona.BuildPrompt(traits)

	budget := a.cfg.TokenBudget - countTokens(personaBlock) - countTokens(query)

	var segments []core.PromptSegment
	segments = append(segments, core.PromptSegment{Role: core.RoleSystem, Content: personaBlock})

	if a.cfg.RetrievalEnabled {
		if block, used := a.retrievalBlock(ctx, query, budget); block != "" {
			segments = append(segments, core.PromptSegment{Role: core.RoleContext, Content: block})
			budget -= used
		}
	}

	if block, used := a.memoryBlock(ctx, budget); block != "" {
		segments = append(segments, core.PromptSegment{Role: core.RoleContext, Content: block})
		budget -= used
	}

	segments = append(segments, a.historySegments(ctx, sessionID, budget)...)

	segments = append(segments, core.PromptSegment{Role: core.RoleUser, Content: query})
	return segments, nil
}

// retrievalBlock renders semantically relevant past content, best
// first, stopping at the budget.
func (a *Assembler) retrievalBlock(ctx context.Context, query string, budget int) (string, int) {
	logger := log.FromCtx(ctx)

	hits, err := a.index.Search(ctx, query, a.cfg.RetrievalLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("semantic search failed, assembling without retrieval")
		return "", 0
	}

	var relevant []core.SearchHit
	for _, h := range hits {
		if h.Similarity >= a.cfg.RelevanceFloor {
			relevant = append(relevant, h)
		}
	}
	if len(relevant) == 0 {
		return "", 0
	}

	rankHits(relevant)

	var b strings.Builder
	b.WriteString("Relevant context from earlier conversations:")
	used := countTokens(b.String())

	for _, h := range relevant {
		line := fmt.Sprintf("\n- %s", h.Content)
		cost := countTokens(line)
		if used+cost > budget {
			break
		}
		b.WriteString(line)
		used += cost
	}

	if !strings.Contains(b.String(), "\n") {
		return "", 0
	}
	return b.String(), used
}

// rankHits orders by similarity, letting importance break ties between
// hits that are practically equally similar. Sorting happens in two
// passes so the order never depends on the input permutation: a strict
// similarity sort first, then importance reorders each band of hits
// whose similarity is within epsilon of the band's best.
func rankHits(hits []core.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	for start := 0; start < len(hits); {
		end := start + 1
		for end < len(hits) && hits[start].Similarity-hits[end].Similarity <= importanceEpsilon {
			end++
		}
		band := hits[start:end]
		sort.SliceStable(band, func(i, j int) bool {
			return band[i].Importance > band[j].Importance
		})
		start = end
	}
}

func (a *Assembler) memoryBlock(ctx context.Context, budget int) (string, int) {
	logger := log.FromCtx(ctx)

	memories, err := a.memory.TopMemories(ctx, a.cfg.TopMemories)
	if err != nil {
		logger.Warn().Err(err).Msg("memories unavailable, assembling without them")
		return "", 0
	}
	if len(memories) == 0 {
		return "", 0
	}

	var b strings.Builder
	b.WriteString("Known facts about the user:")
	used := countTokens(b.String())

	for _, m := range memories {
		line := fmt.Sprintf("\n- [%s] %s", m.Category, m.Content)
		cost := countTokens(line)
		if used+cost > budget {
			break
		}
		b.WriteString(line)
		used += cost
	}

	if !strings.Contains(b.String(), "\n") {
		return "", 0
	}
	return b.String(), used
}

// historySegments picks the most recent turns that fit the budget and
// emits them oldest first so the conversation reads forward.
func (a *Assembler) historySegments(ctx context.Context, sessionID int64, budget int) []core.PromptSegment {
	logger := log.FromCtx(ctx)

	turns, err := a.messages.GetRecentMessages(ctx, sessionID, a.cfg.RecentTurns)
	if err != nil {
		logger.Warn().Err(err).Msg("history unavailable, assembling without it")
		return nil
	}

	// Walk backwards so the newest turns win the budget.
	start := len(turns)
	used := 0
	for i := len(turns) - 1; i >= 0; i-- {
		cost := countTokens(turns[i].Content)
		if used+cost > budget {
			break
		}
		used += cost
		start = i
	}

	var segments []core.PromptSegment
	for _, m := range turns[start:] {
		role := core.RoleAssistant
		if m.IsUser {
			role = core.RoleUser
		}
		segments = append(segments, core.PromptSegment{Role: role, Content: m.Content})
	}
	return segments
}
