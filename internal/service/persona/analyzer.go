package persona

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// Markers are the vocabulary cues used to classify writing style. The
// defaults cover English and Russian; callers can substitute their own
// sets for other languages.
type Markers struct {
	Formal    []string
	Casual    []string
	Technical []string
}

func DefaultMarkers() Markers {
	return Markers{
		Formal: []string{
			"уважаемый", "пожалуйста", "благодарю", "извините",
			"please", "thank you", "regards",
		},
		Casual: []string{
			"короче", "типа", "ну", "блин", "чё", "норм", "привет", "ок",
			"hi", "hey", "cool",
		},
		Technical: []string{
			"функция", "класс", "метод", "api", "код", "баг",
			"function", "class", "method", "code", "bug",
		},
	}
}

// Analyzer derives a style profile from the user's message history.
type Analyzer struct {
	messages    core.MessagesRepository
	persona     core.PersonaRepository
	markers     Markers
	minMessages int
	sampleLimit int
	now         core.Clock
}

func NewAnalyzer(messages core.MessagesRepository, persona core.PersonaRepository, minMessages, sampleLimit int) *Analyzer {
	return &Analyzer{
		messages:    messages,
		persona:     persona,
		markers:     DefaultMarkers(),
		minMessages: minMessages,
		sampleLimit: sampleLimit,
		now:         time.Now,
	}
}

// WithMarkers overrides the default style markers.
func (a *Analyzer) WithMarkers(m Markers) *Analyzer {
	a.markers = m
	return a
}

// Analyze recomputes the profile from scratch and persists it. It
// refuses to profile below the message threshold so a few messages
// cannot produce a confidently wrong persona.
func (a *Analyzer) Analyze(ctx context.Context) (*core.PersonaTraits, error) {
	msgs, err := a.messages.GetUserMessages(ctx)
	if err != nil {
		return nil, err
	}
	if len(msgs) > a.sampleLimit {
		msgs = msgs[len(msgs)-a.sampleLimit:]
	}
	if len(msgs) < a.minMessages {
		return nil, core.ErrInsufficientData
	}

	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Content
	}

	traits := a.analyzeTexts(texts)
	traits.MessagesAnalyzed = len(msgs)
	traits.LastUpdated = a.now()

	if err := a.persona.SavePersona(ctx, traits); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Info().
		Int("messages", traits.MessagesAnalyzed).
		Str("style", traits.WritingStyle).
		Str("tone", traits.Tone).
		Msg("persona profile updated")

	return &traits, nil
}

func (a *Analyzer) analyzeTexts(texts []string) core.PersonaTraits {
	msgCount := float64(len(texts))

	var totalWords, totalWordLen int
	var emojiCount, exclamations, ellipses int
	var formalHits, casualHits, technicalHits int
	uniqueWords := map[string]struct{}{}
	hasCyrillic := false

	for _, text := range texts {
		lower := strings.ToLower(text)

		for _, marker := range a.markers.Formal {
			formalHits += strings.Count(lower, marker)
		}
		for _, marker := range a.markers.Casual {
			casualHits += strings.Count(lower, marker)
		}
		for _, marker := range a.markers.Technical {
			technicalHits += strings.Count(lower, marker)
		}

		exclamations += strings.Count(text, "!")
		ellipses += strings.Count(text, "...")

		for _, r := range text {
			if isEmoji(r) {
				emojiCount++
			}
			if unicode.Is(unicode.Cyrillic, r) {
				hasCyrillic = true
			}
		}

		for _, word := range tokenize(lower) {
			totalWords++
			totalWordLen += len([]rune(word))
			uniqueWords[word] = struct{}{}
		}
	}

	avgWords := float64(totalWords) / msgCount

	traits := core.PersonaTraits{
		AvgMessageLength: avgWords,
		CommonPhrases:    commonBigrams(texts),
		TopicsOfInterest: topics(texts, a.markers),
		EmojiUsage:       emojiBucket(float64(emojiCount) / msgCount),
		PunctuationStyle: punctuationBucket(float64(exclamations+ellipses) / msgCount),
		ResponseLength:   lengthBucket(avgWords),
	}

	traits.WritingStyle = styleBucket(formalHits, casualHits, technicalHits)
	traits.Tone = toneBucket(traits)
	traits.VocabularyLevel = vocabularyBucket(totalWords, totalWordLen, len(uniqueWords))

	if hasCyrillic {
		traits.Language = "ru"
	} else {
		traits.Language = "en"
	}

	return traits
}

func emojiBucket(perMessage float64) string {
	switch {
	case perMessage < 0.1:
		return "none"
	case perMessage < 0.5:
		return "rare"
	case perMessage < 2.0:
		return "moderate"
	default:
		return "frequent"
	}
}

func punctuationBucket(perMessage float64) string {
	switch {
	case perMessage > 1.0:
		return "expressive"
	case perMessage < 0.3:
		return "minimal"
	default:
		return "normal"
	}
}

func styleBucket(formal, casual, technical int) string {
	switch {
	case technical > formal && technical > casual:
		return "technical"
	case formal > casual*2:
		return "formal"
	case casual > formal*2:
		return "casual"
	default:
		return "neutral"
	}
}

func toneBucket(t core.PersonaTraits) string {
	switch {
	case t.WritingStyle == "formal":
		return "formal"
	case t.EmojiUsage == "frequent" && t.PunctuationStyle == "expressive":
		return "humorous"
	case t.WritingStyle == "casual" && t.EmojiUsage != "none":
		return "friendly"
	case t.WritingStyle == "technical":
		return "direct"
	case t.PunctuationStyle == "minimal":
		return "direct"
	default:
		return "friendly"
	}
}

func lengthBucket(avgWords float64) string {
	switch {
	case avgWords < 10:
		return "brief"
	case avgWords < 30:
		return "medium"
	default:
		return "detailed"
	}
}

func vocabularyBucket(totalWords, totalWordLen, unique int) string {
	if totalWords == 0 {
		return "basic"
	}
	uniqueRatio := float64(unique) / float64(totalWords)
	avgLen := float64(totalWordLen) / float64(totalWords)

	switch {
	case uniqueRatio > 0.7 && avgLen > 6:
		return "advanced"
	case uniqueRatio < 0.3 || avgLen < 4:
		return "basic"
	default:
		return "medium"
	}
}

// commonBigrams returns the user's recurring two-word phrases: pairs of
// words longer than two characters seen at least three times, most
// frequent first, capped at ten.
func commonBigrams(texts []string) []string {
	counts := map[string]int{}
	for _, text := range texts {
		words := tokenize(strings.ToLower(text))
		var filtered []string
		for _, w := range words {
			if len([]rune(w)) > 2 {
				filtered = append(filtered, w)
			}
		}
		for i := 0; i+1 < len(filtered); i++ {
			counts[filtered[i]+" "+filtered[i+1]]++
		}
	}
	return topByCount(counts, 3, 10)
}

// topics surfaces frequently repeated content words, skipping style
// markers so "please" never shows up as an interest.
func topics(texts []string, markers Markers) []string {
	skip := map[string]struct{}{}
	for _, set := range [][]string{markers.Formal, markers.Casual, markers.Technical} {
		for _, w := range set {
			skip[w] = struct{}{}
		}
	}

	counts := map[string]int{}
	for _, text := range texts {
		for _, w := range tokenize(strings.ToLower(text)) {
			if len([]rune(w)) <= 4 {
				continue
			}
			if _, ok := skip[w]; ok {
				continue
			}
			counts[w]++
		}
	}
	return topByCount(counts, 3, 5)
}

func topByCount(counts map[string]int, minCount, limit int) []string {
	type entry struct {
		key   string
		count int
	}
	var entries []entry
	for k, c := range counts {
		if c >= minCount {
			entries = append(entries, entry{k, c})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.key
	}
	return out
}

// tokenize splits on non-letter runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F000 && r <= 0x1F02F:
		return true
	default:
		return false
	}
}
