package persona

import (
	"fmt"
	"strings"

	"github.com/sandevgo/recall/internal/core"
)

// DefaultPrompt is used until the analyzer has produced a profile.
const DefaultPrompt = "You are a helpful assistant. Be concise and friendly."

// BuildPrompt renders the profile into the system instruction that
// steers generation toward the user's own style.
func BuildPrompt(traits *core.PersonaTraits) string {
	if traits == nil {
		return DefaultPrompt
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant talking to a specific user. Match their communication style:\n")

	fmt.Fprintf(&b, "- Writing style: %s\n", traits.WritingStyle)
	fmt.Fprintf(&b, "- Tone: %s\n", traits.Tone)
	fmt.Fprintf(&b, "- Preferred response length: %s\n", traits.ResponseLength)
	fmt.Fprintf(&b, "- Vocabulary level: %s\n", traits.VocabularyLevel)

	switch traits.EmojiUsage {
	case "none":
		b.WriteString("- Do not use emojis\n")
	case "frequent":
		b.WriteString("- Feel free to use emojis\n")
	default:
		b.WriteString("- Use emojis sparingly\n")
	}

	if traits.Language == "ru" {
		b.WriteString("- Respond in Russian\n")
	}

	if len(traits.TopicsOfInterest) > 0 {
		fmt.Fprintf(&b, "- The user is interested in: %s\n", strings.Join(traits.TopicsOfInterest, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}
