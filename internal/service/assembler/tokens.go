package assembler

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

func getTokenizer() *tiktoken.Tiktoken {
	tkOnce.Do(func() {
		// Failure leaves tk nil and we fall back to estimation.
		tk, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return tk
}

// countTokens measures text against the budget. When the tokenizer is
// unavailable it estimates at four characters per token.
func countTokens(text string) int {
	if enc := getTokenizer(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text)/4 + 1
}
