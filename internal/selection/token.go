package selection

import "strings"

// EstimateTokens gives a rough token count at ~1.33 tokens per word.
// It sizes units for display and logging, not for billing.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
