// Package budget provides token budget estimation for the context composer.
// Because the pipeline supports multiple LLM backends with different
// tokenizers, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose). This deliberately under-estimates
// so the assembled context always leaves headroom for the model's overhead
// and the generated answer.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing small context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for the assembled
	// retrieval context. Sized so that system prompt + context + question
	// fit comfortably within 8k-context models (Llama 3 8B and similar).
	DefaultMaxContextTokens = 2000
)

// Estimate returns a rough token count for s using the character heuristic.
// Non-empty strings always estimate to at least one token.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}
