// Package tokens provides token counting used to bound the amount of
// conversation history replayed to a model per turn.
package tokens

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter reports how many tokens a piece of text encodes to.
type Counter interface {
	CountTokens(text string) int
}

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer resolves an encoding by model name, falling back to treating
// the name as an encoding name (e.g. "cl100k_base").
func NewTokenizer(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// RuneEstimator is a dependency-free fallback Counter that approximates
// four runes per token. Used when the tiktoken encoding cannot be loaded
// (it is fetched over the network on first use).
type RuneEstimator struct{}

// CountTokens approximates the token count from the rune count.
func (RuneEstimator) CountTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return n/4 + 1
}
