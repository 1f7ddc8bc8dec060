package llm

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// tokenizerForModel returns a codec for estimating prompt size. Models
// without a published tokenizer here approximate with the o200k base
// encoding.
func tokenizerForModel(model string) (tokenizer.Codec, error) {
	sanitized := strings.ToLower(strings.TrimSpace(providerModel(model)))
	switch {
	case sanitized == "":
		return tokenizer.Get(tokenizer.Cl100kBase)
	case strings.HasPrefix(sanitized, "gpt-4.1"):
		return tokenizer.ForModel(tokenizer.GPT41)
	case strings.HasPrefix(sanitized, "gpt-4o"):
		return tokenizer.ForModel(tokenizer.GPT4o)
	case strings.HasPrefix(sanitized, "gpt-4"):
		return tokenizer.ForModel(tokenizer.GPT4)
	case strings.HasPrefix(sanitized, "gpt-3.5"), strings.HasPrefix(sanitized, "gpt-3"):
		return tokenizer.ForModel(tokenizer.GPT35Turbo)
	default:
		return tokenizer.Get(tokenizer.O200kBase)
	}
}

// EstimateTokens counts the tokens in text under the model's tokenizer.
// The count feeds debug logging only and never gates a request; failures
// report zero.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	enc, err := tokenizerForModel(model)
	if err != nil || enc == nil {
		return 0
	}
	count, err := enc.Count(text)
	if err != nil {
		return 0
	}
	return count
}
