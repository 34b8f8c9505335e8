package platform

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// NewLLMClient builds the provider client. Retries are left to the caller's
// timeout and fallback policy.
func NewLLMClient(c LLMConfig) *openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithMaxRetries(1),
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	return openai.NewClient(opts...)
}
