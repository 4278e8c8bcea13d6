package llm

import (
	"context"
	"fmt"
	"time"
)

type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New creates the Provider named by opts.Provider.
func New(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Provider {
	case "openai":
		if opts.BaseURL != "" {
			return NewOpenAIProviderWithBaseURL(opts.APIKey, opts.BaseURL, opts.Timeout), nil
		}

		return NewOpenAIProvider(opts.APIKey, opts.Timeout), nil
	case "gemini":
		return NewGeminiProvider(ctx, opts.APIKey, opts.BaseURL, opts.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
