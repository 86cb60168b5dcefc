// Package llm provides an abstraction layer for language model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"scribe/settings"
)

// ErrNoProvider is returned when no LLM provider is configured or available.
var ErrNoProvider = errors.New("no LLM provider available")

// Provider defines the interface for language model backends.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// Available checks if this provider has what it needs (credentials) to
	// make a request.
	Available() bool

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Client manages LLM providers and selects the best available one.
type Client struct {
	providers []Provider
	preferred Provider
}

// NewClient creates a new LLM client with the given providers.
// Providers are tried in order of preference.
func NewClient(providers ...Provider) *Client {
	return &Client{
		providers: providers,
	}
}

// SetPreferred sets a specific provider to use, bypassing auto-selection.
func (c *Client) SetPreferred(name string) bool {
	for _, p := range c.providers {
		if p.Name() == name && p.Available() {
			c.preferred = p
			return true
		}
	}
	return false
}

// Provider returns the currently active provider, or nil if none available.
func (c *Client) Provider() Provider {
	if c.preferred != nil && c.preferred.Available() {
		return c.preferred
	}

	for _, p := range c.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

// Available returns true if any provider is available.
func (c *Client) Available() bool {
	return c.Provider() != nil
}

// CompleteWithSystem sends a prompt with system message to the best available provider.
func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	p := c.Provider()
	if p == nil {
		return "", ErrNoProvider
	}
	return p.CompleteWithSystem(ctx, system, prompt)
}

// KeyEnv names the environment variable a provider reads its API key from
// when the settings leave it empty.
func KeyEnv(provider string) string {
	switch provider {
	case settings.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case settings.ProviderGoogle:
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 60 * time.Second

// FromSettings builds a client whose preferred provider is the one named
// in the AI settings.
func FromSettings(ai settings.AI) (*Client, error) {
	ai = ai.Resolved()
	httpClient := &http.Client{Timeout: DefaultTimeout}
	var p Provider
	switch ai.Provider {
	case settings.ProviderOpenAI, "":
		p = NewOpenAI(ai.APIKey).WithBaseURL(ai.BaseURL).WithModel(ai.ModelName).WithHTTPClient(httpClient)
	case settings.ProviderAnthropic:
		p = NewAnthropic(ai.APIKey).WithBaseURL(ai.BaseURL).WithModel(ai.ModelName).WithHTTPClient(httpClient)
	case settings.ProviderGoogle:
		p = NewGoogle(ai.APIKey).WithBaseURL(ai.BaseURL).WithModel(ai.ModelName).WithHTTPClient(httpClient)
	default:
		return nil, fmt.Errorf("unknown provider %q", ai.Provider)
	}
	c := NewClient(p)
	c.SetPreferred(p.Name())
	return c, nil
}
