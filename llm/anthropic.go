package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"scribe/settings"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
	anthropicModel      = "claude-sonnet-4-20250514"
)

// Anthropic implements Provider using the Anthropic messages API.
type Anthropic struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewAnthropic creates a new Anthropic provider.
// If apiKey is empty, it reads from ANTHROPIC_API_KEY environment variable.
func NewAnthropic(apiKey string) *Anthropic {
	if apiKey == "" {
		apiKey = os.Getenv(KeyEnv(settings.ProviderAnthropic))
	}
	return &Anthropic{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		model:   anthropicModel,
		client:  &http.Client{},
	}
}

// WithModel sets a specific model to use. Empty keeps the default.
func (a *Anthropic) WithModel(model string) *Anthropic {
	if model != "" {
		a.model = model
	}
	return a
}

// WithBaseURL points the provider at another endpoint. Empty keeps the default.
func (a *Anthropic) WithBaseURL(baseURL string) *Anthropic {
	if baseURL != "" {
		a.baseURL = strings.TrimRight(baseURL, "/")
	}
	return a
}

// WithHTTPClient replaces the HTTP client.
func (a *Anthropic) WithHTTPClient(c *http.Client) *Anthropic {
	a.client = c
	return a
}

// Name returns the provider name.
func (a *Anthropic) Name() string {
	return "anthropic"
}

// Available checks if an API key is configured.
func (a *Anthropic) Available() bool {
	return a.apiKey != ""
}

// CompleteWithSystem sends a prompt with system message to the Anthropic API.
func (a *Anthropic) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: 4096,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(a.Name(), resp.StatusCode, body)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	// Extract text from content blocks
	var result strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}

	return result.String(), nil
}

// apiError builds an APIError, preferring the provider's own message.
// Both vendors nest it as {"error": {"message": ...}}.
func apiError(provider string, status int, body []byte) error {
	var e errorResponse
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		msg = e.Error.Message
	}
	return &APIError{Provider: provider, StatusCode: status, Message: msg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
