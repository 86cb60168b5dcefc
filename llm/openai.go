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
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"
)

// OpenAI implements Provider against any OpenAI-compatible chat completions
// endpoint.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates a new OpenAI provider.
// If apiKey is empty, it reads from OPENAI_API_KEY environment variable.
func NewOpenAI(apiKey string) *OpenAI {
	if apiKey == "" {
		apiKey = os.Getenv(KeyEnv(settings.ProviderOpenAI))
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		model:   openAIModel,
		client:  &http.Client{},
	}
}

// WithModel sets a specific model to use. Empty keeps the default.
func (o *OpenAI) WithModel(model string) *OpenAI {
	if model != "" {
		o.model = model
	}
	return o
}

// WithBaseURL points the provider at another endpoint. Empty keeps the default.
func (o *OpenAI) WithBaseURL(baseURL string) *OpenAI {
	if baseURL != "" {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
	return o
}

// WithHTTPClient replaces the HTTP client.
func (o *OpenAI) WithHTTPClient(c *http.Client) *OpenAI {
	o.client = c
	return o
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return "openai"
}

// Available checks if an API key is configured.
func (o *OpenAI) Available() bool {
	return o.apiKey != ""
}

// CompleteWithSystem sends a system and user message to chat/completions.
func (o *OpenAI) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model:          o.model,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "system", Content: system})
	}
	reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "user", Content: prompt})

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(o.Name(), resp.StatusCode, body)
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("parsing response: no choices")
	}
	return apiResp.Choices[0].Message.Content, nil
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
