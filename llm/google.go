package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"scribe/settings"
)

const (
	googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	googleModel   = "gemini-2.0-flash"
)

// Google implements Provider using the Gemini generateContent API.
type Google struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGoogle creates a new Gemini provider.
// If apiKey is empty, it reads from GEMINI_API_KEY environment variable.
func NewGoogle(apiKey string) *Google {
	if apiKey == "" {
		apiKey = os.Getenv(KeyEnv(settings.ProviderGoogle))
	}
	return &Google{
		apiKey:  apiKey,
		baseURL: googleBaseURL,
		model:   googleModel,
		client:  &http.Client{},
	}
}

// WithModel sets a specific model to use. Empty keeps the default.
func (g *Google) WithModel(model string) *Google {
	if model != "" {
		g.model = model
	}
	return g
}

// WithBaseURL points the provider at another endpoint. Empty keeps the default.
func (g *Google) WithBaseURL(baseURL string) *Google {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

// WithHTTPClient replaces the HTTP client.
func (g *Google) WithHTTPClient(c *http.Client) *Google {
	g.client = c
	return g
}

// Name returns the provider name.
func (g *Google) Name() string {
	return "google"
}

// Available checks if an API key is configured.
func (g *Google) Available() bool {
	return g.apiKey != ""
}

// CompleteWithSystem sends a prompt with a system instruction to Gemini.
// The response is requested as JSON.
func (g *Google) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	reqBody := googleRequest{
		Contents:         []googleContent{{Role: "user", Parts: []googlePart{{Text: prompt}}}},
		GenerationConfig: &googleGenerationConfig{ResponseMimeType: "application/json"},
	}
	if system != "" {
		reqBody.SystemInstruction = &googleContent{Parts: []googlePart{{Text: system}}}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := g.baseURL + "/models/" + url.PathEscape(g.model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(g.Name(), resp.StatusCode, body)
	}

	var apiResp googleResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("parsing response: no candidates")
	}

	var result strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		result.WriteString(part.Text)
	}
	return result.String(), nil
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type googleRequest struct {
	SystemInstruction *googleContent          `json:"systemInstruction,omitempty"`
	Contents          []googleContent         `json:"contents"`
	GenerationConfig  *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}
