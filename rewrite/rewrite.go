// Package rewrite asks a language model to rewrite text in a given style.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"scribe/llm"
	"scribe/settings"
)

var (
	// ErrEmptyResponse is returned when the model produced no rewritten text.
	ErrEmptyResponse = errors.New("no content received from API")

	// ErrMissingCredentials is returned before any request is made when no
	// API key is configured.
	ErrMissingCredentials = errors.New("no API key configured")

	// ErrEmptyInput is returned when the content or the style is blank.
	ErrEmptyInput = errors.New("content and style are both required")
)

// Result is one successful rewrite.
type Result struct {
	Content string
	Summary string
}

// Rewriter rewrites content according to a style instruction.
type Rewriter interface {
	Rewrite(ctx context.Context, content, style string) (Result, error)
}

// Func adapts a plain function to Rewriter.
type Func func(ctx context.Context, content, style string) (Result, error)

// Rewrite implements Rewriter.
func (f Func) Rewrite(ctx context.Context, content, style string) (Result, error) {
	return f(ctx, content, style)
}

const systemPrompt = `You are a writing assistant.
User will provide you a XML with content to rewrite, as well as preferred style.
You will rewrite the content according to the user's instruction. You will return a JSON object with the following fields:
- reason: a short, brief explanation of why you made the changes
- rewrittenContent: the rewritten content per user's instruction (just the content, no XML tags)
`

// BuildPrompt wraps the content and style in the XML envelope the system
// prompt describes.
func BuildPrompt(content, style string) string {
	return fmt.Sprintf(`<xml>
  <style>
    %s
  </style>
  <content>
    %s
  </content>
</xml>`, style, content)
}

// LLMRewriter implements Rewriter on top of an llm.Client.
type LLMRewriter struct {
	client *llm.Client
	emDash settings.EmDash
	log    zerolog.Logger
}

// Option configures an LLMRewriter.
type Option func(*LLMRewriter)

// WithEmDash enables em dash post-processing.
func WithEmDash(e settings.EmDash) Option {
	return func(r *LLMRewriter) { r.emDash = e }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *LLMRewriter) { r.log = log }
}

// New creates a rewriter using client.
func New(client *llm.Client, opts ...Option) *LLMRewriter {
	r := &LLMRewriter{client: client, log: zerolog.Nop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FromSettings builds a rewriter from the AI and em dash settings.
func FromSettings(s settings.Settings, opts ...Option) (*LLMRewriter, error) {
	client, err := llm.FromSettings(s.AI)
	if err != nil {
		return nil, err
	}
	return New(client, append([]Option{WithEmDash(s.EmDash)}, opts...)...), nil
}

// Available reports whether a provider has the credentials to be called.
func (r *LLMRewriter) Available() bool {
	return r.client != nil && r.client.Available()
}

// Rewrite implements Rewriter.
func (r *LLMRewriter) Rewrite(ctx context.Context, content, style string) (Result, error) {
	if strings.TrimSpace(content) == "" || strings.TrimSpace(style) == "" {
		return Result{}, ErrEmptyInput
	}
	if !r.Available() {
		return Result{}, ErrMissingCredentials
	}

	raw, err := r.client.CompleteWithSystem(ctx, systemPrompt, BuildPrompt(content, style))
	if err != nil {
		if errors.Is(err, llm.ErrNoProvider) {
			return Result{}, ErrMissingCredentials
		}
		return Result{}, err
	}

	res, err := ParseResponse(raw)
	if err != nil {
		r.log.Debug().Err(err).Int("bytes", len(raw)).Msg("unparseable model response")
		return Result{}, err
	}
	res.Content = PostProcess(res.Content, r.emDash)
	r.log.Debug().Int("in", len(content)).Int("out", len(res.Content)).Msg("rewrite complete")
	return res, nil
}

type response struct {
	Reason           string `json:"reason"`
	RewrittenContent string `json:"rewrittenContent"`
}

// ParseResponse extracts the JSON object from a model reply. Replies wrapped
// in code fences or surrounded by prose are accepted.
func ParseResponse(raw string) (Result, error) {
	body := strings.TrimSpace(raw)
	if start := strings.Index(body, "{"); start >= 0 {
		if end := strings.LastIndex(body, "}"); end > start {
			body = body[start : end+1]
		}
	}

	var resp response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return Result{}, fmt.Errorf("parsing model response: %w", err)
	}
	if resp.RewrittenContent == "" {
		return Result{}, ErrEmptyResponse
	}
	return Result{Content: resp.RewrittenContent, Summary: resp.Reason}, nil
}

// PostProcess applies text substitutions configured in settings to a
// rewritten result.
func PostProcess(text string, e settings.EmDash) string {
	if !e.Enabled {
		return text
	}
	return strings.ReplaceAll(text, "—", e.Replacement)
}
