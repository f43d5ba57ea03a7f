// Package finalize implements the end-of-call pipeline: summarize the
// transcript via a chat-completion request, then post the call record to the
// external call-log sink.
//
// The pipeline is best-effort by design: a failed summary degrades to a null
// summary field, and a failed post is logged rather than propagated, because
// by the time finalization runs the call is already over and there is nobody
// to return an error to.
package finalize

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Summary request parameters. The temperature keeps summaries stable across
// runs while leaving room for phrasing; the token cap bounds cost per call.
const (
	summaryTemperature = 0.4
	summaryMaxTokens   = 800
)

// minSummaryTranscript is the minimum trimmed transcript length, in bytes,
// worth summarizing. Shorter calls (wrong numbers, instant hangups) produce
// summaries that cost more than they say.
const minSummaryTranscript = 40

// Summarizer produces a concise post-call summary of a transcript.
type Summarizer interface {
	// Summarize returns a condensed summary of the transcript text.
	Summarize(ctx context.Context, transcript string) (string, error)
}

// ChatSummarizer implements [Summarizer] using the OpenAI chat-completions
// API.
type ChatSummarizer struct {
	client oai.Client
	model  string
	prompt string
}

// chatConfig holds optional configuration for the summarizer.
type chatConfig struct {
	baseURL string
	timeout time.Duration
}

// ChatOption is a functional option for [NewChatSummarizer].
type ChatOption func(*chatConfig)

// WithBaseURL overrides the default OpenAI API base URL. Used in tests to
// point the client at a local server.
func WithBaseURL(url string) ChatOption {
	return func(c *chatConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) ChatOption {
	return func(c *chatConfig) {
		c.timeout = d
	}
}

// NewChatSummarizer constructs a [ChatSummarizer]. systemPrompt is the fixed
// system message sent with every request; the transcript goes in the user
// message.
func NewChatSummarizer(apiKey, model, systemPrompt string, opts ...ChatOption) (*ChatSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("finalize: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("finalize: model must not be empty")
	}

	cfg := &chatConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &ChatSummarizer{
		client: oai.NewClient(reqOpts...),
		model:  model,
		prompt: systemPrompt,
	}, nil
}

// Summarize implements [Summarizer]. An empty completion is an error so the
// caller can distinguish "model said nothing" from a real summary.
func (s *ChatSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(s.prompt),
			oai.UserMessage("Call transcript:\n" + transcript),
		},
		Temperature: param.NewOpt(summaryTemperature),
		MaxTokens:   param.NewOpt(int64(summaryMaxTokens)),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("finalize: summary completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("finalize: empty choices in summary response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("finalize: summary response has no content")
	}
	return content, nil
}
