package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ats-job-pipeline/internal/config"
)

// Completer produces a completion for a system/user prompt pair. The
// production implementation talks to an OpenAI-compatible endpoint;
// tests substitute a canned one.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RateLimitError signals a throttled completion. RetryAfter is the
// provider-suggested wait, zero when the provider gave none.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

var retryAfterPattern = regexp.MustCompile(`retry after (\d+)`)

// retryAfterHint pulls a "retry after N" wait out of a provider error
// message, if one is present.
func retryAfterHint(msg string) time.Duration {
	m := retryAfterPattern.FindStringSubmatch(strings.ToLower(msg))
	if m == nil {
		return 0
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// OpenAIClient implements Completer against any OpenAI-compatible API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg config.Config) *OpenAIClient {
	conf := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		conf.BaseURL = cfg.LLMBaseURL
	}
	conf.HTTPClient.Timeout = cfg.LLMTimeout
	return &OpenAIClient{
		client: openai.NewClientWithConfig(conf),
		model:  cfg.LLMModel,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return "", &RateLimitError{RetryAfter: retryAfterHint(apiErr.Message), Err: err}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
