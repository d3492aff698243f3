package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/personachat-backend/internal/platform/httpx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

const titleSystemPrompt = `You name chat conversations.
Reply with a title of 3 to 7 words that captures the topic of the exchange.
No greetings, no quotes, no trailing punctuation, no emoji. Reply with the title only.`

type Config struct {
	APIKey     string
	BaseURL    string
	TitleModel string
	Timeout    time.Duration
	MaxRetries int
}

// Client is the subset of the OpenAI API this service uses.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	GenerateTitle(ctx context.Context, userMessage, assistantReply string) (string, error)
}

type client struct {
	log        *logger.Logger
	api        *goopenai.Client
	model      string
	maxRetries int
}

// NewClient returns (nil, nil) when no API key is configured so callers can
// treat the LLM as optional.
func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, nil
	}
	oc := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	oc.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	model := strings.TrimSpace(cfg.TitleModel)
	if model == "" {
		model = goopenai.GPT4oMini
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "OpenAIClient"),
		api:        goopenai.NewClientWithConfig(oc),
		model:      model,
		maxRetries: cfg.MaxRetries,
	}, nil
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.3,
		MaxTokens:   32,
	}

	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("openai returned no choices")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		if !isRetryable(err) || attempt == c.maxRetries {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		c.log.Warn("OpenAI request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", fmt.Errorf("unreachable retry loop")
}

func (c *client) GenerateTitle(ctx context.Context, userMessage, assistantReply string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "User:\n%s\n", clipRunes(userMessage, 1500))
	if strings.TrimSpace(assistantReply) != "" {
		fmt.Fprintf(&b, "\nAssistant:\n%s\n", clipRunes(assistantReply, 1500))
	}
	return c.GenerateText(ctx, titleSystemPrompt, b.String())
}

func isRetryable(err error) bool {
	if httpx.IsTimeout(err) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return httpx.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return httpx.IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func clipRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
