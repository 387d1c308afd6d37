// Package cohere is the transport layer for the Cohere platform. Chat and
// vision go through the OpenAI-compatible endpoint; embed and rerank use the
// native v2 API because the compatibility surface does not carry input_type
// or rerank at all.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/metrics"
)

// Config holds the Cohere transport settings.
type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	VisionModel string
	RerankModel string
	EmbedModel  string
	IntentModel string

	RequestTimeout time.Duration
	MaxRetries     int

	BreakerTrips uint32
	BreakerReset time.Duration

	Logger *zap.Logger
}

// Client talks to the Cohere API with retries and a shared circuit breaker.
type Client struct {
	chat    *openai.Client
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[any]

	apiKey  string
	baseURL string

	chatModel   string
	visionModel string
	rerankModel string
	embedModel  string
	intentModel string

	maxRetries int
	logger     *zap.Logger
}

// New creates a Cohere client. The circuit breaker trips after the configured
// number of consecutive failures and half-opens after the reset window.
func New(cfg *Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}

	compatCfg := openai.DefaultConfig(cfg.APIKey)
	compatCfg.BaseURL = baseURL + "/compatibility/v1"
	compatCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}

	trips := cfg.BreakerTrips
	if trips == 0 {
		trips = 5
	}
	reset := cfg.BreakerReset
	if reset <= 0 {
		reset = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "cohere",
		Timeout: reset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	intentModel := cfg.IntentModel
	if intentModel == "" {
		intentModel = cfg.ChatModel
	}

	return &Client{
		chat:        openai.NewClientWithConfig(compatCfg),
		httpc:       &http.Client{Timeout: cfg.RequestTimeout},
		breaker:     breaker,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
		rerankModel: cfg.RerankModel,
		embedModel:  cfg.EmbedModel,
		intentModel: intentModel,
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
	}
}

// EmbedModel returns the configured embedding model name. The dense index
// folds it into the cache signature.
func (c *Client) EmbedModel() string { return c.embedModel }

// execute runs fn through the shared breaker and maps open-state rejections
// to domain.ErrAIUnavailable.
func execute[T any](c *Client, fn func() (T, error)) (T, error) {
	v, err := c.breaker.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("cohere circuit open: %w", domain.ErrAIUnavailable)
		}
		return zero, err
	}
	return v.(T), nil
}

func observe(operation, model string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ModelRequestsTotal.WithLabelValues(operation, model, status).Inc()
	metrics.ModelRequestDuration.WithLabelValues(operation, model).Observe(time.Since(start).Seconds())
}

// ChatText sends a single-turn prompt and returns the assistant text.
func (c *Client) ChatText(ctx context.Context, model, prompt string, temperature float32) (string, error) {
	if model == "" {
		model = c.chatModel
	}
	return execute(c, func() (string, error) {
		start := time.Now()
		resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Temperature: temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		observe("chat", model, start, err)
		if err != nil {
			return "", parseAPIError("chat", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty chat response: %w", domain.ErrAIUnavailable)
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}

// ChatImageText sends a prompt plus an image (as a data URL) to the vision
// model and returns the assistant text.
func (c *Client) ChatImageText(ctx context.Context, prompt, imageDataURL string, temperature float32) (string, error) {
	model := c.visionModel
	return execute(c, func() (string, error) {
		start := time.Now()
		resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Temperature: temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: prompt},
						{
							Type:     openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{URL: imageDataURL},
						},
					},
				},
			},
		})
		observe("vision", model, start, err)
		if err != nil {
			return "", parseAPIError("vision", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty vision response: %w", domain.ErrAIUnavailable)
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}

// parseAPIError extracts a readable message from a compatibility-endpoint
// error and wraps it with domain.ErrAIUnavailable for fallback handling.
func parseAPIError(operation string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("cohere %s error %d: %s: %w",
			operation, reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrAIUnavailable)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("cohere %s error %d: %s: %w",
			operation, apiErr.HTTPStatusCode, apiErr.Message, domain.ErrAIUnavailable)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("cohere %s: %w", operation, err)
	}
	return fmt.Errorf("cohere %s request failed: %w", operation, domain.ErrAIUnavailable)
}
