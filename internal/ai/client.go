// Package ai talks to the chat-completion backend. The player's credential is
// only ever sent as the bearer token of this one outbound call.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollamaapi "github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
	openaigo "github.com/sashabaranov/go-openai"

	"adventure-server/internal/models"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

// UsageInfo holds token accounting for one completion call.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the outbound completion interface. credential is the player's own
// API secret; implementations that do not authenticate (ollama) ignore it.
type Client interface {
	Complete(ctx context.Context, credential string, prompt string) (string, UsageInfo, error)
}

// Config holds the completion backend settings.
type Config struct {
	ClientType  string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// CompletionError wraps a failed completion call together with the reason
// shown to the player ("rate limited", "invalid api key", ...).
type CompletionError struct {
	Reason string
	Err    error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed: %s", e.Reason)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Is lets callers match any completion failure with errors.Is against
// models.ErrCompletionFailed without losing the reason.
func (e *CompletionError) Is(target error) bool {
	return target == models.ErrCompletionFailed
}

// Reason extracts the player-facing failure reason from err.
func Reason(err error) string {
	var ce *CompletionError
	if errors.As(err, &ce) && ce.Reason != "" {
		return ce.Reason
	}
	return err.Error()
}

// --- OpenAI-compatible implementation ---

type openAIClient struct {
	cfg        Config
	httpClient *http.Client
}

// Complete sends a single user-role message and returns the completion
// content. One attempt per call: the only retry in this application is the
// player's explicit retry action.
func (c *openAIClient) Complete(ctx context.Context, credential string, prompt string) (string, UsageInfo, error) {
	usage := UsageInfo{}

	if strings.TrimSpace(credential) == "" {
		return "", usage, &CompletionError{Reason: "missing API credential"}
	}

	// The credential belongs to the player, so the client is built per call.
	clientCfg := openaigo.DefaultConfig(credential)
	clientCfg.BaseURL = c.cfg.BaseURL
	clientCfg.HTTPClient = c.httpClient
	client := openaigo.NewClientWithConfig(clientCfg)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	startTime := time.Now()
	log.Debug().Str("model", c.cfg.Model).Int("promptBytes", len(prompt)).Msg("Sending completion request")

	resp, err := client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openaigo.ChatCompletionMessage{
			{
				Role:    openaigo.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})

	duration := time.Since(startTime)

	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Str("model", c.cfg.Model).Msg("Completion request failed")
		aiRequestsTotal.WithLabelValues(c.cfg.Model, "error").Inc()
		return "", usage, &CompletionError{Reason: apiErrorMessage(err), Err: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn().Dur("duration", duration).Str("model", c.cfg.Model).Msg("Completion returned no content")
		aiRequestsTotal.WithLabelValues(c.cfg.Model, "error_empty_response").Inc()
		return "", usage, &CompletionError{Reason: "empty completion response"}
	}

	content := resp.Choices[0].Message.Content

	aiRequestsTotal.WithLabelValues(c.cfg.Model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.cfg.Model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	} else {
		// Some OpenAI-compatible backends omit usage; estimate it.
		usage.PromptTokens = estimateTokens(c.cfg.Model, prompt)
		usage.CompletionTokens = estimateTokens(c.cfg.Model, content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	observeTokenUsage(c.cfg.Model, usage)

	log.Info().
		Str("model", c.cfg.Model).
		Dur("duration", duration).
		Int("promptTokens", usage.PromptTokens).
		Int("completionTokens", usage.CompletionTokens).
		Msg("Completion received")

	return content, usage, nil
}

// apiErrorMessage pulls the message out of the API error body, falling back
// to the raw error text. A non-2xx reply carries {"error":{"message":"..."}}.
func apiErrorMessage(err error) string {
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err.Error()
	}
	return err.Error()
}

// --- Ollama implementation ---

type ollamaClient struct {
	client  *ollamaapi.Client
	cfg     Config
	timeout time.Duration
}

func newOllamaClient(cfg Config) (Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	// api.NewClient expects the URL without a /v1 suffix.
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	baseURL = strings.TrimSuffix(baseURL, "/")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama base URL %q: %w", baseURL, err)
	}

	client := ollamaapi.NewClient(parsedURL, httpClient)
	log.Info().Str("baseURL", baseURL).Str("model", cfg.Model).Msg("Ollama client created")

	return &ollamaClient{
		client:  client,
		cfg:     cfg,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends the prompt to a local Ollama instance. The credential is
// ignored: Ollama does not authenticate.
func (c *ollamaClient) Complete(ctx context.Context, _ string, prompt string) (string, UsageInfo, error) {
	usage := UsageInfo{}

	stream := false
	req := &ollamaapi.ChatRequest{
		Model: c.cfg.Model,
		Messages: []ollamaapi.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": float64(c.cfg.Temperature),
			"num_predict": c.cfg.MaxTokens,
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()

	var resp ollamaapi.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r ollamaapi.ChatResponse) error {
		resp = r
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Str("model", c.cfg.Model).Msg("Ollama request failed")
		aiRequestsTotal.WithLabelValues(c.cfg.Model, "error").Inc()
		return "", usage, &CompletionError{Reason: err.Error(), Err: err}
	}

	if resp.Message.Content == "" {
		aiRequestsTotal.WithLabelValues(c.cfg.Model, "error_empty_response").Inc()
		return "", usage, &CompletionError{Reason: "empty completion response"}
	}

	aiRequestsTotal.WithLabelValues(c.cfg.Model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.cfg.Model).Observe(duration.Seconds())

	usage.PromptTokens = resp.PromptEvalCount
	usage.CompletionTokens = resp.EvalCount
	usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	observeTokenUsage(c.cfg.Model, usage)

	return resp.Message.Content, usage, nil
}

// --- Factory ---

// NewClient builds the completion client selected by cfg.ClientType.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.ClientType) {
	case "openai":
		log.Info().Str("baseURL", cfg.BaseURL).Str("model", cfg.Model).Msg("Using OpenAI-compatible completion client")
		return &openAIClient{
			cfg:        cfg,
			httpClient: &http.Client{Timeout: cfg.Timeout},
		}, nil
	case "ollama":
		log.Info().Msg("Using Ollama completion client")
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown AI client type: %q", cfg.ClientType)
	}
}
