// Package llm talks to the language-model backend over the
// OpenAI-compatible chat completions API. The backend is a stateless
// request/response collaborator shared by every bot; each request
// carries the full prompt and is bounded by a timeout.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrGeneration wraps any backend failure. The caller skips the reply;
// nothing is ever sent into the chat channel about it.
var ErrGeneration = errors.New("reply generation failed")

// Turn is one conversation entry included in the prompt.
type Turn struct {
	Sender string
	Text   string
	// Self marks the bot's own prior messages, which are presented to
	// the model as assistant turns.
	Self bool
}

// Request describes one completion request.
type Request struct {
	SystemPrompt string
	Turns        []Turn
	// Instruction, when set, is appended as a final user directive
	// (used for unprompted chatter).
	Instruction string
	Temperature float64
	MaxTokens   int64
}

// Completer generates a completion for a prompt. Implementations must
// honor ctx cancellation and deadlines.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client is a Completer backed by an OpenAI-compatible server
// (Ollama, OpenAI, or any proxy speaking the same API).
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// defaultOllamaPort is assumed when llm_node is a bare host or IP.
const defaultOllamaPort = "11434"

// NewClient builds a backend client for the given node and model.
// Node resolution mirrors the bot configs: a full URL is used as-is, a
// bare host or IP gets the default Ollama port, and anything else is
// treated as an environment-variable prefix (<NODE>_BASE_URL /
// <NODE>_API_KEY, falling back to OLLAMA_BASE_URL / OLLAMA_API_KEY).
// A missing base URL is a configuration error and fails startup.
func NewClient(node, model string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	baseURL, apiKey, err := resolveEndpoint(node)
	if err != nil {
		return nil, err
	}

	api := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		// The session's own bounded-retry policy governs; the SDK must
		// not stack retries on top of it.
		option.WithMaxRetries(0),
	)

	logger.Info("LLM backend configured", "base_url", baseURL, "model", model)

	return &Client{
		api:     api,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// resolveEndpoint turns a node value into (baseURL, apiKey).
func resolveEndpoint(node string) (string, string, error) {
	node = strings.TrimSpace(node)
	lowered := strings.ToLower(node)

	defaultKey := getEnvDefault("OLLAMA_API_KEY", "ollama")

	switch {
	case strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://"):
		return strings.TrimRight(lowered, "/"), defaultKey, nil
	case node != "" && looksLikeHost(lowered):
		return "http://" + net.JoinHostPort(lowered, defaultOllamaPort) + "/v1", defaultKey, nil
	}

	prefix := "OLLAMA"
	if node != "" {
		prefix = strings.ToUpper(node)
	}
	baseURL := os.Getenv(prefix + "_BASE_URL")
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if baseURL == "" {
		return "", "", fmt.Errorf(
			"environment variable %s_BASE_URL (or OLLAMA_BASE_URL) not set; cannot reach LLM backend", prefix)
	}
	apiKey := os.Getenv(prefix + "_API_KEY")
	if apiKey == "" {
		apiKey = defaultKey
	}
	return strings.TrimRight(baseURL, "/"), apiKey, nil
}

// looksLikeHost reports whether s is a bare IP or dotted hostname
// rather than an env-var namespace.
func looksLikeHost(s string) bool {
	if s == "" {
		return false
	}
	if net.ParseIP(s) != nil {
		return true
	}
	return strings.Contains(s, ".")
}

// Complete implements Completer. One immediate retry is attempted on
// transient failures (network errors, 5xx, 429); validation errors and
// timeouts are surfaced at once.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := c.buildParams(req)

	text, err := c.complete(ctx, params)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		c.logger.Warn("transient backend failure, retrying once", "error", err)
		text, err = c.complete(ctx, params)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("backend returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("backend returned empty completion")
	}
	return text, nil
}

func (c *Client) buildParams(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+2)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	for _, turn := range req.Turns {
		if turn.Self {
			messages = append(messages, openai.AssistantMessage(turn.Text))
			continue
		}
		messages = append(messages, openai.UserMessage(turn.Sender+": "+turn.Text))
	}
	if req.Instruction != "" {
		messages = append(messages, openai.UserMessage(req.Instruction))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	return params
}

// isTransient classifies errors worth a single immediate retry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	// Connection resets and refused connections surface as transport
	// errors, not API errors.
	return true
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
