package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat-v3.1:free"
	defaultTimeout = 60 * time.Second
)

// Config configures the OpenAI-compatible provider.
type Config struct {
	APIKey string

	// BaseURL of the API. Defaults to OpenRouter.
	BaseURL string

	// Model name as understood by the endpoint.
	Model string

	// MaxTokens caps the completion length. Zero leaves it to the provider.
	MaxTokens int

	// Timeout bounds a single generation. Defaults to 60 s.
	Timeout time.Duration

	// AppTitle and AppURL are sent as OpenRouter attribution headers when
	// set.
	AppTitle string
	AppURL   string
}

type openAIProvider struct {
	cfg    Config
	client openai.Client
}

// New returns a Provider backed by the chat completions API. It is safe for
// concurrent use.
func New(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.AppURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.AppURL))
	}
	if cfg.AppTitle != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.AppTitle))
	}

	return &openAIProvider{
		cfg:    cfg,
		client: openai.NewClient(opts...),
	}
}

// Generate sends prompt as a single user message and returns the trimmed
// content of the first choice.
func (p *openAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrRateLimit, err)
		}
		return "", fmt.Errorf("generation: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
