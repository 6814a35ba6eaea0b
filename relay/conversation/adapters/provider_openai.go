package adapters

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GeneratorConfig holds the fixed deployment parameters of a completion backend.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string // empty uses the vendor default
	Model       string
	Temperature float64
	MaxTokens   int64 // 0 leaves the vendor default (OpenAI only)
	Timeout     time.Duration
}

func (c GeneratorConfig) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// OpenAIGenerator implements Generator with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client openai.Client
	cfg    GeneratorConfig
}

// NewOpenAIGenerator creates a generator. Retries are disabled; a failed
// call surfaces immediately.
func NewOpenAIGenerator(cfg GeneratorConfig) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.httpClient()),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIGenerator{client: openai.NewClient(opts...), cfg: cfg}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, ownerID string, turns []ports.ChatTurn) (ports.GenerationResult, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case ports.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case ports.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(g.cfg.Temperature),
		User:        openai.String(ownerID),
	}
	if g.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(g.cfg.MaxTokens)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ports.GenerationResult{}, fmt.Errorf("%w: openai chat completion: %w", ports.ErrGenerationFailed, err)
	}

	result := ports.GenerationResult{ResponseID: resp.ID}
	if len(resp.Choices) > 0 {
		result.Text = resp.Choices[0].Message.Content
	}
	return result, nil
}

// Ensure OpenAIGenerator implements the Generator interface.
var _ ports.Generator = (*OpenAIGenerator)(nil)
