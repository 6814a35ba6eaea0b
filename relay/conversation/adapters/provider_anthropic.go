package adapters

import (
	"context"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicGenerator implements Generator with the Anthropic Messages API.
// The system turn travels in the system parameter, not in the message list.
type AnthropicGenerator struct {
	client anthropic.Client
	cfg    GeneratorConfig
}

// NewAnthropicGenerator creates a generator with SDK retries disabled.
func NewAnthropicGenerator(cfg GeneratorConfig) *AnthropicGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.httpClient()),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicGenerator{client: anthropic.NewClient(opts...), cfg: cfg}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, ownerID string, turns []ports.ChatTurn) (ports.GenerationResult, error) {
	var (
		system   []anthropic.TextBlockParam
		messages []anthropic.MessageParam
	)
	for _, turn := range turns {
		switch turn.Role {
		case ports.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: turn.Content})
		case ports.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}

	maxTokens := g.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.cfg.Model),
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
		Temperature: anthropic.Float(g.cfg.Temperature),
		Metadata:    anthropic.MetadataParam{UserID: anthropic.String(ownerID)},
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return ports.GenerationResult{}, fmt.Errorf("%w: anthropic messages: %w", ports.ErrGenerationFailed, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return ports.GenerationResult{ResponseID: msg.ID, Text: text.String()}, nil
}

// Ensure AnthropicGenerator implements the Generator interface.
var _ ports.Generator = (*AnthropicGenerator)(nil)
