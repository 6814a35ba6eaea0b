package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/ai-counselor/relay/config"
	"github.com/ZanzyTHEbar/ai-counselor/relay/conversation/adapters"
	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Components is the wired conversation pipeline.
type Components struct {
	Assembler *ContextAssembler
	Stateful  *GenerateMessageUseCase
	Stateless *GenerateMessageUseCase
	Limiter   ports.RateLimiter
	Store     ports.HistoryStore
	Tracer    ports.Tracer
}

// Factory creates and wires conversation components from configuration.
type Factory struct {
	cfg            *config.Config
	db             *sql.DB // nil selects the in-memory store
	logger         zerolog.Logger
	tracerProvider trace.TracerProvider // nil disables OpenTelemetry spans
	generator      ports.Generator      // overrides cfg.LLM when set
}

// NewFactory creates a new conversation factory.
func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, db: db, logger: logger}
}

// WithTracerProvider also emits spans to tp.
func (f *Factory) WithTracerProvider(tp trace.TracerProvider) *Factory {
	f.tracerProvider = tp
	return f
}

// WithGenerator replaces the configured completion backend.
func (f *Factory) WithGenerator(g ports.Generator) *Factory {
	f.generator = g
	return f
}

// Build wires the full pipeline.
func (f *Factory) Build() (*Components, error) {
	tokenizer, err := f.createTokenizer()
	if err != nil {
		return nil, err
	}

	generator := f.generator
	if generator == nil {
		if generator, err = f.createGenerator(); err != nil {
			return nil, err
		}
	}

	store := f.createStore()
	tracer := f.createTracer()
	conv := f.cfg.Conversation

	assembler := NewContextAssembler(store, tokenizer, conv.SystemPrompt, conv.HistoryWindow, conv.TokenBudget)

	return &Components{
		Assembler: assembler,
		Stateful:  NewGenerateMessageUseCase(ModeStateful, assembler, generator, store, tracer, f.logger),
		Stateless: NewGenerateMessageUseCase(ModeStateless, nil, generator, store, tracer, f.logger),
		Limiter:   f.createRateLimiter(),
		Store:     store,
		Tracer:    tracer,
	}, nil
}

func (f *Factory) createTokenizer() (ports.Tokenizer, error) {
	conv := f.cfg.Conversation
	tok, err := adapters.NewTiktokenTokenizer(conv.TokenizerModel)
	if err != nil {
		return nil, err
	}
	if conv.TokenCacheCapacity <= 0 {
		return tok, nil
	}
	return adapters.NewCachedTokenizer(tok, adapters.NewLRUCache(conv.TokenCacheCapacity, time.Duration(conv.TokenCacheTTL)*time.Second)), nil
}

func (f *Factory) createGenerator() (ports.Generator, error) {
	llm := f.cfg.LLM
	gc := adapters.GeneratorConfig{
		BaseURL:     llm.BaseURL,
		Model:       llm.Model,
		Temperature: llm.Temperature,
		MaxTokens:   llm.MaxTokens,
		Timeout:     llm.Timeout,
	}

	switch llm.Provider {
	case "openai":
		if llm.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("llm.openai_api_key is required for provider openai")
		}
		gc.APIKey = llm.OpenAIAPIKey
		return adapters.NewOpenAIGenerator(gc), nil
	case "anthropic":
		if llm.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("llm.anthropic_api_key is required for provider anthropic")
		}
		gc.APIKey = llm.AnthropicAPIKey
		return adapters.NewAnthropicGenerator(gc), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", llm.Provider)
	}
}

func (f *Factory) createStore() ports.HistoryStore {
	if f.db == nil {
		f.logger.Warn().Msg("no database configured, history is kept in memory")
		return adapters.NewMemoryHistoryStore()
	}
	return adapters.NewLibSQLHistoryStore(f.db)
}

func (f *Factory) createTracer() ports.Tracer {
	zl := adapters.NewZerologTracer(f.logger)
	if f.tracerProvider == nil {
		return zl
	}
	return adapters.MultiTracer{zl, adapters.NewOtelTracer(f.tracerProvider.Tracer("github.com/ZanzyTHEbar/ai-counselor/relay/conversation"))}
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	rl := f.cfg.RateLimit
	if !rl.Enabled {
		return noOpRateLimiter{}
	}
	return adapters.NewKeyedRateLimiter(rl.Capacity, rl.RefillRate, rl.MaxInFlight)
}

// noOpRateLimiter admits everything.
type noOpRateLimiter struct{}

func (noOpRateLimiter) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// noOpTracer implements Tracer with no-op behavior.
type noOpTracer struct{}

func (noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

var (
	_ ports.RateLimiter = noOpRateLimiter{}
	_ ports.Tracer      = noOpTracer{}
)
