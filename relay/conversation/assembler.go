package conversation

import (
	"context"
	"fmt"
	"sync/atomic"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
)

const (
	DefaultTokenBudget   = 1000
	DefaultHistoryWindow = 10
)

// ContextAssembler turns stored history plus a new user message into a
// token-bounded, chronologically ordered conversation.
type ContextAssembler struct {
	store        ports.HistoryStore
	tokenizer    ports.Tokenizer
	systemPrompt string
	window       int
	budget       atomic.Int64
}

// NewContextAssembler creates an assembler. A nil tokenizer falls back to a
// rough four-characters-per-token estimate.
func NewContextAssembler(store ports.HistoryStore, tokenizer ports.Tokenizer, systemPrompt string, window, budget int) *ContextAssembler {
	if tokenizer == nil {
		tokenizer = ports.TokenizerFunc(EstimateTokens)
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	a := &ContextAssembler{
		store:        store,
		tokenizer:    tokenizer,
		systemPrompt: systemPrompt,
		window:       window,
	}
	a.SetBudget(budget)
	return a
}

// EstimateTokens is the fallback token estimator.
func EstimateTokens(s string) int {
	l := len(s)
	if l == 0 {
		return 0
	}
	return (l + 3) / 4
}

// SetBudget changes the default budget; negative values are stored as 0.
func (a *ContextAssembler) SetBudget(budget int) {
	if budget < 0 {
		budget = 0
	}
	a.budget.Store(int64(budget))
}

// Budget returns the current default budget.
func (a *ContextAssembler) Budget() int {
	return int(a.budget.Load())
}

// SystemTurn returns the default system turn.
func (a *ContextAssembler) SystemTurn() ports.ChatTurn {
	return ports.ChatTurn{Role: ports.RoleSystem, Content: a.systemPrompt}
}

// BuildContext fetches the owner's recent history and fits it, together with
// newMessage, into budget tokens. The newest turn is always kept, and the
// system turn is prepended outside the budget when trimming dropped it.
func (a *ContextAssembler) BuildContext(ctx context.Context, ownerID, newMessage string, budget int) ([]ports.ChatTurn, error) {
	exchanges, err := a.store.FetchRecent(ctx, ownerID, a.window)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", ownerID, err)
	}

	candidates := make([]ports.ChatTurn, 0, 2*len(exchanges)+2)
	if len(exchanges) == 0 {
		candidates = append(candidates, a.SystemTurn())
	}
	// exchanges arrive newest first
	for i := len(exchanges) - 1; i >= 0; i-- {
		candidates = append(candidates,
			ports.ChatTurn{Role: ports.RoleUser, Content: exchanges[i].UserMessage},
			ports.ChatTurn{Role: ports.RoleAssistant, Content: exchanges[i].AIMessage},
		)
	}
	candidates = append(candidates, ports.ChatTurn{Role: ports.RoleUser, Content: newMessage})

	return a.fit(candidates, budget), nil
}

// BuildContextDefault is BuildContext with the assembler's current budget.
func (a *ContextAssembler) BuildContextDefault(ctx context.Context, ownerID, newMessage string) ([]ports.ChatTurn, error) {
	return a.BuildContext(ctx, ownerID, newMessage, a.Budget())
}

// fit walks candidates newest to oldest and keeps the longest suffix within budget.
func (a *ContextAssembler) fit(candidates []ports.ChatTurn, budget int) []ports.ChatTurn {
	if budget < 0 {
		budget = 0
	}

	total := 0
	start := len(candidates)
	for i := len(candidates) - 1; i >= 0; i-- {
		cost := a.tokenizer.CountTokens(candidates[i].Content)
		if start < len(candidates) && total+cost > budget {
			break
		}
		total += cost
		start = i
	}

	kept := candidates[start:]
	if len(kept) > 0 && kept[0].Role == ports.RoleSystem {
		return append([]ports.ChatTurn(nil), kept...)
	}

	out := make([]ports.ChatTurn, 0, len(kept)+1)
	out = append(out, a.SystemTurn())
	return append(out, kept...)
}
