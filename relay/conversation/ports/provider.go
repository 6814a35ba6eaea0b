package ports

import "context"

// Role identifies the speaker of a ChatTurn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message in a conversation sequence.
type ChatTurn struct {
	Role    Role
	Content string
}

// GenerationResult is the provider's reply to a single completion request.
type GenerationResult struct {
	ResponseID string // provider-assigned id, empty if the provider has none
	Text       string // empty when the provider returned no completion
}

// Generator is the abstraction for all completion backends.
// Turns are ordered oldest first; ownerID is forwarded as the provider's end-user tag.
type Generator interface {
	Generate(ctx context.Context, ownerID string, turns []ChatTurn) (GenerationResult, error)
}
