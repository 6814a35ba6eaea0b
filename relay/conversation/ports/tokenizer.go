package ports

// Tokenizer counts tokens the way the target model does.
type Tokenizer interface {
	CountTokens(text string) int
}

// TokenizerFunc adapts a plain function to Tokenizer.
type TokenizerFunc func(text string) int

func (f TokenizerFunc) CountTokens(text string) int { return f(text) }
