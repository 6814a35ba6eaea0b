package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var loaderOnce sync.Once

// TiktokenTokenizer counts tokens with the BPE encoding of an OpenAI model.
// Vocabularies are embedded, so no network access is needed.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the encoding used by model, e.g. "gpt-4".
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer for model %s: %w", model, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CachedTokenizer memoizes token counts keyed by a content digest.
type CachedTokenizer struct {
	inner ports.Tokenizer
	cache ports.Cache
}

// NewCachedTokenizer wraps inner with cache.
func NewCachedTokenizer(inner ports.Tokenizer, cache ports.Cache) *CachedTokenizer {
	return &CachedTokenizer{inner: inner, cache: cache}
}

func (c *CachedTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	ctx := context.Background()
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if raw, ok := c.cache.Get(ctx, key); ok && len(raw) == 8 {
		return int(binary.BigEndian.Uint64(raw))
	}

	n := c.inner.CountTokens(text)
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	_ = c.cache.Set(ctx, key, buf)
	return n
}

var (
	_ ports.Tokenizer = (*TiktokenTokenizer)(nil)
	_ ports.Tokenizer = (*CachedTokenizer)(nil)
)
