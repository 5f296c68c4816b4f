package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient wraps a Client with an LRU cache of completions. Identical
// requests at zero temperature are deterministic enough to reuse, and the
// pipeline re-issues them when a stage is regenerated.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, string]
}

// NewCachedClient wraps inner with a cache of up to size entries.
func NewCachedClient(inner Client, size int) (*CachedClient, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{inner: inner, cache: cache}, nil
}

func (c *CachedClient) Name() string { return c.inner.Name() }

func (c *CachedClient) Generate(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}

	text, err := c.inner.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// GenerateStream bypasses the cache on a miss but serves hits as a single
// chunk.
func (c *CachedClient) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	if text, ok := c.cache.Get(cacheKey(req)); ok {
		ch := make(chan Chunk, 1)
		ch <- Chunk{Text: text}
		close(ch)
		return ch, nil
	}
	return c.inner.GenerateStream(ctx, req)
}

// Len reports the number of cached completions.
func (c *CachedClient) Len() int { return c.cache.Len() }

func cacheKey(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%.3f\x00%d",
		req.System, req.Prompt, req.Model, req.Temperature, req.MaxTokens)
	return hex.EncodeToString(h.Sum(nil))
}
