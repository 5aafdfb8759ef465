package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"wordchain/domain"
	"wordchain/game"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultNegativeTTL = 10 * time.Minute
)

// Cached is a read-through Redis cache in front of another Dictionary.
// Cache failures are logged and the request falls through to the backend.
type Cached struct {
	backend     game.Dictionary
	client      *redis.Client
	ttl         time.Duration
	negativeTTL time.Duration
}

func NewCached(backend game.Dictionary, client *redis.Client) *Cached {
	return &Cached{
		backend:     backend,
		client:      client,
		ttl:         DefaultTTL,
		negativeTTL: DefaultNegativeTTL,
	}
}

func (c *Cached) definitionKey(word string) string {
	return fmt.Sprintf("dict:def:%s", word)
}

func (c *Cached) startersKey(syllable string, minLength, maxLength int) string {
	return fmt.Sprintf("dict:start:%s:%d:%d", syllable, minLength, maxLength)
}

// load returns hit=false on a miss. A cached JSON null is a hit with a nil value.
func (c *Cached) load(ctx context.Context, key string, out any) (hit bool, err error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedCacheError, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedCacheError, err)
	}
	return true, nil
}

func (c *Cached) store(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err == nil {
		err = c.client.Set(ctx, key, data, ttl).Err()
	}
	if err != nil {
		slog.Warn("dictionary cache: store failed", "key", key, "error", err.Error())
	}
}

func (c *Cached) LookupDefinition(ctx context.Context, word string) (*game.Definition, error) {
	key := c.definitionKey(word)

	var cached *game.Definition
	hit, err := c.load(ctx, key, &cached)
	if err != nil {
		slog.Warn("dictionary cache: load failed", "key", key, "error", err.Error())
	}
	if hit {
		return cached, nil
	}

	def, err := c.backend.LookupDefinition(ctx, word)
	if err != nil {
		return nil, err
	}

	ttl := c.ttl
	if def == nil {
		ttl = c.negativeTTL
	}
	c.store(ctx, key, def, ttl)
	return def, nil
}

func (c *Cached) FindWordsStartingWith(ctx context.Context, syllable string, minLength, maxLength int) ([]string, error) {
	key := c.startersKey(syllable, minLength, maxLength)

	var cached []string
	hit, err := c.load(ctx, key, &cached)
	if err != nil {
		slog.Warn("dictionary cache: load failed", "key", key, "error", err.Error())
	}
	if hit {
		return cached, nil
	}

	words, err := c.backend.FindWordsStartingWith(ctx, syllable, minLength, maxLength)
	if err != nil {
		return nil, err
	}

	ttl := c.ttl
	if len(words) == 0 {
		ttl = c.negativeTTL
	}
	c.store(ctx, key, words, ttl)
	return words, nil
}
