package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// Cache stores short-lived quotes and long-lived token metadata.
type Cache interface {
	GetQuote(ctx context.Context, key string) (*entities.Quote, error)
	SetQuote(ctx context.Context, key string, quote *entities.Quote, ttl time.Duration) error
	GetToken(ctx context.Context, key string) (*entities.Token, error)
	SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// QuoteCacheKey keys a quote by everything that affects its result. The
// taker is part of the key: aggregator calldata is bound to the taker that
// requested it, so quotes must never be shared across takers.
func QuoteCacheKey(sellToken, buyToken, sellAmount string, slippageBps uint64, taker string) string {
	return fmt.Sprintf("quote:%s:%s:%s:%d:%s", sellToken, buyToken, sellAmount, slippageBps, taker)
}

// TokenCacheKey keys token metadata by address.
func TokenCacheKey(addr string) string {
	return fmt.Sprintf("token:%s", addr)
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetQuote(ctx context.Context, key string) (*entities.Quote, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var quote entities.Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (c *RedisCache) SetQuote(ctx context.Context, key string, quote *entities.Quote, ttl time.Duration) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) GetToken(ctx context.Context, key string) (*entities.Token, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var token entities.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *RedisCache) SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// InMemoryCache implements Cache in process memory, used when no Redis
// address is configured and in tests.
type InMemoryCache struct {
	mu     sync.RWMutex
	quotes map[string]*cachedQuote
	tokens map[string]*cachedToken
}

type cachedQuote struct {
	quote     *entities.Quote
	expiresAt time.Time
}

type cachedToken struct {
	token     *entities.Token
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		quotes: make(map[string]*cachedQuote),
		tokens: make(map[string]*cachedToken),
	}
}

func (c *InMemoryCache) GetQuote(ctx context.Context, key string) (*entities.Quote, error) {
	c.mu.RLock()
	cached, ok := c.quotes[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(cached.expiresAt) {
		c.mu.Lock()
		delete(c.quotes, key)
		c.mu.Unlock()
		return nil, nil
	}
	return cached.quote, nil
}

func (c *InMemoryCache) SetQuote(ctx context.Context, key string, quote *entities.Quote, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[key] = &cachedQuote{quote: quote, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *InMemoryCache) GetToken(ctx context.Context, key string) (*entities.Token, error) {
	c.mu.RLock()
	cached, ok := c.tokens[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(cached.expiresAt) {
		c.mu.Lock()
		delete(c.tokens, key)
		c.mu.Unlock()
		return nil, nil
	}
	return cached.token, nil
}

func (c *InMemoryCache) SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = &cachedToken{token: token, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.quotes, key)
	delete(c.tokens, key)
	return nil
}
