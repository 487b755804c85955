package adapters

import (
	"context"
	"sync"
	"time"
)

// tokenFetch acquires a fresh credential from the partner and reports its
// lifetime.
type tokenFetch func(ctx context.Context) (token string, ttl time.Duration, err error)

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache is an expiry-aware credential cache keyed by partner code.
// Tokens are refreshed only when expired or explicitly invalidated after an
// authentication rejection; per-call re-authentication is a defect this type
// exists to prevent. A per-partner lock makes the read-check-refresh atomic,
// so two concurrent callers never both re-authenticate.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]*cachedToken
	locks  map[string]*sync.Mutex

	// expirySkew is subtracted from reported lifetimes so a token is never
	// used right at its expiry boundary.
	expirySkew time.Duration
}

func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens:     make(map[string]*cachedToken),
		locks:      make(map[string]*sync.Mutex),
		expirySkew: 30 * time.Second,
	}
}

func (c *TokenCache) partnerLock(partnerCode string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[partnerCode]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[partnerCode] = lock
	}
	return lock
}

// Token returns the cached credential for a partner, fetching a new one via
// fetch when none is cached or the cached one has expired.
func (c *TokenCache) Token(ctx context.Context, partnerCode string, fetch tokenFetch) (string, error) {
	lock := c.partnerLock(partnerCode)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	cached, ok := c.tokens[partnerCode]
	c.mu.Unlock()

	if ok && time.Now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	token, ttl, err := fetch(ctx)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(ttl - c.expirySkew)
	if ttl <= c.expirySkew {
		expiresAt = time.Now().Add(ttl / 2)
	}

	c.mu.Lock()
	c.tokens[partnerCode] = &cachedToken{value: token, expiresAt: expiresAt}
	c.mu.Unlock()

	return token, nil
}

// Invalidate drops a partner's cached credential, forcing a refresh on the
// next call. Used when the partner rejects a request as unauthenticated
// before the cached expiry.
func (c *TokenCache) Invalidate(partnerCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, partnerCode)
}
