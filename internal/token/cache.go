package token

import (
	"context"
	"sync"
	"time"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshMargin is how long before expiry a cached token stops being handed out.
	RefreshMargin = 5 * time.Minute
	// DefaultExpiresIn applies when the token endpoint omits expires_in.
	DefaultExpiresIn = 7200 * time.Second
)

// CachedCredential is the token currently held by a Cache.
type CachedCredential struct {
	Token     string
	ExpiresAt time.Time
}

// ------------------------------------------------------------------------------------------------------
func (c CachedCredential) usable(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt.Add(-RefreshMargin))
}

// Cache holds the access token for one application.
type Cache struct {
	creds   Credentials
	fetcher Fetcher
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	current *CachedCredential

	group singleflight.Group
}

// Options customise a Cache.
type Options struct {
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// ------------------------------------------------------------------------------------------------------
func NewCache(creds Credentials, fetcher Fetcher, opts Options) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		creds:   creds,
		fetcher: fetcher,
		now:     now,
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
}

// ------------------------------------------------------------------------------------------------------
// GetToken returns the cached token while it is outside the refresh margin and fetches a new one
// otherwise. Concurrent misses share one fetch, and each caller stops waiting only when its own ctx
// is done. A failed fetch leaves the cached value in place.
func (c *Cache) GetToken(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	ch := c.group.DoChan(c.creds.AppID, func() (interface{}, error) {
		// A flight that finished just before this one may already have refreshed.
		if token, ok := c.cached(); ok {
			return token, nil
		}
		// The shared fetch ignores the starting caller's cancellation; the fetcher's
		// client timeout bounds it.
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", apperror.NewCredentialFetchError("stopped waiting for access token", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// ------------------------------------------------------------------------------------------------------
// Clear drops the cached token; the next GetToken always fetches.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.logger.Info("Access token cache cleared", zap.String("app_id", c.creds.AppID))
}

// ------------------------------------------------------------------------------------------------------
// Peek returns the cached credential without fetching
func (c *Cache) Peek() (CachedCredential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return CachedCredential{}, false
	}
	return *c.current, true
}

// ------------------------------------------------------------------------------------------------------
func (c *Cache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current != nil && c.current.usable(c.now()) {
		return c.current.Token, true
	}
	return "", false
}

// ------------------------------------------------------------------------------------------------------
func (c *Cache) refresh(ctx context.Context) (string, error) {
	grant, err := c.fetcher.Fetch(ctx, c.creds)
	if err != nil {
		c.metrics.TokenFetch("error")
		c.logger.Error("Failed to fetch access token",
			zap.String("app_id", c.creds.AppID),
			zap.Error(err),
		)
		return "", err
	}

	expiresIn := DefaultExpiresIn
	if grant.ExpiresIn != nil {
		expiresIn = time.Duration(*grant.ExpiresIn) * time.Second
	}

	fresh := &CachedCredential{
		Token:     grant.AccessToken,
		ExpiresAt: c.now().Add(expiresIn),
	}

	c.mu.Lock()
	c.current = fresh
	c.mu.Unlock()

	c.metrics.TokenFetch("success")
	c.logger.Info("Access token refreshed",
		zap.String("app_id", c.creds.AppID),
		zap.Time("expires_at", fresh.ExpiresAt),
	)

	return fresh.Token, nil
}
