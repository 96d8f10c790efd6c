package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperror "qqbot-service/internal/error"
)

// Mock fetcher for testing
type mockFetcher struct {
	calls     int32
	fetchFunc func(ctx context.Context, creds Credentials) (Grant, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, creds Credentials) (Grant, error) {
	n := atomic.AddInt32(&m.calls, 1)
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, creds)
	}
	return Grant{AccessToken: fmt.Sprintf("token-%d", n), ExpiresIn: expiresIn(7200)}, nil
}

func expiresIn(n int64) *int64 {
	return &n
}

func (m *mockFetcher) count() int {
	return int(atomic.LoadInt32(&m.calls))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(fetcher Fetcher) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewCache(Credentials{AppID: "102000", ClientSecret: "secret"}, fetcher, Options{Now: clock.Now})
	return cache, clock
}

func TestCache_ReusesTokenWithinWindow(t *testing.T) {
	fetcher := &mockFetcher{}
	cache, clock := newTestCache(fetcher)

	first, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	clock.Advance(7200*time.Second - RefreshMargin - time.Second)

	second, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	if first != second {
		t.Errorf("Expected same token, got %q and %q", first, second)
	}
	if fetcher.count() != 1 {
		t.Errorf("Expected 1 fetch, got %d", fetcher.count())
	}
}

func TestCache_RefetchesInsideRefreshMargin(t *testing.T) {
	fetcher := &mockFetcher{}
	cache, clock := newTestCache(fetcher)

	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	clock.Advance(7200*time.Second - RefreshMargin)

	token, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if token != "token-2" {
		t.Errorf("Expected token-2, got %q", token)
	}
	if fetcher.count() != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.count())
	}

	// The refreshed token is cached again.
	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if fetcher.count() != 2 {
		t.Errorf("Expected no third fetch, got %d fetches", fetcher.count())
	}
}

func TestCache_DefaultExpiry(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(ctx context.Context, creds Credentials) (Grant, error) {
			return Grant{AccessToken: "abc"}, nil
		},
	}
	cache, clock := newTestCache(fetcher)

	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	cred, ok := cache.Peek()
	if !ok {
		t.Fatal("Expected cached credential")
	}
	if want := clock.Now().Add(DefaultExpiresIn); !cred.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", cred.ExpiresAt, want)
	}
}

func TestCache_ExplicitZeroExpiryIsNotDefaulted(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(ctx context.Context, creds Credentials) (Grant, error) {
			return Grant{AccessToken: "abc", ExpiresIn: expiresIn(0)}, nil
		},
	}
	cache, clock := newTestCache(fetcher)

	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	cred, ok := cache.Peek()
	if !ok {
		t.Fatal("Expected cached credential")
	}
	if !cred.ExpiresAt.Equal(clock.Now()) {
		t.Errorf("ExpiresAt = %v, want %v", cred.ExpiresAt, clock.Now())
	}

	// an already expired token is never handed out again
	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if fetcher.count() != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.count())
	}
}

func TestCache_ClearForcesFetch(t *testing.T) {
	fetcher := &mockFetcher{}
	cache, _ := newTestCache(fetcher)

	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	cache.Clear()
	if _, ok := cache.Peek(); ok {
		t.Error("Expected empty cache after Clear")
	}

	token, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if token != "token-2" {
		t.Errorf("Expected token-2, got %q", token)
	}
	if fetcher.count() != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.count())
	}
}

func TestCache_FailedFetchKeepsOldValue(t *testing.T) {
	fail := false
	fetcher := &mockFetcher{}
	fetcher.fetchFunc = func(ctx context.Context, creds Credentials) (Grant, error) {
		if fail {
			return Grant{}, apperror.NewCredentialFetchError("token endpoint down", errors.New("connection refused"))
		}
		return Grant{AccessToken: "old", ExpiresIn: expiresIn(7200)}, nil
	}
	cache, clock := newTestCache(fetcher)

	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}

	clock.Advance(7200*time.Second - RefreshMargin + time.Second)
	fail = true

	_, err := cache.GetToken(context.Background())
	if !apperror.IsType(err, apperror.ErrorTypeCredentialFetch) {
		t.Fatalf("Expected credential fetch error, got %v", err)
	}

	cred, ok := cache.Peek()
	if !ok || cred.Token != "old" {
		t.Errorf("Expected old credential to survive, got %+v (ok=%v)", cred, ok)
	}
}

func TestCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{}
	fetcher.fetchFunc = func(ctx context.Context, creds Credentials) (Grant, error) {
		<-release
		return Grant{AccessToken: "shared", ExpiresIn: expiresIn(7200)}, nil
	}
	cache, _ := newTestCache(fetcher)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = cache.GetToken(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: error = %v", i, errs[i])
		}
		if tokens[i] != "shared" {
			t.Errorf("caller %d: token = %q", i, tokens[i])
		}
	}
	if fetcher.count() != 1 {
		t.Errorf("Expected 1 fetch, got %d", fetcher.count())
	}
}

func TestCache_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	fetcher := &mockFetcher{}
	fetcher.fetchFunc = func(ctx context.Context, creds Credentials) (Grant, error) {
		once.Do(func() { close(started) })
		select {
		case <-ctx.Done():
			return Grant{}, apperror.NewCredentialFetchError("failed to reach token endpoint", ctx.Err())
		case <-release:
			return Grant{AccessToken: "shared", ExpiresIn: expiresIn(7200)}, nil
		}
	}
	cache, _ := newTestCache(fetcher)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.GetToken(ctxA)
		errA <- err
	}()
	<-started

	type result struct {
		token string
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		token, err := cache.GetToken(context.Background())
		resB <- result{token, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller error = %v, want context.Canceled", err)
		}
		if !apperror.IsType(err, apperror.ErrorTypeCredentialFetch) {
			t.Errorf("Expected credential fetch error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the shared fetch")
	}

	close(release)
	select {
	case res := <-resB:
		if res.err != nil || res.token != "shared" {
			t.Errorf("live caller got token %q, err %v", res.token, res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("live caller did not receive the token")
	}

	if fetcher.count() != 1 {
		t.Errorf("Expected 1 fetch, got %d", fetcher.count())
	}
	if _, ok := cache.Peek(); !ok {
		t.Error("Expected the shared fetch to populate the cache")
	}
}
