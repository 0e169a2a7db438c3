package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	appredis "github.com/Proton-105/storefront-bot/pkg/redis"
)

// expiryGuard is how long before expiry a cached token is already considered stale.
const expiryGuard = 100 * time.Second

const refreshTimeout = 30 * time.Second

// TokenStore persists the raw token response.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type tokenFetcher func(ctx context.Context) (Token, []byte, error)

// TokenSource hands out a valid bearer token, re-acquiring it when the cached one is
// missing, unreadable or about to expire.
type TokenSource struct {
	store TokenStore
	key   string
	fetch tokenFetcher
	now   func() time.Time
	log   *slog.Logger
	group singleflight.Group
}

func newTokenSource(store TokenStore, key string, fetch tokenFetcher, log *slog.Logger) *TokenSource {
	return &TokenSource{
		store: store,
		key:   key,
		fetch: fetch,
		now:   time.Now,
		log:   log,
	}
}

// Token returns the access token, refreshing it when needed.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(ctx); ok {
		return token.AccessToken, nil
	}

	// the refresh outlives any single caller; each caller still honours its own ctx
	ch := s.group.DoChan(s.key, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			s.log.Debug("token refresh shared between callers")
		}
		return res.Val.(Token).AccessToken, nil
	}
}

func (s *TokenSource) cached(ctx context.Context) (Token, bool) {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, appredis.Nil) {
			s.log.Warn("failed to read cached token", slog.Any("error", err))
		}
		return Token{}, false
	}

	var token Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil || token.AccessToken == "" {
		s.log.Warn("cached token is malformed, re-acquiring")
		return Token{}, false
	}

	if !s.valid(token) {
		return Token{}, false
	}
	return token, true
}

func (s *TokenSource) valid(token Token) bool {
	return token.Expires > s.now().Add(expiryGuard).Unix()
}

func (s *TokenSource) refresh(ctx context.Context) (Token, error) {
	token, raw, err := s.fetch(ctx)
	if err != nil {
		return Token{}, err
	}

	// the credentials are overwritten, never expired by Redis
	if err := s.store.Set(ctx, s.key, string(raw), 0); err != nil {
		s.log.Warn("failed to cache token", slog.Any("error", err))
	}

	s.log.Info("commerce token acquired", slog.Time("expires", time.Unix(token.Expires, 0)))
	return token, nil
}
