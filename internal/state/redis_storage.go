package state

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	appredis "github.com/Proton-105/storefront-bot/pkg/redis"
)

const (
	sessionKeyPrefix   = "session:"
	sessionLockSuffix  = ":lock"
	sessionScanPattern = "session:*"
	sessionScanCount   = 100
)

// Backend is the subset of the Redis client used for sessions.
type Backend interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSetIfValue(ctx context.Context, guardKey, guardValue, key string, fields map[string]string) (bool, error)
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// RedisStorage keeps each session in a Redis hash named session:<chat_id>.
type RedisStorage struct {
	client Backend
	log    *slog.Logger
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client Backend, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
	}
}

// GetField returns the stored field value or ErrFieldNotFound when absent.
func (s *RedisStorage) GetField(ctx context.Context, chatID int64, field string) (string, error) {
	value, err := s.client.HGet(ctx, sessionKey(chatID), field)
	if err != nil {
		if errors.Is(err, appredis.Nil) {
			return "", ErrFieldNotFound
		}

		s.log.Error("failed to read session field", "chat_id", chatID, "field", field, "error", err)
		return "", apperrors.NewStorageError("read session field", err)
	}

	return value, nil
}

// SetFields writes the given fields with a single HSET guarded by the lock token.
// Sessions never expire.
func (s *RedisStorage) SetFields(ctx context.Context, chatID int64, token string, fields map[string]string) error {
	written, err := s.client.HSetIfValue(ctx, lockKey(chatID), token, sessionKey(chatID), fields)
	if err != nil {
		s.log.Error("failed to write session", "chat_id", chatID, "error", err)
		return apperrors.NewStorageError("write session", err)
	}
	if !written {
		s.log.Warn("session write rejected, lock no longer held", "chat_id", chatID)
		return apperrors.NewStateError("session lock lost before write", ErrStateLocked)
	}

	return nil
}

// Sessions scans every session hash. Records with an unreadable state are skipped.
func (s *RedisStorage) Sessions(ctx context.Context) ([]Session, error) {
	var (
		cursor uint64
		result []Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, sessionScanCount)
		if err != nil {
			s.log.Error("failed to scan sessions", "error", err)
			return nil, apperrors.NewStorageError("scan sessions", err)
		}

		for _, key := range keys {
			chatID, ok := parseSessionKey(key)
			if !ok {
				continue
			}

			raw, err := s.GetField(ctx, chatID, FieldNextState)
			if err != nil {
				if errors.Is(err, ErrFieldNotFound) {
					continue
				}
				return nil, err
			}

			next, err := ParseState(raw)
			if err != nil {
				s.log.Warn("skipping session with unknown state", "chat_id", chatID, "state", raw)
				continue
			}

			result = append(result, Session{ChatID: chatID, NextState: next})
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

// TryLock sets session:<chat_id>:lock to token unless it already exists.
func (s *RedisStorage) TryLock(ctx context.Context, chatID int64, token string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, lockKey(chatID), token, ttl)
	if err != nil {
		return false, apperrors.NewStorageError("acquire session lock", err)
	}
	return acquired, nil
}

// RefreshLock resets the lock TTL while it still holds token.
func (s *RedisStorage) RefreshLock(ctx context.Context, chatID int64, token string, ttl time.Duration) (bool, error) {
	renewed, err := s.client.CompareAndExpire(ctx, lockKey(chatID), token, ttl)
	if err != nil {
		return false, apperrors.NewStorageError("refresh session lock", err)
	}
	return renewed, nil
}

// Unlock removes the lock only while it still holds token.
func (s *RedisStorage) Unlock(ctx context.Context, chatID int64, token string) error {
	if _, err := s.client.CompareAndDelete(ctx, lockKey(chatID), token); err != nil {
		return apperrors.NewStorageError("release session lock", err)
	}
	return nil
}

func sessionKey(chatID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(chatID, 10)
}

func lockKey(chatID int64) string {
	return sessionKey(chatID) + sessionLockSuffix
}

// parseSessionKey accepts session:<chat_id> and rejects lock keys.
func parseSessionKey(key string) (int64, bool) {
	raw, ok := strings.CutPrefix(key, sessionKeyPrefix)
	if !ok {
		return 0, false
	}

	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return chatID, true
}

var _ Storage = (*RedisStorage)(nil)
