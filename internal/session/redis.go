package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Key layout. The user id is part of the key so DestroyAllForUser can prefix-scan.
const (
	sessionKeyFmt = "session:%s:%s" // session:<user_id>:<session_id>
	refreshKeyFmt = "refresh:%s:%s" // refresh:<user_id>:<session_id>
)

// RedisStore implements Store on a Redis-compatible cache.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore returns a RedisStore writing records with the given TTL,
// which must equal the refresh-token lifetime.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Connect dials Redis from a URL (redis://host:port/db) and verifies the
// connection with a ping before returning the client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Create writes a new session record keyed by (userID, fresh uuid) with the
// store TTL. The record value is the creation time; presence of the key is
// what matters, the value is diagnostic.
func (s *RedisStore) Create(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.New().String()
	key := sessionKey(userID, sessionID)
	if err := s.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sessionID, nil
}

// Exists reports whether the session record is live.
func (s *RedisStore) Exists(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(userID, sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n > 0, nil
}

// Touch re-arms the session and refresh-hash TTLs to the full lifetime.
func (s *RedisStore) Touch(ctx context.Context, userID, sessionID string) error {
	if err := s.client.Expire(ctx, sessionKey(userID, sessionID), s.ttl).Err(); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	// Best-effort on the refresh binding; it is rewritten on rotation anyway.
	if err := s.client.Expire(ctx, refreshKey(userID, sessionID), s.ttl).Err(); err != nil {
		s.logger.Warn("re-arm refresh binding ttl", zap.Error(err))
	}
	return nil
}

// Destroy removes the session and its refresh binding. Destroying an absent
// session is not an error; removed is false in that case.
func (s *RedisStore) Destroy(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := s.client.Del(ctx, sessionKey(userID, sessionID), refreshKey(userID, sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("destroy session: %w", err)
	}
	return n > 0, nil
}

// DestroyAllForUser scans session:<userID>:* and deletes every match plus its
// refresh binding. Used on account disable and delete.
func (s *RedisStore) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	pattern := fmt.Sprintf(sessionKeyFmt, userID, "*")
	var removed int
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("destroy sessions for user: %w", err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan sessions for user: %w", err)
	}
	refreshPattern := fmt.Sprintf(refreshKeyFmt, userID, "*")
	iter = s.client.Scan(ctx, 0, refreshPattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("destroy refresh bindings for user: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan refresh bindings for user: %w", err)
	}
	return removed, nil
}

// BindRefreshToken stores the current refresh token hash with the session TTL.
func (s *RedisStore) BindRefreshToken(ctx context.Context, userID, sessionID, tokenHash string) error {
	if err := s.client.Set(ctx, refreshKey(userID, sessionID), tokenHash, s.ttl).Err(); err != nil {
		return fmt.Errorf("bind refresh token: %w", err)
	}
	return nil
}

// RefreshTokenHash returns the bound refresh token hash, or "" when absent.
func (s *RedisStore) RefreshTokenHash(ctx context.Context, userID, sessionID string) (string, error) {
	v, err := s.client.Get(ctx, refreshKey(userID, sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get refresh token hash: %w", err)
	}
	return v, nil
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf(sessionKeyFmt, userID, sessionID)
}

func refreshKey(userID, sessionID string) string {
	return fmt.Sprintf(refreshKeyFmt, userID, sessionID)
}
