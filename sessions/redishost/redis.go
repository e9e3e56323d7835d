package redishost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/sessions"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for the Redis-backed SessionHost. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: ISE_REDIS_ADDR
	RedisAddr string `env:"ISE_REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: ISE_REDIS_KEY_PREFIX
	KeyPrefix string `env:"ISE_REDIS_KEY_PREFIX,default=ise:sessions:"`
}

type Host struct {
	client    *redis.Client
	keyPrefix string
}

// storedSession wraps the session with its TTL so GetSession can slide the
// expiry without knowing how the session was created.
type storedSession struct {
	TTL     time.Duration     `json:"ttl"`
	Session *sessions.Session `json:"session"`
}

func New(cfg Config) (*Host, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ise:sessions:"
	}
	return &Host{client: cl, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Host using envdecode to populate Config.
func NewFromEnv() (*Host, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("redishost: decode env: %w", err)
	}
	return New(cfg)
}

// Close closes the Redis client.
func (h *Host) Close() error { return h.client.Close() }

func (h *Host) sessionKey(sessionID string) string { return h.keyPrefix + sessionID }

func (h *Host) CreateSession(ctx context.Context, sess *sessions.Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return fmt.Errorf("redishost: session id is required")
	}
	data, err := json.Marshal(storedSession{TTL: ttl, Session: sess})
	if err != nil {
		return fmt.Errorf("redishost: encode session: %w", err)
	}

	expiration := ttl
	if expiration < 0 {
		expiration = 0
	}
	ok, err := h.client.SetNX(ctx, h.sessionKey(sess.SessionID), data, expiration).Result()
	if err != nil {
		return fmt.Errorf("redishost: create session: %w", err)
	}
	if !ok {
		return sessions.ErrSessionExists
	}
	return nil
}

func (h *Host) GetSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	key := h.sessionKey(sessionID)
	raw, err := h.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redishost: get session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("redishost: decode session: %w", err)
	}
	if stored.Session == nil {
		return nil, fmt.Errorf("redishost: decode session: empty record")
	}

	if stored.TTL > 0 {
		// Slide the window. A miss here means the key expired between the
		// two calls; treat it like any other expiry.
		ok, err := h.client.PExpire(ctx, key, stored.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redishost: touch session: %w", err)
		}
		if !ok {
			return nil, sessions.ErrSessionNotFound
		}
	}
	return stored.Session, nil
}

func (h *Host) DeleteSession(ctx context.Context, sessionID string) error {
	n, err := h.client.Del(ctx, h.sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("redishost: delete session: %w", err)
	}
	if n == 0 {
		return sessions.ErrSessionNotFound
	}
	return nil
}

var _ sessions.SessionHost = (*Host)(nil)
