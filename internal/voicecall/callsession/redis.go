package callsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "voicecall:session:"
	DefaultTTL = 4 * time.Hour
)

// RedisRegistry shares sessions between service instances. Each session is stored as
// JSON under its own key and expires after the TTL in case a call never reports its end.
type RedisRegistry struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisRegistry(client redis.UniversalClient, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{client: client, ttl: ttl}
}

func sessionKey(callSID string) string {
	return keyPrefix + callSID
}

func (r *RedisRegistry) Register(ctx context.Context, session Session) error {
	if session.CallSID == "" {
		return ErrInvalidSession
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.CallSID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, callSID string) (Session, error) {
	data, err := r.client.Get(ctx, sessionKey(callSID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeSession(data)
}

func (r *RedisRegistry) AttachStream(ctx context.Context, callSID, streamSID string) (Session, error) {
	session, err := r.Get(ctx, callSID)
	if err != nil {
		return Session{}, err
	}
	session.StreamSID = streamSID

	data, err := json.Marshal(session)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(callSID), data, redis.KeepTTL).Err(); err != nil {
		return Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, callSID string) error {
	if err := r.client.Del(ctx, sessionKey(callSID)).Err(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Session, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	if len(keys) == 0 {
		return []Session{}, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	sessions := make([]Session, 0, len(values))
	for _, v := range values {
		// expired between SCAN and MGET
		raw, ok := v.(string)
		if !ok {
			continue
		}
		session, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	sortByAge(sessions)
	return sessions, nil
}

func decodeSession(data []byte) (Session, error) {
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}
