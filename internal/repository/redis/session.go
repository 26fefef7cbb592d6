// Package redis implements cart session storage, the per-session apply lock
// and the product read cache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/moni-del/dragon-d/internal/domain"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

const (
	sessionKeyPrefix = "cart:session:"
	lockKeyPrefix    = "cart:lock:"
)

var errVersionMismatch = errors.New("session version mismatch")

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// SessionRepository implements repository.SessionRepository using Redis.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a Redis-backed session repository. Sessions
// expire after ttl without writes.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

// Get retrieves a cart session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.CartSession, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart session", id)
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s domain.CartSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.Lines == nil {
		s.Lines = []domain.CartLine{}
	}
	return &s, nil
}

// SaveIfVersion writes the session under WATCH so that a concurrent writer
// aborts the transaction. On success session.Version is expected+1.
func (r *SessionRepository) SaveIfVersion(ctx context.Context, session *domain.CartSession, expected int) (bool, error) {
	key := sessionKeyPrefix + session.ID

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current := 0
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get session: %w", err)
		default:
			var stored struct {
				Version int `json:"version"`
			}
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("unmarshal session version: %w", err)
			}
			current = stored.Version
		}
		if current != expected {
			return errVersionMismatch
		}

		session.Version = expected + 1
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMismatch), errors.Is(err, redis.TxFailedErr):
		session.Version = expected
		return false, nil
	default:
		session.Version = expected
		return false, fmt.Errorf("save session: %w", err)
	}
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// AcquireLock takes the apply lock with SET NX PX. It returns "" without an
// error when the lock is already held.
func (r *SessionRepository) AcquireLock(ctx context.Context, id string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+id, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis acquire lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock frees the lock if token still owns it. Releasing an expired or
// foreign lock is a no-op.
func (r *SessionRepository) ReleaseLock(ctx context.Context, id, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, r.client, []string{lockKeyPrefix + id}, token).Err(); err != nil {
		return fmt.Errorf("redis release lock: %w", err)
	}
	return nil
}
