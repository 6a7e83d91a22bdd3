package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned by [Store.Get] when no session is stored under the id.
	ErrNotFound = errors.New("session not found")
	// ErrCorrupt is returned when a stored payload cannot be decoded.
	ErrCorrupt = errors.New("session corrupt")
	// ErrRedisUnavailable wraps every transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store persists sessions in Redis under "<prefix>:<session id>".
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ns"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save writes sess with the given TTL, replacing any previous value.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate stores sess under its (new) id and removes previousID in one
// MULTI/EXEC, so the old identifier stops resolving the moment the new one
// starts.
func (s *Store) Rotate(ctx context.Context, previousID string, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previousID != "" && previousID != sess.SessionID {
			pipe.Del(ctx, s.key(previousID))
		}
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the session stored under sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.SessionID = sessionID
	return sess, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
