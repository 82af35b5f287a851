package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tokinarc-sales-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "sales:session:"
	sessionIndexKey  = "sales:sessions"
	sessionTTL       = 24 * time.Hour
)

// RedisSessionRepository stores each session as JSON and keeps a sorted set
// of ids scored by UpdatedAt for listing and retention.
type RedisSessionRepository struct {
	rdb         redis.UniversalClient
	maxSessions int
}

func NewRedisSessionRepository(rdb redis.UniversalClient, maxSessions int) *RedisSessionRepository {
	if maxSessions <= 0 {
		maxSessions = 3
	}
	return &RedisSessionRepository{rdb: rdb, maxSessions: maxSessions}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (r *RedisSessionRepository) Save(ctx context.Context, session *store.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), raw, sessionTTL)
		pipe.ZAdd(ctx, sessionIndexKey, redis.Z{Score: float64(session.UpdatedAt.UnixNano()), Member: session.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return r.evict(ctx)
}

// evict drops everything beyond the newest maxSessions ids.
func (r *RedisSessionRepository) evict(ctx context.Context) error {
	stale, err := r.rdb.ZRevRange(ctx, sessionIndexKey, int64(r.maxSessions), -1).Result()
	if err != nil {
		return fmt.Errorf("list stale sessions: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	keys := make([]string, len(stale))
	members := make([]interface{}, len(stale))
	for i, id := range stale {
		keys[i] = sessionKey(id)
		members[i] = id
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, sessionIndexKey, members...)
		return nil
	})
	return err
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var s store.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisSessionRepository) List(ctx context.Context) ([]*store.Session, error) {
	ids, err := r.rdb.ZRevRange(ctx, sessionIndexKey, 0, int64(r.maxSessions)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]*store.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		// key expired but the index entry is still there
		if s == nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.ZRem(ctx, sessionIndexKey, id)
		return nil
	})
	return err
}
