package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "handoff:"
	redisIndexKey  = "handoff:index"

	// updateRetries bounds optimistic retries when another writer touches the key.
	updateRetries = 8
)

// RedisStore shares handoff records between instances so a call held on one
// instance can be presented and decided on another.
//
// Each record is a JSON string under handoff:<call_id> expiring at
// CreatedAt+TTL. The sorted set handoff:index scores call ids by creation time
// (unix ms) and is pruned with the same cutoff on every write, so a record is
// listed exactly as long as it can be fetched.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func redisKey(callID string) string { return redisKeyPrefix + callID }

func scoreOf(t time.Time) float64 { return float64(t.UnixMilli()) }

func decodeHandoff(callID string, raw []byte) (Handoff, error) {
	var h Handoff
	if err := json.Unmarshal(raw, &h); err != nil {
		return Handoff{}, fmt.Errorf("handoff: decode %s: %w", callID, err)
	}
	return h, nil
}

func (s *RedisStore) Get(ctx context.Context, callID string) (Handoff, error) {
	raw, err := s.rdb.Get(ctx, redisKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Handoff{}, ErrNotFound
	}
	if err != nil {
		return Handoff{}, fmt.Errorf("handoff: redis get: %w", err)
	}
	return decodeHandoff(callID, raw)
}

func (s *RedisStore) Save(ctx context.Context, h Handoff) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.queueWrite(ctx, p, h, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("handoff: redis save: %w", err)
	}
	return nil
}

// queueWrite stores the record, indexes it and prunes index entries whose
// records have expired.
func (s *RedisStore) queueWrite(ctx context.Context, p redis.Pipeliner, h Handoff, raw []byte) {
	key := redisKey(h.CallID)
	cutoff := s.now().Add(-s.ttl)

	p.Set(ctx, key, raw, 0)
	p.ExpireAt(ctx, key, h.CreatedAt.Add(s.ttl))
	p.ZAdd(ctx, redisIndexKey, redis.Z{Score: scoreOf(h.CreatedAt), Member: h.CallID})
	p.ZRemRangeByScore(ctx, redisIndexKey, "-inf", "("+strconv.FormatInt(cutoff.UnixMilli(), 10))
}

// Update runs fn under WATCH on the record key. A concurrent write aborts the
// transaction and fn is re-run against the fresh value.
func (s *RedisStore) Update(ctx context.Context, callID string, fn UpdateFunc) (Handoff, error) {
	key := redisKey(callID)
	var out Handoff

	txf := func(tx *redis.Tx) error {
		var (
			h     Handoff
			found bool
		)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("handoff: redis get: %w", err)
		default:
			if h, err = decodeHandoff(callID, raw); err != nil {
				return err
			}
			found = true
		}

		if err := fn(&h, found); err != nil {
			return err
		}
		h.CallID = callID
		encoded, err := json.Marshal(h)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.queueWrite(ctx, p, h, encoded)
			return nil
		})
		if err == nil {
			out = h
		}
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Handoff{}, err
		}
		return out, nil
	}
	return Handoff{}, fmt.Errorf("%w: %s", ErrConflict, callID)
}

func (s *RedisStore) List(ctx context.Context, from, to time.Time) ([]Handoff, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, redisIndexKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: "(" + strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("handoff: redis index: %w", err)
	}
	out := make([]Handoff, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("handoff: redis mget: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// expired between index read and fetch
			continue
		}
		h, err := decodeHandoff(ids[i], []byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
