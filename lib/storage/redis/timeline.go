package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/redis/go-redis/v9"
)

// NewTimelineStorage creates a redis backed timeline storage. Every
// feed key maps to one sorted set.
func NewTimelineStorage(client *redis.Client, keyPrefix string) storage.ITimelineStorage {
	return &timelineStorageImpl{
		client: client,
		prefix: keyPrefix,
		ctx:    context.Background(),
	}
}

// timelineStorageImpl implements the storage.ITimelineStorage interface
type timelineStorageImpl struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

func (s *timelineStorageImpl) redisKey(key string) string {
	return prefixed(s.prefix, "timeline", key)
}

// cmd returns the pipeline of the given batch, or the plain client for
// immediate execution.
func (s *timelineStorageImpl) cmd(batch storage.Batch) redis.Cmdable {
	if b, ok := batch.(*timelineBatch); ok {
		return b.pipe
	}
	return s.client
}

// --------------------------------------------------------------------------
// Batch
// --------------------------------------------------------------------------

// timelineBatch buffers timeline writes in a non-transactional redis
// pipeline. Not safe for concurrent use.
type timelineBatch struct {
	pipe redis.Pipeliner
	ctx  context.Context
}

func (b *timelineBatch) Flush() error {
	if _, err := b.pipe.Exec(b.ctx); err != nil {
		return storage.NewStorageError("redis", "pipeline exec", err)
	}
	return nil
}

func (b *timelineBatch) Close() error {
	b.pipe.Discard()
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.ITimelineStorage)
// --------------------------------------------------------------------------

func (s *timelineStorageImpl) AddMany(key string, entries []storage.Entry, batch storage.Batch) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: e.ID.Score(), Member: e.Payload}
	}
	if err := s.cmd(batch).ZAdd(s.ctx, s.redisKey(key), members...).Err(); err != nil {
		return storage.NewStorageError("redis", "zadd", err)
	}
	return nil
}

func (s *timelineStorageImpl) RemoveMany(key string, entries []storage.Entry, batch storage.Batch) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]interface{}, len(entries))
	for i, e := range entries {
		members[i] = e.Payload
	}
	if err := s.cmd(batch).ZRem(s.ctx, s.redisKey(key), members...).Err(); err != nil {
		return storage.NewStorageError("redis", "zrem", err)
	}
	return nil
}

func (s *timelineStorageImpl) GetSlice(key string, start, stop int, filter storage.SliceFilter, order storage.Order) ([]storage.Entry, error) {
	if start < 0 {
		return nil, storage.NewStorageError("redis", "slice", fmt.Errorf("negative start %d", start))
	}

	min, max := "-inf", "+inf"
	if !filter.IDGte.IsZero() {
		min = string(filter.IDGte)
	}
	if !filter.IDGt.IsZero() {
		min = "(" + string(filter.IDGt)
	}
	if !filter.IDLte.IsZero() {
		max = string(filter.IDLte)
	}
	if !filter.IDLt.IsZero() {
		max = "(" + string(filter.IDLt)
	}

	count := int64(-1)
	if stop >= 0 {
		if stop <= start {
			return nil, nil
		}
		count = int64(stop - start)
	}
	rangeBy := &redis.ZRangeBy{Min: min, Max: max, Offset: int64(start), Count: count}

	var (
		rows []redis.Z
		err  error
	)
	if order == storage.OrderAsc {
		rows, err = s.client.ZRangeByScoreWithScores(s.ctx, s.redisKey(key), rangeBy).Result()
	} else {
		rows, err = s.client.ZRevRangeByScoreWithScores(s.ctx, s.redisKey(key), rangeBy).Result()
	}
	if err != nil {
		return nil, storage.NewStorageError("redis", "zrangebyscore", err)
	}

	entries := make([]storage.Entry, 0, len(rows))
	for _, row := range rows {
		payload, _ := row.Member.(string)
		entries = append(entries, storage.Entry{ID: entryID(payload, row.Score), Payload: payload})
	}
	return entries, nil
}

func (s *timelineStorageImpl) Trim(key string, maxLength int) error {
	if maxLength < 0 {
		return storage.NewStorageError("redis", "trim", fmt.Errorf("negative max length %d", maxLength))
	}
	// ascending ranks: drop everything below the maxLength newest
	err := s.client.ZRemRangeByRank(s.ctx, s.redisKey(key), 0, int64(-maxLength-1)).Err()
	if err != nil {
		return storage.NewStorageError("redis", "zremrangebyrank", err)
	}
	return nil
}

func (s *timelineStorageImpl) Count(key string) (int, error) {
	n, err := s.client.ZCard(s.ctx, s.redisKey(key)).Result()
	if err != nil {
		return 0, storage.NewStorageError("redis", "zcard", err)
	}
	return int(n), nil
}

func (s *timelineStorageImpl) Delete(key string) error {
	if err := s.client.Del(s.ctx, s.redisKey(key)).Err(); err != nil {
		return storage.NewStorageError("redis", "del", err)
	}
	return nil
}

func (s *timelineStorageImpl) IndexOf(key string, id activity.ID) (int, error) {
	// only valid for dehydrated timelines where member == id
	rank, err := s.client.ZRevRank(s.ctx, s.redisKey(key), string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("timeline %s: id %s: %w", key, id, activity.ErrActivityNotFound)
	}
	if err != nil {
		return 0, storage.NewStorageError("redis", "zrevrank", err)
	}
	return int(rank), nil
}

func (s *timelineStorageImpl) Contains(key string, id activity.ID) (bool, error) {
	err := s.client.ZScore(s.ctx, s.redisKey(key), string(id)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, storage.NewStorageError("redis", "zscore", err)
	}
	return true, nil
}

func (s *timelineStorageImpl) NewBatch() storage.Batch {
	return &timelineBatch{pipe: s.client.Pipeline(), ctx: s.ctx}
}

// entryID recovers the sortable id of a stored member. Dehydrated
// payloads are the id itself; for everything else the (lossy) score is
// the best the sorted set can give us, which is fine because those
// payloads carry their authoritative id inside.
func entryID(payload string, score float64) activity.ID {
	if isDigits(payload) {
		return activity.ID(payload)
	}
	return activity.ID(fmt.Sprintf("%.0f", score))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
