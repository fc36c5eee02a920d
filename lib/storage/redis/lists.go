package redis

import (
	"context"

	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/redis/go-redis/v9"
)

// NewListsStorage creates a redis backed lists storage. Every (key,
// list) pair maps to one redis list; all lists touched by a single call
// are modified in one transactional pipeline.
func NewListsStorage(client *redis.Client, keyPrefix string) storage.IListsStorage {
	return &listsStorageImpl{
		client: client,
		prefix: keyPrefix,
		ctx:    context.Background(),
	}
}

// listsStorageImpl implements the storage.IListsStorage interface
type listsStorageImpl struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

func (s *listsStorageImpl) redisKey(key, list string) string {
	return prefixed(s.prefix, "lists", key, list)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.IListsStorage)
// --------------------------------------------------------------------------

func (s *listsStorageImpl) Add(key string, values map[string][]string, maxLength int) error {
	_, err := s.client.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		for list, vs := range values {
			if len(vs) == 0 {
				continue
			}
			args := make([]interface{}, len(vs))
			for i, v := range vs {
				args[i] = v
			}
			rk := s.redisKey(key, list)
			pipe.RPush(s.ctx, rk, args...)
			if maxLength > 0 {
				// keep the maxLength newest values
				pipe.LTrim(s.ctx, rk, int64(-maxLength), -1)
			}
		}
		return nil
	})
	if err != nil {
		return storage.NewStorageError("redis", "lists add", err)
	}
	return nil
}

func (s *listsStorageImpl) Remove(key string, values map[string][]string) error {
	_, err := s.client.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		for list, vs := range values {
			for _, v := range vs {
				pipe.LRem(s.ctx, s.redisKey(key, list), 0, v)
			}
		}
		return nil
	})
	if err != nil {
		return storage.NewStorageError("redis", "lists remove", err)
	}
	return nil
}

func (s *listsStorageImpl) Count(key, list string) (int, error) {
	n, err := s.client.LLen(s.ctx, s.redisKey(key, list)).Result()
	if err != nil {
		return 0, storage.NewStorageError("redis", "llen", err)
	}
	return int(n), nil
}

func (s *listsStorageImpl) Get(key string, lists ...string) (map[string][]string, error) {
	result := make(map[string][]string, len(lists))
	for _, list := range lists {
		vs, err := s.client.LRange(s.ctx, s.redisKey(key, list), 0, -1).Result()
		if err != nil {
			return nil, storage.NewStorageError("redis", "lrange", err)
		}
		result[list] = vs
	}
	return result, nil
}

func (s *listsStorageImpl) Flush(key string, lists ...string) error {
	keys := make([]string, len(lists))
	for i, list := range lists {
		keys[i] = s.redisKey(key, list)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(s.ctx, keys...).Err(); err != nil {
		return storage.NewStorageError("redis", "del", err)
	}
	return nil
}
