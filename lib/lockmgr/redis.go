package lockmgr

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisLockStore creates a redis backed lock store. SET NX PX gives
// the atomic conditional write; expiry is handled server side.
func NewRedisLockStore(client *redis.Client, keyPrefix string) ILockStore {
	return &redisLockStoreImpl{
		client: client,
		prefix: keyPrefix,
		ctx:    context.Background(),
	}
}

// redisLockStoreImpl implements the ILockStore interface
type redisLockStoreImpl struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

func (s *redisLockStoreImpl) redisKey(key string) string {
	return s.prefix + ":lock:" + key
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr.ILockStore)
// --------------------------------------------------------------------------

func (s *redisLockStoreImpl) SetIfUnset(key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(s.ctx, s.redisKey(key), value, ttl).Result()
}

func (s *redisLockStoreImpl) Get(key string) (string, bool, error) {
	value, err := s.client.Get(s.ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// deleteIfValueScript deletes the key only while it still holds the
// expected value, in one server-side step.
var deleteIfValueScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (s *redisLockStoreImpl) DeleteIfValue(key, value string) (bool, error) {
	n, err := deleteIfValueScript.Run(s.ctx, s.client, []string{s.redisKey(key)}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
