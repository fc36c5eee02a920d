package redis

import (
	"context"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/redis/go-redis/v9"
)

// NewActivityStorage creates a redis backed activity storage. All
// activities live in a single global hash keyed by serialization id.
func NewActivityStorage(client *redis.Client, keyPrefix string, codec serializer.IActivitySerializer) storage.IActivityStorage {
	return &activityStorageImpl{
		client: client,
		key:    prefixed(keyPrefix, "activities"),
		codec:  codec,
		ctx:    context.Background(),
	}
}

// activityStorageImpl implements the storage.IActivityStorage interface
type activityStorageImpl struct {
	client *redis.Client
	key    string
	codec  serializer.IActivitySerializer
	ctx    context.Context
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.IActivityStorage)
// --------------------------------------------------------------------------

func (s *activityStorageImpl) AddMany(activities []activity.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	fields := make([]interface{}, 0, len(activities)*2)
	for _, a := range activities {
		id, err := a.SerializationID()
		if err != nil {
			return err
		}
		payload, err := s.codec.Dumps(a)
		if err != nil {
			return err
		}
		fields = append(fields, string(id), payload)
	}
	if err := s.client.HSet(s.ctx, s.key, fields...).Err(); err != nil {
		return storage.NewStorageError("redis", "hset", err)
	}
	return nil
}

func (s *activityStorageImpl) GetMany(ids []activity.ID) (map[activity.ID]activity.Activity, error) {
	if len(ids) == 0 {
		return map[activity.ID]activity.Activity{}, nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = string(id)
	}
	values, err := s.client.HMGet(s.ctx, s.key, fields...).Result()
	if err != nil {
		return nil, storage.NewStorageError("redis", "hmget", err)
	}

	result := make(map[activity.ID]activity.Activity, len(ids))
	for i, v := range values {
		payload, ok := v.(string)
		if !ok {
			// nil for missing fields
			continue
		}
		a, err := s.codec.Loads(payload)
		if err != nil {
			return nil, storage.NewStorageError("redis", "decode", err)
		}
		result[ids[i]] = a
	}
	return result, nil
}

func (s *activityStorageImpl) RemoveMany(ids []activity.ID) error {
	if len(ids) == 0 {
		return nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = string(id)
	}
	if err := s.client.HDel(s.ctx, s.key, fields...).Err(); err != nil {
		return storage.NewStorageError("redis", "hdel", err)
	}
	return nil
}

func (s *activityStorageImpl) Flush() error {
	if err := s.client.Del(s.ctx, s.key).Err(); err != nil {
		return storage.NewStorageError("redis", "del", err)
	}
	return nil
}
