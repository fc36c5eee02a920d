package memory

import (
	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// NewActivityStorage creates an in-memory activity storage. Activities
// are stored in their serialized form to keep parity with the real
// backends: what goes in is exactly what a round trip through the codec
// produces.
func NewActivityStorage(codec serializer.IActivitySerializer) storage.IActivityStorage {
	return &activityStorageImpl{
		codec: codec,
		data:  xsync.NewMapOf[activity.ID, string](),
	}
}

// activityStorageImpl implements the storage.IActivityStorage interface
type activityStorageImpl struct {
	codec serializer.IActivitySerializer
	data  *xsync.MapOf[activity.ID, string]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.IActivityStorage)
// --------------------------------------------------------------------------

func (s *activityStorageImpl) AddMany(activities []activity.Activity) error {
	for _, a := range activities {
		id, err := a.SerializationID()
		if err != nil {
			return err
		}
		payload, err := s.codec.Dumps(a)
		if err != nil {
			return err
		}
		s.data.Store(id, payload)
	}
	return nil
}

func (s *activityStorageImpl) GetMany(ids []activity.ID) (map[activity.ID]activity.Activity, error) {
	result := make(map[activity.ID]activity.Activity, len(ids))
	for _, id := range ids {
		payload, ok := s.data.Load(id)
		if !ok {
			continue
		}
		a, err := s.codec.Loads(payload)
		if err != nil {
			return nil, storage.NewStorageError("memory", "get", err)
		}
		result[id] = a
	}
	return result, nil
}

func (s *activityStorageImpl) RemoveMany(ids []activity.ID) error {
	for _, id := range ids {
		s.data.Delete(id)
	}
	return nil
}

func (s *activityStorageImpl) Flush() error {
	s.data.Clear()
	return nil
}
