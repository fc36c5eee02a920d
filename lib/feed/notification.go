package feed

import (
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/aggregator"
	"github.com/ValentinKolb/dFeed/lib/lockmgr"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
)

const (
	// DefaultNotificationKeyFormat is the timeline key pattern of
	// notification feeds; it doubles as the markers key and the lock key.
	DefaultNotificationKeyFormat = "notification:%d"

	// DefaultMarkersMaxLength caps the unseen/unread marker lists. A
	// user with more unseen notifications than this sees the count
	// saturate, which is fine for a badge.
	DefaultMarkersMaxLength = 100

	// DefaultLockTTL bounds how long one read-merge-write cycle may hold
	// the per-user lock.
	DefaultLockTTL = 10 * time.Second

	listUnseen = "unseen"
	listUnread = "unread"
)

// NotificationData is the badge payload of a user.
type NotificationData struct {
	UnseenCount int
	UnreadCount int
}

// NotificationFeed is an aggregated feed with unseen/unread tracking.
// Presence of an aggregate's id in the marker lists means "not yet
// seen" / "not yet read"; the id changes whenever the aggregate is
// updated, so an update automatically makes it unseen again.
//
// All writes hold a per-user lock: notification feeds are written from
// many producers at once and the read-merge-write cycle must not
// interleave.
type NotificationFeed struct {
	*AggregatedFeed
	markers          storage.IListsStorage
	markersMaxLength int
	locks            lockmgr.ILockManager
	lockTTL          time.Duration
}

// NewNotificationFeed creates the notification feed of the given user.
// Use serializer.NewNotificationSerializer as codec so notifications
// render without hydration.
func NewNotificationFeed(cfg Config, userID int64, agg *aggregator.Aggregator, codec serializer.IAggregatedSerializer, markers storage.IListsStorage, locks lockmgr.ILockManager) (*NotificationFeed, error) {
	base, err := newAggregatedFeed(cfg, userID, "notification", DefaultNotificationKeyFormat, agg, codec)
	if err != nil {
		return nil, err
	}
	n := &NotificationFeed{
		AggregatedFeed:   base,
		markers:          markers,
		markersMaxLength: DefaultMarkersMaxLength,
		locks:            locks,
		lockTTL:          DefaultLockTTL,
	}
	base.SetOnUpdate(n.updateMarkers)
	return n, nil
}

// updateMarkers keeps the unseen/unread lists in sync with an applied
// aggregate diff: created aggregates and the new halves of changed
// pairs become unseen/unread, deleted aggregates and the old halves
// drop out.
func (n *NotificationFeed) updateMarkers(created []*activity.AggregatedActivity, changed []aggregator.ChangedPair, deleted []*activity.AggregatedActivity) error {
	var add, remove []string
	for _, agg := range created {
		add = append(add, string(agg.SerializationID()))
	}
	for _, pair := range changed {
		remove = append(remove, string(pair.Old.SerializationID()))
		add = append(add, string(pair.New.SerializationID()))
	}
	for _, agg := range deleted {
		remove = append(remove, string(agg.SerializationID()))
	}

	if len(remove) > 0 {
		err := n.markers.Remove(n.key, map[string][]string{listUnseen: remove, listUnread: remove})
		if err != nil {
			return err
		}
	}
	if len(add) > 0 {
		err := n.markers.Add(n.key, map[string][]string{listUnseen: add, listUnread: add}, n.markersMaxLength)
		if err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Write Operations (locked)
// --------------------------------------------------------------------------

// AddMany merges activities into the feed under the per-user lock.
func (n *NotificationFeed) AddMany(activities []activity.Activity, trim bool) error {
	return lockmgr.WithLock(n.locks, n.key, n.lockTTL, func() error {
		return n.AggregatedFeed.AddMany(activities, trim)
	})
}

// RemoveMany removes activity ids from the feed under the per-user
// lock.
func (n *NotificationFeed) RemoveMany(ids []activity.ID) error {
	return lockmgr.WithLock(n.locks, n.key, n.lockTTL, func() error {
		return n.AggregatedFeed.RemoveMany(ids)
	})
}

// --------------------------------------------------------------------------
// Seen / Read State
// --------------------------------------------------------------------------

// MarkAggregate marks one aggregate id as seen, and as read when read
// is true.
func (n *NotificationFeed) MarkAggregate(id activity.ID, read bool) error {
	return n.MarkAggregates([]activity.ID{id}, read)
}

// MarkAggregates marks the given aggregate ids as seen, and as read
// when read is true.
func (n *NotificationFeed) MarkAggregates(ids []activity.ID, read bool) error {
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = string(id)
	}
	remove := map[string][]string{listUnseen: values}
	if read {
		remove[listUnread] = values
	}
	return n.markers.Remove(n.key, remove)
}

// MarkAll marks everything as seen, and as read when read is true.
func (n *NotificationFeed) MarkAll(read bool) error {
	lists := []string{listUnseen}
	if read {
		lists = append(lists, listUnread)
	}
	return n.markers.Flush(n.key, lists...)
}

// CountUnseen returns the number of unseen aggregates, capped by the
// markers max length.
func (n *NotificationFeed) CountUnseen() (int, error) {
	return n.markers.Count(n.key, listUnseen)
}

// CountUnread returns the number of unread aggregates, capped by the
// markers max length.
func (n *NotificationFeed) CountUnread() (int, error) {
	return n.markers.Count(n.key, listUnread)
}

// GetNotificationData returns the badge counts of the user.
func (n *NotificationFeed) GetNotificationData() (NotificationData, error) {
	unseen, err := n.CountUnseen()
	if err != nil {
		return NotificationData{}, err
	}
	unread, err := n.CountUnread()
	if err != nil {
		return NotificationData{}, err
	}
	return NotificationData{UnseenCount: unseen, UnreadCount: unread}, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Slice returns the aggregates [start, stop) annotated with their
// seen/read state from the marker lists.
func (n *NotificationFeed) Slice(start, stop int) ([]*activity.AggregatedActivity, error) {
	aggregates, err := n.AggregatedFeed.Slice(start, stop)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return aggregates, nil
	}

	lists, err := n.markers.Get(n.key, listUnseen, listUnread)
	if err != nil {
		return nil, err
	}
	unseen := toSet(lists[listUnseen])
	unread := toSet(lists[listUnread])

	for _, agg := range aggregates {
		id := string(agg.SerializationID())
		if !unseen[id] {
			agg.SeenAt = agg.UpdatedAt
		}
		if !unread[id] {
			agg.ReadAt = agg.UpdatedAt
		}
	}
	return aggregates, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// --------------------------------------------------------------------------
// Fanout Target Adapter
// --------------------------------------------------------------------------

// AddActivities makes *NotificationFeed a fanout target routing through
// the locked write path.
func (n *NotificationFeed) AddActivities(activities []activity.Activity, trim bool) error {
	return n.AddMany(activities, trim)
}

// RemoveActivities makes *NotificationFeed a fanout target routing
// through the locked write path.
func (n *NotificationFeed) RemoveActivities(activities []activity.Activity, _ bool) error {
	ids := make([]activity.ID, len(activities))
	for i, a := range activities {
		id, err := a.SerializationID()
		if err != nil {
			return err
		}
		ids[i] = id
	}
	return n.RemoveMany(ids)
}
