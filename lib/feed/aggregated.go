package feed

import (
	"fmt"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/aggregator"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
)

const (
	// DefaultMergeMaxLength is the read-back window of the merge: fresh
	// activities are only merged into one of this many most recent
	// aggregates. An activity whose group scrolled past the window
	// starts a fresh aggregate; that duplicate-group tradeoff keeps
	// every write O(window) instead of O(feed).
	DefaultMergeMaxLength = 20

	// DefaultAggregatedKeyFormat is the timeline key pattern of
	// aggregated feeds.
	DefaultAggregatedKeyFormat = "aggregated:%d"
)

// UpdateHook observes every applied aggregate diff. NotificationFeed
// uses it to maintain its unseen/unread markers.
type UpdateHook func(created []*activity.AggregatedActivity, changed []aggregator.ChangedPair, deleted []*activity.AggregatedActivity) error

// AggregatedFeed stores aggregated activities instead of single ones.
// Writes are read-merge-write: the most recent aggregates are loaded,
// fresh activities merged in, and the diff applied as one batch.
type AggregatedFeed struct {
	*Feed
	aggregator     *aggregator.Aggregator
	aggCodec       serializer.IAggregatedSerializer
	mergeMaxLength int
	onUpdate       UpdateHook
}

// NewAggregatedFeed creates the aggregated feed of the given user. The
// codec decides whether aggregates are stored dehydrated
// (NewAggregatedSerializer) or fully serialized
// (NewNotificationSerializer).
func NewAggregatedFeed(cfg Config, userID int64, agg *aggregator.Aggregator, codec serializer.IAggregatedSerializer) (*AggregatedFeed, error) {
	return newAggregatedFeed(cfg, userID, "aggregated", DefaultAggregatedKeyFormat, agg, codec)
}

// newAggregatedFeed is shared with NotificationFeed.
func newAggregatedFeed(cfg Config, userID int64, kind, defaultKeyFormat string, agg *aggregator.Aggregator, codec serializer.IAggregatedSerializer) (*AggregatedFeed, error) {
	base, err := newFeed(cfg, userID, kind, defaultKeyFormat)
	if err != nil {
		return nil, err
	}
	return &AggregatedFeed{
		Feed:           base,
		aggregator:     agg,
		aggCodec:       codec,
		mergeMaxLength: DefaultMergeMaxLength,
	}, nil
}

// SetOnUpdate registers the diff observer. Pass nil to remove it.
func (f *AggregatedFeed) SetOnUpdate(hook UpdateHook) {
	f.onUpdate = hook
}

// SetMergeMaxLength overrides the merge read-back window.
func (f *AggregatedFeed) SetMergeMaxLength(n int) {
	if n > 0 {
		f.mergeMaxLength = n
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// AddMany merges activities into the feed's aggregates. The full
// payloads additionally go to the shared activity storage so dehydrated
// aggregates can be rehydrated on read.
func (f *AggregatedFeed) AddMany(activities []activity.Activity, trim bool) error {
	if len(activities) == 0 {
		return nil
	}
	if err := f.activities.AddMany(activities); err != nil {
		return err
	}

	current, err := f.recentAggregates()
	if err != nil {
		return err
	}
	created, changed, deleted, err := f.aggregator.Merge(current, activities)
	if err != nil {
		return err
	}
	if err := f.applyDiff(created, changed, deleted); err != nil {
		return err
	}

	if trim && f.trim() {
		return f.Trim(0)
	}
	return nil
}

// RemoveMany removes single activity ids from the feed's aggregates.
// Aggregates losing their last activity are deleted, the rest are
// rewritten without the removed ids.
func (f *AggregatedFeed) RemoveMany(ids []activity.ID) error {
	if len(ids) == 0 {
		return nil
	}
	targets := make(map[activity.ID]bool, len(ids))
	for _, id := range ids {
		targets[id] = true
	}

	// trim first so the scan below only has to cover maxLength rows.
	// Unlike the merge, removal must see the whole retained feed, not
	// just the merge window.
	if err := f.Trim(0); err != nil {
		return err
	}
	current, err := f.aggregateWindow(f.maxLength)
	if err != nil {
		return err
	}

	var (
		changed []aggregator.ChangedPair
		deleted []*activity.AggregatedActivity
	)
	for _, agg := range current {
		var present []activity.ID
		for _, id := range agg.IDs() {
			if targets[id] {
				present = append(present, id)
			}
		}
		if len(present) == 0 {
			continue
		}
		if len(present) == agg.Len() {
			deleted = append(deleted, agg)
			continue
		}
		updated := agg.Clone()
		updated.RemoveMany(present)
		changed = append(changed, aggregator.ChangedPair{Old: agg, New: updated})
	}
	return f.applyDiff(nil, changed, deleted)
}

// AddManyAggregated writes pre-built aggregates directly, bypassing the
// merge. Used for backfills and by tests.
func (f *AggregatedFeed) AddManyAggregated(aggregates []*activity.AggregatedActivity) error {
	return f.applyDiff(aggregates, nil, nil)
}

// RemoveManyAggregated removes whole aggregates from the feed.
func (f *AggregatedFeed) RemoveManyAggregated(aggregates []*activity.AggregatedActivity) error {
	return f.applyDiff(nil, nil, aggregates)
}

// applyDiff translates an aggregate diff into timeline writes: deleted
// aggregates and the old halves of changed pairs are removed, created
// aggregates and the new halves are written, all within one batch. The
// update hook fires after a successful flush.
func (f *AggregatedFeed) applyDiff(created []*activity.AggregatedActivity, changed []aggregator.ChangedPair, deleted []*activity.AggregatedActivity) error {
	if len(created) == 0 && len(changed) == 0 && len(deleted) == 0 {
		return nil
	}

	toRemove := append([]*activity.AggregatedActivity(nil), deleted...)
	toAdd := append([]*activity.AggregatedActivity(nil), created...)
	for _, pair := range changed {
		toRemove = append(toRemove, pair.Old)
		toAdd = append(toAdd, pair.New)
	}

	removeEntries, err := f.entries(toRemove)
	if err != nil {
		return err
	}
	addEntries, err := f.entries(toAdd)
	if err != nil {
		return err
	}

	batch := f.batch
	ownBatch := batch == nil
	if ownBatch {
		batch = f.timelines.NewBatch()
		defer batch.Close()
	}
	if err := f.timelines.RemoveMany(f.key, removeEntries, batch); err != nil {
		return err
	}
	if err := f.timelines.AddMany(f.key, addEntries, batch); err != nil {
		return err
	}
	if ownBatch {
		if err := batch.Flush(); err != nil {
			return err
		}
	}

	f.metrics.OnFeedRemove(f.kind, len(removeEntries))
	f.metrics.OnFeedWrite(f.kind, len(addEntries))
	f.log.Debug().
		Int("created", len(created)).
		Int("changed", len(changed)).
		Int("deleted", len(deleted)).
		Msg("applied aggregate diff")

	if f.onUpdate != nil {
		return f.onUpdate(created, changed, deleted)
	}
	return nil
}

// entries serializes aggregates into their timeline rows.
func (f *AggregatedFeed) entries(aggregates []*activity.AggregatedActivity) ([]storage.Entry, error) {
	entries := make([]storage.Entry, 0, len(aggregates))
	for _, agg := range aggregates {
		id := agg.SerializationID()
		if id.IsZero() {
			return nil, activity.NewValidationError("aggregate %q has no update time", agg.Group)
		}
		payload, err := f.aggCodec.Dumps(agg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, storage.Entry{ID: id, Payload: payload})
	}
	return entries, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Slice returns the hydrated aggregates [start, stop) of the filtered,
// ordered feed. stop < 0 means no upper bound.
func (f *AggregatedFeed) Slice(start, stop int) ([]*activity.AggregatedActivity, error) {
	timer := f.metrics.FeedReadsTimer(f.kind)
	defer timer.Stop()

	rows, err := f.timelines.GetSlice(f.key, start, stop, f.filter, f.order)
	if err != nil {
		return nil, err
	}

	aggregates := make([]*activity.AggregatedActivity, 0, len(rows))
	var dehydratedIDs []activity.ID
	for _, row := range rows {
		agg, err := f.aggCodec.Loads(row.Payload)
		if err != nil {
			return nil, err
		}
		if agg.Dehydrated {
			dehydratedIDs = append(dehydratedIDs, agg.ActivityIDs...)
		}
		aggregates = append(aggregates, agg)
	}

	if len(dehydratedIDs) > 0 {
		byID, err := f.activities.GetMany(dehydratedIDs)
		if err != nil {
			return nil, err
		}
		for _, agg := range aggregates {
			if !agg.Dehydrated {
				continue
			}
			if err := agg.Hydrate(byID); err != nil {
				return nil, fmt.Errorf("hydrating group %q: %w", agg.Group, err)
			}
		}
	}

	f.metrics.OnFeedRead(f.kind, len(aggregates))
	return aggregates, nil
}

// ContainsActivity reports whether any retained aggregate holds the
// given activity id.
func (f *AggregatedFeed) ContainsActivity(id activity.ID) (bool, error) {
	current, err := f.aggregateWindow(f.maxLength)
	if err != nil {
		return false, err
	}
	for _, agg := range current {
		if agg.Contains(id) {
			return true, nil
		}
	}
	return false, nil
}

// Contains reports whether any retained aggregate holds an activity
// describing the same interaction as the given one (same actor, verb,
// object and target, any time). Use ContainsActivity for exact id
// lookups.
func (f *AggregatedFeed) Contains(a activity.Activity) (bool, error) {
	current, err := f.aggregateWindow(f.maxLength)
	if err != nil {
		return false, err
	}
	for _, agg := range current {
		for _, inner := range agg.Activities {
			if inner.SameOccurrence(a) {
				return true, nil
			}
		}
	}
	return false, nil
}

// recentAggregates loads the hydrated merge window.
func (f *AggregatedFeed) recentAggregates() ([]*activity.AggregatedActivity, error) {
	return f.aggregateWindow(f.mergeMaxLength)
}

// aggregateWindow loads the n newest hydrated aggregates, bypassing any
// user-set filter and order.
func (f *AggregatedFeed) aggregateWindow(n int) ([]*activity.AggregatedActivity, error) {
	return f.Filter(storage.SliceFilter{}).OrderBy(storage.OrderDesc).Slice(0, n)
}

// Filter returns a feed copy whose reads apply the given id bounds.
func (f *AggregatedFeed) Filter(filter storage.SliceFilter) *AggregatedFeed {
	clone := *f
	clone.Feed = f.Feed.Filter(filter)
	return &clone
}

// OrderBy returns a feed copy whose reads use the given order.
func (f *AggregatedFeed) OrderBy(order storage.Order) *AggregatedFeed {
	clone := *f
	clone.Feed = f.Feed.OrderBy(order)
	return &clone
}

// WithBatch returns a feed copy whose timeline writes are buffered in
// the given batch.
func (f *AggregatedFeed) WithBatch(batch storage.Batch) *AggregatedFeed {
	clone := *f
	clone.Feed = f.Feed.WithBatch(batch)
	return &clone
}

// --------------------------------------------------------------------------
// Fanout Target Adapter
// --------------------------------------------------------------------------

// AddActivities makes *AggregatedFeed a fanout target.
func (f *AggregatedFeed) AddActivities(activities []activity.Activity, trim bool) error {
	return f.AddMany(activities, trim)
}

// RemoveActivities makes *AggregatedFeed a fanout target.
func (f *AggregatedFeed) RemoveActivities(activities []activity.Activity, _ bool) error {
	ids := make([]activity.ID, len(activities))
	for i, a := range activities {
		id, err := a.SerializationID()
		if err != nil {
			return err
		}
		ids[i] = id
	}
	return f.RemoveMany(ids)
}
