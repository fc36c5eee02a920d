package feed

import (
	"fmt"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/metrics"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxLength bounds a timeline; older entries fall off on trim.
	DefaultMaxLength = 100
	// DefaultKeyFormat is the timeline key pattern of flat feeds.
	DefaultKeyFormat = "feed:%d"
)

// Config carries the shared dependencies of all feed types. One Config
// is typically built at process start and reused for every user.
type Config struct {
	// KeyFormat must contain one %d for the user id.
	KeyFormat string
	// MaxLength defaults to DefaultMaxLength.
	MaxLength int
	// Timelines is the per-feed timeline backend. Required.
	Timelines storage.ITimelineStorage
	// Activities is the shared global activity storage. Required.
	Activities storage.IActivityStorage
	// Trim defaults to ProbabilisticTrim(DefaultTrimChance, nil).
	Trim TrimPolicy
	// Metrics defaults to the nop sink.
	Metrics metrics.IMetrics
	// Logger defaults to a nop logger.
	Logger zerolog.Logger
}

// withDefaults fills the optional config fields.
func (cfg Config) withDefaults(keyFormat string) (Config, error) {
	if cfg.Timelines == nil {
		return cfg, fmt.Errorf("feed config: timeline storage is required")
	}
	if cfg.Activities == nil {
		return cfg, fmt.Errorf("feed config: activity storage is required")
	}
	if cfg.KeyFormat == "" {
		cfg.KeyFormat = keyFormat
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.Trim == nil {
		cfg.Trim = ProbabilisticTrim(DefaultTrimChance, nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}
	return cfg, nil
}

// Feed is one user's flat timeline. The zero value is not usable;
// create feeds with NewFeed.
type Feed struct {
	kind      string
	userID    int64
	key       string
	maxLength int

	timelines  storage.ITimelineStorage
	activities storage.IActivityStorage
	codec      serializer.ITimelineSerializer
	trim       TrimPolicy
	metrics    metrics.IMetrics
	log        zerolog.Logger

	// query state, set by the Filter/OrderBy/WithBatch builders
	filter storage.SliceFilter
	order  storage.Order
	batch  storage.Batch
}

// NewFeed creates the flat feed of the given user.
func NewFeed(cfg Config, userID int64) (*Feed, error) {
	return newFeed(cfg, userID, "flat", DefaultKeyFormat)
}

// newFeed is the shared base constructor of all feed types.
func newFeed(cfg Config, userID int64, kind, defaultKeyFormat string) (*Feed, error) {
	cfg, err := cfg.withDefaults(defaultKeyFormat)
	if err != nil {
		return nil, err
	}
	return &Feed{
		kind:       kind,
		userID:     userID,
		key:        fmt.Sprintf(cfg.KeyFormat, userID),
		maxLength:  cfg.MaxLength,
		timelines:  cfg.Timelines,
		activities: cfg.Activities,
		codec:      serializer.NewTimelineSerializer(),
		trim:       cfg.Trim,
		metrics:    cfg.Metrics,
		log:        cfg.Logger.With().Str("feed", kind).Int64("user_id", userID).Logger(),
	}, nil
}

// UserID returns the owner of the feed.
func (f *Feed) UserID() int64 { return f.userID }

// Key returns the timeline key of the feed.
func (f *Feed) Key() string { return f.key }

// MaxLength returns the trim bound of the feed.
func (f *Feed) MaxLength() int { return f.maxLength }

// --------------------------------------------------------------------------
// Query Builders
// --------------------------------------------------------------------------

// Filter returns a feed copy whose reads apply the given id bounds.
func (f *Feed) Filter(filter storage.SliceFilter) *Feed {
	clone := *f
	clone.filter = filter
	return &clone
}

// OrderBy returns a feed copy whose reads use the given order.
func (f *Feed) OrderBy(order storage.Order) *Feed {
	clone := *f
	clone.order = order
	return &clone
}

// WithBatch returns a feed copy whose timeline writes are buffered in
// the given batch. The caller owns flushing and closing the batch.
func (f *Feed) WithBatch(batch storage.Batch) *Feed {
	clone := *f
	clone.batch = batch
	return &clone
}

// NewBatch creates a write buffer on the feed's timeline backend.
func (f *Feed) NewBatch() storage.Batch {
	return f.timelines.NewBatch()
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Add appends one activity to the feed, with automatic trimming.
func (f *Feed) Add(a activity.Activity) error {
	return f.AddMany([]activity.Activity{a}, true)
}

// AddMany appends activities to the feed: the full payloads go to the
// shared activity storage, the dehydrated ids to the timeline. When
// trim is true the trim policy decides whether the timeline gets cut
// down to MaxLength afterwards.
func (f *Feed) AddMany(activities []activity.Activity, trim bool) error {
	if len(activities) == 0 {
		return nil
	}
	if err := f.activities.AddMany(activities); err != nil {
		return err
	}

	entries := make([]storage.Entry, len(activities))
	for i, a := range activities {
		payload, err := f.codec.Dumps(a)
		if err != nil {
			return err
		}
		entries[i] = storage.Entry{ID: a.MustSerializationID(), Payload: payload}
	}
	if err := f.timelines.AddMany(f.key, entries, f.batch); err != nil {
		return err
	}
	f.metrics.OnFeedWrite(f.kind, len(entries))
	f.log.Debug().Int("count", len(entries)).Msg("added activities")

	if trim && f.trim() {
		return f.Trim(0)
	}
	return nil
}

// Remove deletes one activity id from the feed's timeline.
func (f *Feed) Remove(id activity.ID) error {
	return f.RemoveMany([]activity.ID{id})
}

// RemoveMany deletes activity ids from the feed's timeline. The global
// activity storage is left alone; use RemoveActivitiesGlobally when an
// activity disappears everywhere.
func (f *Feed) RemoveMany(ids []activity.ID) error {
	if len(ids) == 0 {
		return nil
	}
	entries := make([]storage.Entry, len(ids))
	for i, id := range ids {
		entries[i] = storage.Entry{ID: id, Payload: string(id)}
	}
	if err := f.timelines.RemoveMany(f.key, entries, f.batch); err != nil {
		return err
	}
	f.metrics.OnFeedRemove(f.kind, len(ids))
	f.log.Debug().Int("count", len(ids)).Msg("removed activities")
	return nil
}

// Trim cuts the timeline down to maxLength entries; 0 means the feed's
// configured MaxLength.
func (f *Feed) Trim(maxLength int) error {
	if maxLength <= 0 {
		maxLength = f.maxLength
	}
	return f.timelines.Trim(f.key, maxLength)
}

// Delete removes the whole timeline.
func (f *Feed) Delete() error {
	return f.timelines.Delete(f.key)
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Slice returns the hydrated activities [start, stop) of the filtered,
// ordered feed. stop < 0 means no upper bound. Ids whose activity has
// been deleted from the global storage are skipped silently: a feed is
// a best-effort view, not a ledger.
func (f *Feed) Slice(start, stop int) ([]activity.Activity, error) {
	timer := f.metrics.FeedReadsTimer(f.kind)
	defer timer.Stop()

	entries, err := f.timelines.GetSlice(f.key, start, stop, f.filter, f.order)
	if err != nil {
		return nil, err
	}

	ids := make([]activity.ID, len(entries))
	for i, e := range entries {
		d, err := f.codec.Loads(e.Payload)
		if err != nil {
			return nil, err
		}
		ids[i] = d.ID
	}
	byID, err := f.activities.GetMany(ids)
	if err != nil {
		return nil, err
	}

	result := make([]activity.Activity, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			f.log.Debug().Str("id", string(id)).Msg("skipping activity missing from global storage")
			continue
		}
		result = append(result, a)
	}
	f.metrics.OnFeedRead(f.kind, len(result))
	return result, nil
}

// Count returns the number of entries in the timeline.
func (f *Feed) Count() (int, error) {
	return f.timelines.Count(f.key)
}

// IndexOf returns the position of the id in the descending timeline.
func (f *Feed) IndexOf(id activity.ID) (int, error) {
	return f.timelines.IndexOf(f.key, id)
}

// Contains reports whether the timeline holds the id.
func (f *Feed) Contains(id activity.ID) (bool, error) {
	return f.timelines.Contains(f.key, id)
}

// --------------------------------------------------------------------------
// Fanout Target Adapter
// --------------------------------------------------------------------------

// AddActivities makes *Feed a fanout target.
func (f *Feed) AddActivities(activities []activity.Activity, trim bool) error {
	return f.AddMany(activities, trim)
}

// RemoveActivities makes *Feed a fanout target.
func (f *Feed) RemoveActivities(activities []activity.Activity, _ bool) error {
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

// --------------------------------------------------------------------------
// Global Activity Helpers
// --------------------------------------------------------------------------

// InsertActivities stores activities in the shared activity storage
// without touching any timeline. The fanout manager publishes payloads
// once through this before fanning the ids out.
func InsertActivities(store storage.IActivityStorage, m metrics.IMetrics, activities ...activity.Activity) error {
	if err := store.AddMany(activities); err != nil {
		return err
	}
	for range activities {
		m.OnActivityPublished()
	}
	return nil
}

// RemoveActivitiesGlobally deletes activity payloads from the shared
// activity storage. Timeline entries pointing at them turn into
// gracefully skipped reads until the next trim.
func RemoveActivitiesGlobally(store storage.IActivityStorage, m metrics.IMetrics, ids ...activity.ID) error {
	if err := store.RemoveMany(ids); err != nil {
		return err
	}
	for range ids {
		m.OnActivityRemoved()
	}
	return nil
}
