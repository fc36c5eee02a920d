package fanout

import (
	"fmt"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/feed"
	"github.com/ValentinKolb/dFeed/lib/metrics"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultChunkSize is how many follower feeds one job writes.
	DefaultChunkSize = 100

	// DefaultFollowActivityLimit bounds how much history a new follower
	// gets backfilled with.
	DefaultFollowActivityLimit = 5000
)

// ManagerConfig carries the dependencies of a Manager.
type ManagerConfig struct {
	// UserFeed builds the personal feed of an author. Required.
	UserFeed func(userID int64) (*feed.Feed, error)
	// Feeds are the follower feed types fanned out to, by name. Required,
	// at least one entry.
	Feeds map[string]FeedFactory
	// Followers resolves the follower graph. Required.
	Followers FollowerResolver
	// Activities is the shared global activity storage. Required.
	Activities storage.IActivityStorage
	// Timelines is the timeline backend; one batch per chunk is created
	// on it. Required.
	Timelines storage.ITimelineStorage
	// Submitter defaults to a SyncSubmitter running jobs inline.
	Submitter JobSubmitter
	// Metrics defaults to the nop sink.
	Metrics metrics.IMetrics
	// Logger defaults to a nop logger.
	Logger zerolog.Logger
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int
	// FollowActivityLimit defaults to DefaultFollowActivityLimit.
	FollowActivityLimit int
}

// Manager propagates authored activities into follower feeds.
type Manager struct {
	userFeed    func(userID int64) (*feed.Feed, error)
	feeds       map[string]FeedFactory
	followers   FollowerResolver
	activities  storage.IActivityStorage
	timelines   storage.ITimelineStorage
	submitter   JobSubmitter
	metrics     metrics.IMetrics
	log         zerolog.Logger
	chunkSize   int
	followLimit int
}

// NewManager creates a fanout manager. When no submitter is configured
// jobs run inline.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	switch {
	case cfg.UserFeed == nil:
		return nil, fmt.Errorf("fanout config: user feed factory is required")
	case len(cfg.Feeds) == 0:
		return nil, fmt.Errorf("fanout config: at least one feed factory is required")
	case cfg.Followers == nil:
		return nil, fmt.Errorf("fanout config: follower resolver is required")
	case cfg.Activities == nil:
		return nil, fmt.Errorf("fanout config: activity storage is required")
	case cfg.Timelines == nil:
		return nil, fmt.Errorf("fanout config: timeline storage is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.FollowActivityLimit <= 0 {
		cfg.FollowActivityLimit = DefaultFollowActivityLimit
	}

	m := &Manager{
		userFeed:    cfg.UserFeed,
		feeds:       cfg.Feeds,
		followers:   cfg.Followers,
		activities:  cfg.Activities,
		timelines:   cfg.Timelines,
		submitter:   cfg.Submitter,
		metrics:     cfg.Metrics,
		log:         cfg.Logger.With().Str("component", "fanout").Logger(),
		chunkSize:   cfg.ChunkSize,
		followLimit: cfg.FollowActivityLimit,
	}
	if m.submitter == nil {
		m.submitter = &SyncSubmitter{Manager: m}
	}
	return m, nil
}

// --------------------------------------------------------------------------
// Publishing
// --------------------------------------------------------------------------

// AddUserActivity publishes one authored activity: the payload goes to
// the global storage, the author's own feed gets it immediately, and
// one fanout job per follower chunk and feed type is submitted.
func (m *Manager) AddUserActivity(userID int64, a activity.Activity) error {
	if err := feed.InsertActivities(m.activities, m.metrics, a); err != nil {
		return err
	}
	userFeed, err := m.userFeed(userID)
	if err != nil {
		return err
	}
	if err := userFeed.Add(a); err != nil {
		return err
	}
	return m.fanoutToFollowers(userID, AddOperation, []activity.Activity{a}, true)
}

// RemoveUserActivity retracts an activity from the author's feed and
// all follower feeds. Removal never trims, and the global payload is
// kept: other references may still be in flight.
func (m *Manager) RemoveUserActivity(userID int64, a activity.Activity) error {
	id, err := a.SerializationID()
	if err != nil {
		return err
	}
	userFeed, err := m.userFeed(userID)
	if err != nil {
		return err
	}
	if err := userFeed.Remove(id); err != nil {
		return err
	}
	return m.fanoutToFollowers(userID, RemoveOperation, []activity.Activity{a}, false)
}

// UpdateUserActivities re-publishes payloads of already fanned-out
// activities. Timelines reference activities by id only, so overwriting
// the global payload updates what every follower feed renders without
// touching a single timeline.
func (m *Manager) UpdateUserActivities(activities ...activity.Activity) error {
	return feed.InsertActivities(m.activities, m.metrics, activities...)
}

// BatchImport bulk-loads historical activities of one author. Each
// chunk is published and fanned out independently, so a crash mid-way
// leaves a valid, resumable prefix instead of a torn import.
func (m *Manager) BatchImport(userID int64, activities []activity.Activity, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = m.chunkSize
	}
	userFeed, err := m.userFeed(userID)
	if err != nil {
		return err
	}
	followers, err := m.followers(userID)
	if err != nil {
		return err
	}

	for _, chunk := range chunkActivities(activities, chunkSize) {
		if err := feed.InsertActivities(m.activities, m.metrics, chunk...); err != nil {
			return err
		}
		if err := userFeed.AddMany(chunk, false); err != nil {
			return err
		}
		for priority, followerIDs := range followers {
			for name := range m.feeds {
				if _, err := m.CreateFanoutTasks(followerIDs, name, AddOperation, chunk, false, priority); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// fanoutToFollowers submits jobs for every follower priority group and
// every configured feed type.
func (m *Manager) fanoutToFollowers(userID int64, op Operation, activities []activity.Activity, trim bool) error {
	followers, err := m.followers(userID)
	if err != nil {
		return err
	}
	for priority, followerIDs := range followers {
		for name := range m.feeds {
			if _, err := m.CreateFanoutTasks(followerIDs, name, op, activities, trim, priority); err != nil {
				return err
			}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Following
// --------------------------------------------------------------------------

// FollowUser backfills the follower's feeds with the target author's
// recent history, bounded by the follow activity limit.
func (m *Manager) FollowUser(followerID, targetID int64) error {
	return m.followOperation(followerID, targetID, AddOperation)
}

// UnfollowUser purges the target author's activities from the
// follower's feeds.
func (m *Manager) UnfollowUser(followerID, targetID int64) error {
	return m.followOperation(followerID, targetID, RemoveOperation)
}

// FollowManyUsers backfills from several authors at once, one job set
// per author.
func (m *Manager) FollowManyUsers(followerID int64, targetIDs []int64) error {
	for _, targetID := range targetIDs {
		if err := m.FollowUser(followerID, targetID); err != nil {
			return err
		}
	}
	return nil
}

// UnfollowManyUsers purges several authors at once.
func (m *Manager) UnfollowManyUsers(followerID int64, targetIDs []int64) error {
	for _, targetID := range targetIDs {
		if err := m.UnfollowUser(followerID, targetID); err != nil {
			return err
		}
	}
	return nil
}

// followOperation fans the target's history out to the single follower.
// Nobody is waiting on a backfill, so it goes to the low priority
// queue.
func (m *Manager) followOperation(followerID, targetID int64, op Operation) error {
	targetFeed, err := m.userFeed(targetID)
	if err != nil {
		return err
	}
	history, err := targetFeed.Slice(0, m.followLimit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}
	for name := range m.feeds {
		if _, err := m.CreateFanoutTasks([]int64{followerID}, name, op, history, false, PriorityLow); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Task Creation and Execution
// --------------------------------------------------------------------------

// CreateFanoutTasks chunks the follower ids and submits one job per
// chunk to the priority's queue. It returns the number of submitted
// jobs.
func (m *Manager) CreateFanoutTasks(followerIDs []int64, feedName string, op Operation, activities []activity.Activity, trim bool, priority Priority) (int, error) {
	if _, ok := m.feeds[feedName]; !ok {
		return 0, fmt.Errorf("fanout: unknown feed %q", feedName)
	}
	if len(followerIDs) == 0 || len(activities) == 0 {
		return 0, nil
	}

	chunks := chunkIDs(followerIDs, m.chunkSize)
	for _, chunk := range chunks {
		job := Job{
			Feed:       feedName,
			UserIDs:    chunk,
			Operation:  op,
			Activities: activities,
			Trim:       trim,
		}
		if err := m.submitter.Submit(priority.Queue(), job); err != nil {
			return 0, err
		}
	}
	m.log.Debug().
		Str("feed", feedName).
		Str("operation", op.Name).
		Int("followers", len(followerIDs)).
		Int("jobs", len(chunks)).
		Msg("submitted fanout tasks")
	return len(chunks), nil
}

// Run executes one job. Submitters call this from their workers.
func (m *Manager) Run(job Job) error {
	return m.Fanout(job.Feed, job.UserIDs, job.Operation, job.Activities, job.Trim)
}

// Fanout applies the operation to the named feed of every user,
// buffering all timeline writes of the chunk in one batch.
func (m *Manager) Fanout(feedName string, userIDs []int64, op Operation, activities []activity.Activity, trim bool) error {
	factory, ok := m.feeds[feedName]
	if !ok {
		return fmt.Errorf("fanout: unknown feed %q", feedName)
	}
	timer := m.metrics.FanoutTimer(feedName)
	defer timer.Stop()

	batch := m.timelines.NewBatch()
	defer batch.Close()

	for _, userID := range userIDs {
		target, err := factory(userID, batch)
		if err != nil {
			return err
		}
		if err := op.Apply(target, activities, trim); err != nil {
			return fmt.Errorf("fanout to user %d: %w", userID, err)
		}
	}
	if err := batch.Flush(); err != nil {
		return err
	}

	m.metrics.OnFanout(feedName, op.Name, len(activities)*len(userIDs))
	m.log.Debug().
		Str("feed", feedName).
		Str("operation", op.Name).
		Int("users", len(userIDs)).
		Int("activities", len(activities)).
		Msg("fanout chunk done")
	return nil
}

// --------------------------------------------------------------------------
// Chunking
// --------------------------------------------------------------------------

func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	return append(chunks, ids)
}

func chunkActivities(activities []activity.Activity, size int) [][]activity.Activity {
	var chunks [][]activity.Activity
	for len(activities) > size {
		chunks = append(chunks, activities[:size])
		activities = activities[size:]
	}
	return append(chunks, activities)
}
