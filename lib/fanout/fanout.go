package fanout

import (
	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/storage"
)

// --------------------------------------------------------------------------
// Priorities
// --------------------------------------------------------------------------

// Priority selects the task queue a fanout job goes to. Follower sets
// are resolved per priority so that, for example, the feeds of highly
// active users can be served before the long tail.
type Priority int

const (
	// PriorityNormal is the default queue.
	PriorityNormal Priority = iota
	// PriorityLow is for work nobody is waiting on (removals, backfills).
	PriorityLow
	// PriorityHigh is for followers that should see the activity first.
	PriorityHigh
)

// Queue returns the task queue name of the priority.
func (p Priority) Queue() string {
	switch p {
	case PriorityHigh:
		return "fanout_operation_hi_priority"
	case PriorityLow:
		return "fanout_operation_low_priority"
	default:
		return "fanout_operation"
	}
}

// --------------------------------------------------------------------------
// Targets and Operations
// --------------------------------------------------------------------------

// Target is a follower feed as the fanout sees it: something activities
// can be added to and removed from. *feed.Feed, *feed.AggregatedFeed
// and *feed.NotificationFeed all satisfy it.
type Target interface {
	AddActivities(activities []activity.Activity, trim bool) error
	RemoveActivities(activities []activity.Activity, trim bool) error
}

// FeedFactory builds the feed of one user. A non-nil batch must be
// attached to the returned target so the whole chunk flushes together
// (feed types do this via WithBatch).
type FeedFactory func(userID int64, batch storage.Batch) (Target, error)

// FollowerResolver returns the follower ids of a user grouped by
// priority. It is an external collaborator: the social graph is not
// part of this engine.
type FollowerResolver func(userID int64) (map[Priority][]int64, error)

// Operation is what a fanout job does to each target feed.
type Operation struct {
	// Name tags metrics and logs.
	Name string
	// Apply performs the operation on one target.
	Apply func(target Target, activities []activity.Activity, trim bool) error
}

// AddOperation appends the activities to the target.
var AddOperation = Operation{
	Name: "add",
	Apply: func(target Target, activities []activity.Activity, trim bool) error {
		return target.AddActivities(activities, trim)
	},
}

// RemoveOperation removes the activities from the target. Removal never
// trims.
var RemoveOperation = Operation{
	Name: "remove",
	Apply: func(target Target, activities []activity.Activity, _ bool) error {
		return target.RemoveActivities(activities, false)
	},
}

// --------------------------------------------------------------------------
// Jobs
// --------------------------------------------------------------------------

// Job is one chunk of fanout work: apply Operation with Activities to
// the named feed of every user in UserIDs.
type Job struct {
	Feed       string
	UserIDs    []int64
	Operation  Operation
	Activities []activity.Activity
	Trim       bool
}

// JobSubmitter hands jobs to the task-execution runtime. Submissions
// must not block on the job finishing.
type JobSubmitter interface {
	// Submit enqueues the job on the named queue.
	Submit(queue string, job Job) error
}

// SyncSubmitter executes every job inline on the given manager instead
// of enqueueing it. It is the default submitter and what tests use; a
// production deployment replaces it with a real queue client.
type SyncSubmitter struct {
	Manager *Manager
}

// Submit runs the job immediately. The queue name is ignored.
func (s *SyncSubmitter) Submit(_ string, job Job) error {
	return s.Manager.Run(job)
}
