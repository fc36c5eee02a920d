package metrics

// ITimer measures one operation. Obtain it right before the work and
// call Stop when done.
type ITimer interface {
	Stop()
}

// IMetrics is the instrumentation surface of the feed engine. The feed
// argument is a short feed kind label such as "flat", "aggregated" or
// "notification".
type IMetrics interface {
	// FanoutTimer times one fanout task.
	FanoutTimer(feed string) ITimer
	// FeedReadsTimer times one slice read.
	FeedReadsTimer(feed string) ITimer

	// OnFeedRead counts activities returned by slice reads.
	OnFeedRead(feed string, count int)
	// OnFeedWrite counts activities written into timelines.
	OnFeedWrite(feed string, count int)
	// OnFeedRemove counts activities removed from timelines.
	OnFeedRemove(feed string, count int)

	// OnFanout counts per-follower feed operations of a fanout task.
	OnFanout(feed, operation string, count int)

	// OnActivityPublished counts globally published activities.
	OnActivityPublished()
	// OnActivityRemoved counts globally removed activities.
	OnActivityRemoved()
}

// --------------------------------------------------------------------------
// Nop Implementation
// --------------------------------------------------------------------------

// NewNop creates a metrics sink that discards everything.
func NewNop() IMetrics {
	return nopMetrics{}
}

type nopTimer struct{}

func (nopTimer) Stop() {}

// nopMetrics implements the IMetrics interface doing nothing
type nopMetrics struct{}

func (nopMetrics) FanoutTimer(string) ITimer          { return nopTimer{} }
func (nopMetrics) FeedReadsTimer(string) ITimer       { return nopTimer{} }
func (nopMetrics) OnFeedRead(string, int)             {}
func (nopMetrics) OnFeedWrite(string, int)            {}
func (nopMetrics) OnFeedRemove(string, int)           {}
func (nopMetrics) OnFanout(string, string, int)       {}
func (nopMetrics) OnActivityPublished()               {}
func (nopMetrics) OnActivityRemoved()                 {}
