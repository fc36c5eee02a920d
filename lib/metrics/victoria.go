package metrics

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// NewVictoriaMetrics creates a metrics sink backed by the
// VictoriaMetrics client library. All series carry the given prefix,
// eg. "dfeed". Expose them by wiring metrics.WritePrometheus into an
// http handler.
func NewVictoriaMetrics(prefix string) IMetrics {
	return &victoriaMetricsImpl{prefix: prefix}
}

// victoriaMetricsImpl implements the IMetrics interface
type victoriaMetricsImpl struct {
	prefix string
}

type victoriaTimer struct {
	summary *metrics.Summary
	start   time.Time
}

func (t *victoriaTimer) Stop() {
	t.summary.UpdateDuration(t.start)
}

func (m *victoriaMetricsImpl) counter(name, labels string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf("%s_%s{%s}", m.prefix, name, labels))
}

func (m *victoriaMetricsImpl) summary(name, labels string) *metrics.Summary {
	return metrics.GetOrCreateSummary(fmt.Sprintf("%s_%s{%s}", m.prefix, name, labels))
}

// --------------------------------------------------------------------------
// Interface Methods (docu see metrics.IMetrics)
// --------------------------------------------------------------------------

func (m *victoriaMetricsImpl) FanoutTimer(feed string) ITimer {
	return &victoriaTimer{
		summary: m.summary("fanout_duration_seconds", fmt.Sprintf("feed=%q", feed)),
		start:   time.Now(),
	}
}

func (m *victoriaMetricsImpl) FeedReadsTimer(feed string) ITimer {
	return &victoriaTimer{
		summary: m.summary("feed_read_duration_seconds", fmt.Sprintf("feed=%q", feed)),
		start:   time.Now(),
	}
}

func (m *victoriaMetricsImpl) OnFeedRead(feed string, count int) {
	m.counter("feed_reads_total", fmt.Sprintf("feed=%q", feed)).Add(count)
}

func (m *victoriaMetricsImpl) OnFeedWrite(feed string, count int) {
	m.counter("feed_writes_total", fmt.Sprintf("feed=%q", feed)).Add(count)
}

func (m *victoriaMetricsImpl) OnFeedRemove(feed string, count int) {
	m.counter("feed_removes_total", fmt.Sprintf("feed=%q", feed)).Add(count)
}

func (m *victoriaMetricsImpl) OnFanout(feed, operation string, count int) {
	m.counter("fanout_total", fmt.Sprintf("feed=%q,operation=%q", feed, operation)).Add(count)
}

func (m *victoriaMetricsImpl) OnActivityPublished() {
	metrics.GetOrCreateCounter(m.prefix + "_activities_published_total").Inc()
}

func (m *victoriaMetricsImpl) OnActivityRemoved() {
	metrics.GetOrCreateCounter(m.prefix + "_activities_removed_total").Inc()
}
