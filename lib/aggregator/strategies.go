package aggregator

import (
	"fmt"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

// groupDateLayout is the day granularity used by the built-in
// strategies.
const groupDateLayout = "2006-01-02"

// RecentVerbGroup groups activities by verb and day. The typical choice
// for aggregated feeds: "X, Y and 3 others loved your photo today".
func RecentVerbGroup(a activity.Activity) string {
	return fmt.Sprintf("%d-%s", a.Verb.ID, a.Time.Format(groupDateLayout))
}

// NotificationGroup groups activities by verb, object and day, so
// interactions with different objects never collapse into one
// notification.
func NotificationGroup(a activity.Activity) string {
	return fmt.Sprintf("%d-%d-%s", a.Verb.ID, a.ObjectID, a.Time.Format(groupDateLayout))
}

// NewRecentVerbAggregator creates the default aggregator for aggregated
// feeds.
func NewRecentVerbAggregator() *Aggregator {
	return New(RecentVerbGroup)
}

// NewNotificationAggregator creates the default aggregator for
// notification feeds.
func NewNotificationAggregator() *Aggregator {
	return New(NotificationGroup)
}
