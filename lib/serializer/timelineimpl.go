package serializer

import (
	"github.com/ValentinKolb/dFeed/lib/activity"
)

// ITimelineSerializer is the interface for timeline entry codecs.
// Timelines store only the serialization id; the full payload lives in
// the global activity storage.
type ITimelineSerializer interface {
	// Dumps serializes an activity down to its id.
	Dumps(a activity.Activity) (string, error)
	// Loads restores the id-only stand-in from a stored string.
	Loads(s string) (activity.DehydratedActivity, error)
}

// NewTimelineSerializer creates the id-only timeline codec.
func NewTimelineSerializer() ITimelineSerializer {
	return &timelineSerializerImpl{}
}

// timelineSerializerImpl implements the ITimelineSerializer interface
type timelineSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ITimelineSerializer)
// --------------------------------------------------------------------------

func (t *timelineSerializerImpl) Dumps(a activity.Activity) (string, error) {
	id, err := a.SerializationID()
	if err != nil {
		return "", err
	}
	return string(id), nil
}

func (t *timelineSerializerImpl) Loads(s string) (activity.DehydratedActivity, error) {
	if s == "" {
		return activity.DehydratedActivity{}, NewSerializationError("empty timeline entry")
	}
	return activity.DehydratedActivity{ID: activity.ID(s)}, nil
}
