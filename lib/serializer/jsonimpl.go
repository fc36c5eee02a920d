package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

// NewJSONSerializer creates an activity codec using json encoding.
// Larger than the csv format but human readable, useful for debugging
// and for interoperability with other systems.
func NewJSONSerializer(registry *activity.VerbRegistry) IActivitySerializer {
	return &jsonSerializerImpl{registry: registry}
}

// jsonSerializerImpl implements the IActivitySerializer interface using
// json encoding
type jsonSerializerImpl struct {
	registry *activity.VerbRegistry
}

// jsonActivity is the wire form. The verb is stored as its id only and
// restored via the registry on load.
type jsonActivity struct {
	ActorID  int64             `json:"actor_id"`
	VerbID   int               `json:"verb_id"`
	ObjectID int64             `json:"object_id"`
	TargetID int64             `json:"target_id,omitempty"`
	Time     string            `json:"time"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IActivitySerializer)
// --------------------------------------------------------------------------

func (j *jsonSerializerImpl) Dumps(a activity.Activity) (string, error) {
	if _, err := a.SerializationID(); err != nil {
		return "", err
	}
	b, err := json.Marshal(jsonActivity{
		ActorID:  a.ActorID,
		VerbID:   a.Verb.ID,
		ObjectID: a.ObjectID,
		TargetID: a.TargetID,
		Time:     formatEpoch(a.Time),
		Extra:    a.Extra,
	})
	if err != nil {
		return "", NewSerializationError("encoding activity: %v", err)
	}
	return string(b), nil
}

func (j *jsonSerializerImpl) Loads(s string) (activity.Activity, error) {
	var wire jsonActivity
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return activity.Activity{}, NewSerializationError("decoding activity: %v", err)
	}
	t, err := parseEpoch(wire.Time)
	if err != nil {
		return activity.Activity{}, err
	}
	verb, ok := j.registry.ByID(wire.VerbID)
	if !ok {
		return activity.Activity{}, NewSerializationError("verb id %d is not registered", wire.VerbID)
	}
	return activity.Activity{
		ActorID:  wire.ActorID,
		Verb:     verb,
		ObjectID: wire.ObjectID,
		TargetID: wire.TargetID,
		Time:     t,
		Extra:    wire.Extra,
	}, nil
}
