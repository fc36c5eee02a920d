package serializer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

// NewCSVSerializer creates a compact comma separated activity codec.
//
// Serialization consists of 6 parts:
//   - actor id
//   - verb id
//   - object id
//   - target id (0 when absent)
//   - time (epoch seconds with 6 decimal places)
//   - extra context (JSON, empty when absent)
//
// The verb registry is used on load to restore the full verb from the
// stored id.
func NewCSVSerializer(registry *activity.VerbRegistry) IActivitySerializer {
	return &csvSerializerImpl{registry: registry}
}

// csvSerializerImpl implements the IActivitySerializer interface using a
// comma separated format
type csvSerializerImpl struct {
	registry *activity.VerbRegistry
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IActivitySerializer)
// --------------------------------------------------------------------------

func (c *csvSerializerImpl) Dumps(a activity.Activity) (string, error) {
	if _, err := a.SerializationID(); err != nil {
		return "", err
	}

	extra := ""
	if len(a.Extra) > 0 {
		b, err := json.Marshal(a.Extra)
		if err != nil {
			return "", NewSerializationError("encoding extra context: %v", err)
		}
		extra = string(b)
	}

	parts := []string{
		strconv.FormatInt(a.ActorID, 10),
		strconv.Itoa(a.Verb.ID),
		strconv.FormatInt(a.ObjectID, 10),
		strconv.FormatInt(a.TargetID, 10),
		formatEpoch(a.Time),
		extra,
	}
	return strings.Join(parts, ","), nil
}

func (c *csvSerializerImpl) Loads(s string) (activity.Activity, error) {
	// the extra context may itself contain commas, so split at most once
	// per structural field
	parts := strings.SplitN(s, ",", 6)
	if len(parts) != 6 {
		return activity.Activity{}, NewSerializationError("expected 6 parts, got %d", len(parts))
	}

	actorID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return activity.Activity{}, NewSerializationError("parsing actor id %q: %v", parts[0], err)
	}
	verbID, err := strconv.Atoi(parts[1])
	if err != nil {
		return activity.Activity{}, NewSerializationError("parsing verb id %q: %v", parts[1], err)
	}
	objectID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return activity.Activity{}, NewSerializationError("parsing object id %q: %v", parts[2], err)
	}
	targetID, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return activity.Activity{}, NewSerializationError("parsing target id %q: %v", parts[3], err)
	}
	t, err := parseEpoch(parts[4])
	if err != nil {
		return activity.Activity{}, err
	}

	verb, ok := c.registry.ByID(verbID)
	if !ok {
		return activity.Activity{}, NewSerializationError("verb id %d is not registered", verbID)
	}

	var extra map[string]string
	if parts[5] != "" {
		if err := json.Unmarshal([]byte(parts[5]), &extra); err != nil {
			return activity.Activity{}, NewSerializationError("decoding extra context: %v", err)
		}
	}

	return activity.Activity{
		ActorID:  actorID,
		Verb:     verb,
		ObjectID: objectID,
		TargetID: targetID,
		Time:     t,
		Extra:    extra,
	}, nil
}

// --------------------------------------------------------------------------
// Epoch Helpers
// --------------------------------------------------------------------------

// formatEpoch renders a time as epoch seconds with microsecond
// precision, eg "1373266755.000000".
func formatEpoch(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

// parseEpoch is the inverse of formatEpoch.
func parseEpoch(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, NewSerializationError("parsing epoch %q: %v", s, err)
	}
	return time.UnixMicro(int64(f * 1e6)).UTC(), nil
}
