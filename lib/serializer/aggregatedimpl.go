package serializer

import (
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

// aggregatedIdentifier is the format version prefix of stored
// aggregated activities.
const aggregatedIdentifier = "v3"

// NewAggregatedSerializer creates the "v3" aggregated activity codec.
//
// Layout (";;" separated, after the "v3" prefix):
//   - group key
//   - created_at, updated_at, seen_at, read_at (epoch seconds, -1 = null)
//   - inner activities (";" separated)
//   - minimized activity count
//
// The inner activities are stored dehydrated: only their ids. The
// activity codec is still required for loads symmetry with
// NewNotificationSerializer.
func NewAggregatedSerializer(activitySerializer IActivitySerializer) IAggregatedSerializer {
	return &aggregatedSerializerImpl{
		activitySerializer: activitySerializer,
		dehydrate:          true,
	}
}

// NewNotificationSerializer creates the aggregated codec used by
// notification feeds. Identical to the "v3" format except the inner
// activities are stored fully serialized, so notifications render
// without a hydration round trip.
func NewNotificationSerializer(activitySerializer IActivitySerializer) IAggregatedSerializer {
	return &aggregatedSerializerImpl{
		activitySerializer: activitySerializer,
		dehydrate:          false,
	}
}

// aggregatedSerializerImpl implements the IAggregatedSerializer
// interface using the "v3" format
type aggregatedSerializerImpl struct {
	activitySerializer IActivitySerializer
	dehydrate          bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IAggregatedSerializer)
// --------------------------------------------------------------------------

func (a *aggregatedSerializerImpl) Dumps(agg *activity.AggregatedActivity) (string, error) {
	if err := checkReserved(agg.Group, ";;"); err != nil {
		return "", err
	}

	parts := []string{
		agg.Group,
		formatNullableEpoch(agg.CreatedAt),
		formatNullableEpoch(agg.UpdatedAt),
		formatNullableEpoch(agg.SeenAt),
		formatNullableEpoch(agg.ReadAt),
	}

	var inner []string
	if a.dehydrate {
		for _, id := range agg.IDs() {
			inner = append(inner, string(id))
		}
	} else {
		if agg.Dehydrated {
			return "", NewSerializationError("cannot fully serialize dehydrated group %q", agg.Group)
		}
		for _, act := range agg.Activities {
			s, err := a.activitySerializer.Dumps(act)
			if err != nil {
				return "", err
			}
			if err := checkReserved(s, ";", ";;"); err != nil {
				return "", err
			}
			inner = append(inner, s)
		}
	}
	parts = append(parts, strings.Join(inner, ";"))
	parts = append(parts, strconv.Itoa(agg.MinimizedActivities))

	return aggregatedIdentifier + strings.Join(parts, ";;"), nil
}

func (a *aggregatedSerializerImpl) Loads(s string) (*activity.AggregatedActivity, error) {
	if !strings.HasPrefix(s, aggregatedIdentifier) {
		return nil, NewSerializationError("unknown aggregated format %q", firstN(s, 2))
	}
	parts := strings.Split(s[len(aggregatedIdentifier):], ";;")
	if len(parts) != 7 {
		return nil, NewSerializationError("expected 7 parts, got %d", len(parts))
	}

	agg := activity.NewAggregatedActivity(parts[0])

	dates := []*time.Time{&agg.CreatedAt, &agg.UpdatedAt, &agg.SeenAt, &agg.ReadAt}
	for i, dst := range dates {
		t, err := parseNullableEpoch(parts[1+i])
		if err != nil {
			return nil, err
		}
		*dst = t
	}

	if parts[5] != "" {
		for _, inner := range strings.Split(parts[5], ";") {
			if a.dehydrate {
				agg.ActivityIDs = append(agg.ActivityIDs, activity.ID(inner))
			} else {
				act, err := a.activitySerializer.Loads(inner)
				if err != nil {
					return nil, err
				}
				agg.Activities = append(agg.Activities, act)
			}
		}
	}
	agg.Dehydrated = a.dehydrate

	minimized, err := strconv.Atoi(parts[6])
	if err != nil {
		return nil, NewSerializationError("parsing minimized count %q: %v", parts[6], err)
	}
	agg.MinimizedActivities = minimized

	return agg, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// formatNullableEpoch renders a timestamp as epoch seconds, using -1 for
// the zero time.
func formatNullableEpoch(t time.Time) string {
	if t.IsZero() {
		return "-1"
	}
	return formatEpoch(t)
}

// parseNullableEpoch is the inverse of formatNullableEpoch.
func parseNullableEpoch(s string) (time.Time, error) {
	if s == "-1" {
		return time.Time{}, nil
	}
	return parseEpoch(s)
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
