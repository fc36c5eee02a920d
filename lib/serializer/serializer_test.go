package serializer

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

var testTime = time.Date(2013, 7, 8, 7, 39, 15, 0, time.UTC)

// testSerializers is a map of codec name to factory function
var testSerializers = map[string]func(*activity.VerbRegistry) IActivitySerializer{
	"CSV":  NewCSVSerializer,
	"JSON": NewJSONSerializer,
}

// testActivities creates a set of test activities with different fields filled
func testActivities() []activity.Activity {
	return []activity.Activity{
		// basic activity
		{ActorID: 1, Verb: activity.VerbLove, ObjectID: 42, Time: testTime},

		// with target
		{ActorID: 2, Verb: activity.VerbFollow, ObjectID: 3, TargetID: 4, Time: testTime},

		// with extra context
		{
			ActorID:  5,
			Verb:     activity.VerbComment,
			ObjectID: 6,
			Time:     testTime.Add(90 * time.Minute),
			Extra:    map[string]string{"text": "hello, world", "lang": "en"},
		},
	}
}

// TestActivityRoundTrip tests that activities survive dumps/loads with
// every codec.
func TestActivityRoundTrip(t *testing.T) {
	registry := activity.DefaultRegistry()
	acts := testActivities()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			codec := factory(registry)

			for i, act := range acts {
				s, err := codec.Dumps(act)
				if err != nil {
					t.Errorf("Failed to serialize activity %d: %v", i, err)
					continue
				}

				result, err := codec.Loads(s)
				if err != nil {
					t.Errorf("Failed to deserialize activity %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(act, result) {
					t.Errorf("Activity %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, act, result)
				}
			}
		})
	}
}

// TestActivityUnknownVerb tests that loading a row with an unregistered
// verb id fails instead of inventing a verb.
func TestActivityUnknownVerb(t *testing.T) {
	registry := activity.DefaultRegistry()
	strange := activity.Verb{ID: 999, Infinitive: "defenestrate", PastTense: "defenestrated"}
	act := activity.Activity{ActorID: 1, Verb: strange, ObjectID: 1, Time: testTime}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			codec := factory(registry)
			s, err := codec.Dumps(act)
			if err != nil {
				t.Fatalf("Dumps() failed: %v", err)
			}
			if _, err := codec.Loads(s); err == nil {
				t.Error("Expected an error for an unregistered verb id, got none")
			}
		})
	}
}

// TestTimelineSerializer tests the id-only codec.
func TestTimelineSerializer(t *testing.T) {
	codec := NewTimelineSerializer()
	act := activity.Activity{ActorID: 1, Verb: activity.VerbLove, ObjectID: 42, Time: testTime}

	s, err := codec.Dumps(act)
	if err != nil {
		t.Fatalf("Dumps() failed: %v", err)
	}
	if want := "13732667550000000000042003"; s != want {
		t.Errorf("Expected %s, got %s", want, s)
	}

	d, err := codec.Loads(s)
	if err != nil {
		t.Fatalf("Loads() failed: %v", err)
	}
	if d.ID != act.MustSerializationID() {
		t.Errorf("Expected id %s, got %s", act.MustSerializationID(), d.ID)
	}

	if _, err := codec.Loads(""); err == nil {
		t.Error("Expected an error for an empty entry, got none")
	}
}

// testAggregated builds a two-activity aggregate with deterministic
// timestamps.
func testAggregated(t *testing.T) *activity.AggregatedActivity {
	t.Helper()
	agg := activity.NewAggregatedActivity("3-2013-07-08")
	acts := []activity.Activity{
		{ActorID: 1, Verb: activity.VerbLove, ObjectID: 42, Time: testTime},
		{ActorID: 2, Verb: activity.VerbLove, ObjectID: 43, Time: testTime.Add(time.Minute)},
	}
	for _, act := range acts {
		if err := agg.Append(act); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}
	return agg
}

// TestAggregatedGolden pins the exact v3 wire format.
func TestAggregatedGolden(t *testing.T) {
	registry := activity.DefaultRegistry()
	codec := NewAggregatedSerializer(NewCSVSerializer(registry))

	agg := testAggregated(t)
	s, err := codec.Dumps(agg)
	if err != nil {
		t.Fatalf("Dumps() failed: %v", err)
	}

	want := "v33-2013-07-08" +
		";;1373266755.000000;;1373266815.000000;;-1;;-1" +
		";;13732667550000000000042003;13732668150000000000043003" +
		";;0"
	if s != want {
		t.Errorf("Wire format changed:\nExpected: %s\nGot:      %s", want, s)
	}
}

// TestAggregatedRoundTrip tests the dehydrating codec round trip.
func TestAggregatedRoundTrip(t *testing.T) {
	registry := activity.DefaultRegistry()
	codec := NewAggregatedSerializer(NewCSVSerializer(registry))

	agg := testAggregated(t)
	agg.SeenAt = testTime.Add(2 * time.Minute)
	agg.MinimizedActivities = 7

	s, err := codec.Dumps(agg)
	if err != nil {
		t.Fatalf("Dumps() failed: %v", err)
	}
	result, err := codec.Loads(s)
	if err != nil {
		t.Fatalf("Loads() failed: %v", err)
	}

	if result.Group != agg.Group {
		t.Errorf("Expected group %q, got %q", agg.Group, result.Group)
	}
	if !result.Dehydrated {
		t.Error("The aggregated codec should load dehydrated aggregates")
	}
	if !result.EqualActivities(agg) {
		t.Errorf("Inner ids don't match: %v vs %v", result.IDs(), agg.IDs())
	}
	if result.MinimizedActivities != 7 {
		t.Errorf("Expected 7 minimized activities, got %d", result.MinimizedActivities)
	}
	if !result.CreatedAt.Equal(agg.CreatedAt) || !result.UpdatedAt.Equal(agg.UpdatedAt) {
		t.Error("Timestamps don't survive the round trip")
	}
	if !result.SeenAt.Equal(agg.SeenAt) {
		t.Errorf("Expected seen at %v, got %v", agg.SeenAt, result.SeenAt)
	}
	if !result.ReadAt.IsZero() {
		t.Errorf("Expected zero read at, got %v", result.ReadAt)
	}
}

// TestNotificationRoundTrip tests the fully-serialized codec used by
// notification feeds.
func TestNotificationRoundTrip(t *testing.T) {
	registry := activity.DefaultRegistry()
	codec := NewNotificationSerializer(NewCSVSerializer(registry))

	agg := testAggregated(t)
	s, err := codec.Dumps(agg)
	if err != nil {
		t.Fatalf("Dumps() failed: %v", err)
	}

	result, err := codec.Loads(s)
	if err != nil {
		t.Fatalf("Loads() failed: %v", err)
	}
	if result.Dehydrated {
		t.Error("The notification codec should load hydrated aggregates")
	}
	if len(result.Activities) != 2 {
		t.Fatalf("Expected 2 inner activities, got %d", len(result.Activities))
	}
	if !result.Activities[0].Equal(agg.Activities[0]) {
		t.Errorf("Inner activity doesn't match: %+v vs %+v", result.Activities[0], agg.Activities[0])
	}
}

// TestAggregatedReservedGroup tests the reserved character check on the
// group key.
func TestAggregatedReservedGroup(t *testing.T) {
	registry := activity.DefaultRegistry()
	codec := NewAggregatedSerializer(NewCSVSerializer(registry))

	agg := testAggregated(t)
	agg.Group = "bad;;group"

	_, err := codec.Dumps(agg)
	var se *SerializationError
	if !errors.As(err, &se) {
		t.Errorf("Expected a SerializationError, got %v", err)
	}
}

// TestAggregatedUnknownFormat tests the version prefix check.
func TestAggregatedUnknownFormat(t *testing.T) {
	codec := NewAggregatedSerializer(NewCSVSerializer(activity.DefaultRegistry()))
	if _, err := codec.Loads("v9nope"); err == nil {
		t.Error("Expected an error for an unknown format version, got none")
	}
}
