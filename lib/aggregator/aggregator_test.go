package aggregator

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

var testTime = time.Date(2013, 7, 8, 7, 39, 15, 0, time.UTC)

func testActivity(i int, verb activity.Verb) activity.Activity {
	return activity.Activity{
		ActorID:  int64(100 + i),
		Verb:     verb,
		ObjectID: int64(i),
		Time:     testTime.Add(time.Duration(i) * time.Minute),
	}
}

// TestAggregateGrouping tests grouping by verb and day.
func TestAggregateGrouping(t *testing.T) {
	ag := NewRecentVerbAggregator()

	acts := []activity.Activity{
		testActivity(1, activity.VerbLove),
		testActivity(2, activity.VerbLove),
		testActivity(3, activity.VerbComment),
		// next day, same verb -> separate group
		{ActorID: 9, Verb: activity.VerbLove, ObjectID: 9, Time: testTime.Add(24 * time.Hour)},
	}

	aggs, err := ag.Aggregate(acts)
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}
	if len(aggs) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(aggs))
	}

	// ranked most recently updated first
	for i := 1; i < len(aggs); i++ {
		if aggs[i-1].UpdatedAt.Before(aggs[i].UpdatedAt) {
			t.Errorf("Aggregates not ranked by recency: %v before %v", aggs[i-1].UpdatedAt, aggs[i].UpdatedAt)
		}
	}

	// inner activities oldest to newest
	for _, agg := range aggs {
		for i := 1; i < len(agg.Activities); i++ {
			prev := agg.Activities[i-1].MustSerializationID()
			cur := agg.Activities[i].MustSerializationID()
			if cur.Less(prev) {
				t.Errorf("Inner activities of %q not ascending", agg.Group)
			}
		}
	}
}

// TestAggregateIdempotent tests that duplicate input activities
// collapse silently.
func TestAggregateIdempotent(t *testing.T) {
	ag := NewRecentVerbAggregator()
	a := testActivity(1, activity.VerbLove)

	aggs, err := ag.Aggregate([]activity.Activity{a, a, a})
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}
	if len(aggs) != 1 || aggs[0].Len() != 1 {
		t.Errorf("Expected one group with one activity, got %d groups", len(aggs))
	}
}

// TestMergeNewGroup tests that activities for an unknown group come
// back as new aggregates.
func TestMergeNewGroup(t *testing.T) {
	ag := NewRecentVerbAggregator()

	newAggs, changed, deleted, err := ag.Merge(nil, []activity.Activity{testActivity(1, activity.VerbLove)})
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if len(newAggs) != 1 || len(changed) != 0 || len(deleted) != 0 {
		t.Errorf("Expected 1 new, 0 changed, 0 deleted; got %d/%d/%d", len(newAggs), len(changed), len(deleted))
	}
}

// TestMergeChangedGroup tests the (old, new) pair for an existing
// group, and that the stored aggregate is not mutated.
func TestMergeChangedGroup(t *testing.T) {
	ag := NewRecentVerbAggregator()

	stored, err := ag.Aggregate([]activity.Activity{testActivity(1, activity.VerbLove)})
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}

	newAggs, changed, _, err := ag.Merge(stored, []activity.Activity{testActivity(2, activity.VerbLove)})
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if len(newAggs) != 0 {
		t.Errorf("Expected no new aggregates, got %d", len(newAggs))
	}
	if len(changed) != 1 {
		t.Fatalf("Expected 1 changed pair, got %d", len(changed))
	}

	pair := changed[0]
	if pair.Old.Len() != 1 {
		t.Errorf("The stored aggregate was mutated, len=%d", pair.Old.Len())
	}
	if pair.New.Len() != 2 {
		t.Errorf("Expected the new aggregate to hold 2 activities, got %d", pair.New.Len())
	}
	if pair.Old == pair.New {
		t.Error("Old and New must be distinct values")
	}
}

// TestMergeDuplicate tests that re-merging a known activity yields no
// diff at all.
func TestMergeDuplicate(t *testing.T) {
	ag := NewRecentVerbAggregator()
	a := testActivity(1, activity.VerbLove)

	stored, err := ag.Aggregate([]activity.Activity{a})
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}

	newAggs, changed, _, err := ag.Merge(stored, []activity.Activity{a})
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if len(newAggs) != 0 || len(changed) != 0 {
		t.Errorf("Merging a duplicate should be a no-op, got %d new / %d changed", len(newAggs), len(changed))
	}
}

// TestNotificationGroup tests that different objects never share a
// notification group.
func TestNotificationGroup(t *testing.T) {
	ag := NewNotificationAggregator()

	aggs, err := ag.Aggregate([]activity.Activity{
		testActivity(1, activity.VerbLove),
		testActivity(2, activity.VerbLove),
	})
	if err != nil {
		t.Fatalf("Aggregate() failed: %v", err)
	}
	if len(aggs) != 2 {
		t.Errorf("Different objects must yield different groups, got %d", len(aggs))
	}
}
