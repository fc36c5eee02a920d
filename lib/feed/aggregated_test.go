package feed

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/aggregator"
	"github.com/ValentinKolb/dFeed/lib/serializer"
)

// newTestAggregatedFeed wires an aggregated feed on fresh in-memory
// storages.
func newTestAggregatedFeed(t *testing.T) *AggregatedFeed {
	t.Helper()
	registry := activity.DefaultRegistry()
	f, err := NewAggregatedFeed(
		newTestConfig(),
		1,
		aggregator.NewRecentVerbAggregator(),
		serializer.NewAggregatedSerializer(serializer.NewCSVSerializer(registry)),
	)
	if err != nil {
		t.Fatalf("NewAggregatedFeed() failed: %v", err)
	}
	return f
}

// TestAggregatedFeedMerge tests that consecutive writes to the same
// group merge into one stored aggregate.
func TestAggregatedFeedMerge(t *testing.T) {
	f := newTestAggregatedFeed(t)

	if err := f.AddMany([]activity.Activity{testActivity(1)}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := f.AddMany([]activity.Activity{testActivity(2)}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	// same verb, same day: one aggregate, and the old row is replaced
	n, err := f.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 stored aggregate, got %d", n)
	}

	aggs, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(aggs) != 1 {
		t.Fatalf("Expected 1 aggregate, got %d", len(aggs))
	}
	if aggs[0].Len() != 2 {
		t.Errorf("Expected 2 hydrated inner activities, got %d", aggs[0].Len())
	}
	if aggs[0].ActorCount() != 2 {
		t.Errorf("Expected 2 actors, got %d", aggs[0].ActorCount())
	}
}

// TestAggregatedFeedSeparateGroups tests that different verbs stay in
// separate aggregates, newest group first.
func TestAggregatedFeedSeparateGroups(t *testing.T) {
	f := newTestAggregatedFeed(t)

	love := testActivity(1)
	comment := activity.Activity{
		ActorID:  7,
		Verb:     activity.VerbComment,
		ObjectID: 7,
		Time:     testTime.Add(time.Hour),
	}
	if err := f.AddMany([]activity.Activity{love, comment}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	aggs, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(aggs) != 2 {
		t.Fatalf("Expected 2 aggregates, got %d", len(aggs))
	}
	// the comment group is newer and must come first
	if aggs[0].Verb() != activity.VerbComment {
		t.Errorf("Expected the comment group first, got %q", aggs[0].Verb())
	}
}

// TestAggregatedFeedSameSecondGroups tests that two groups updated
// within the same second both survive: their aggregate ids collide
// because the id only has second resolution, so the timeline rows must
// be told apart by payload.
func TestAggregatedFeedSameSecondGroups(t *testing.T) {
	f := newTestAggregatedFeed(t)

	love := testActivity(1)
	comment := love
	comment.Verb = activity.VerbComment
	if err := f.AddMany([]activity.Activity{love, comment}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	n, err := f.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 stored aggregates (two groups), got %d", n)
	}

	// removing one group's activity must not touch the other group
	if err := f.RemoveMany([]activity.ID{love.MustSerializationID()}); err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}
	aggs, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(aggs) != 1 {
		t.Fatalf("Expected 1 surviving aggregate, got %d", len(aggs))
	}
	if aggs[0].Verb() != activity.VerbComment {
		t.Errorf("Expected the comment group to survive, got %q", aggs[0].Verb())
	}
}

// TestAggregatedFeedDuplicate tests that re-adding a known activity
// changes nothing.
func TestAggregatedFeedDuplicate(t *testing.T) {
	f := newTestAggregatedFeed(t)
	a := testActivity(1)

	if err := f.AddMany([]activity.Activity{a}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := f.AddMany([]activity.Activity{a}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	aggs, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(aggs) != 1 || aggs[0].Len() != 1 {
		t.Errorf("Duplicate add must be a no-op, got %d aggregates", len(aggs))
	}
}

// TestAggregatedFeedRemovePartial tests removing one activity out of a
// multi-activity aggregate.
func TestAggregatedFeedRemovePartial(t *testing.T) {
	f := newTestAggregatedFeed(t)
	a1, a2 := testActivity(1), testActivity(2)

	if err := f.AddMany([]activity.Activity{a1, a2}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := f.RemoveMany([]activity.ID{a2.MustSerializationID()}); err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}

	aggs, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(aggs) != 1 {
		t.Fatalf("Expected the aggregate to survive, got %d", len(aggs))
	}
	if aggs[0].Len() != 1 {
		t.Errorf("Expected 1 remaining inner activity, got %d", aggs[0].Len())
	}
	if aggs[0].Contains(a2.MustSerializationID()) {
		t.Error("The removed activity must be gone")
	}
}

// TestAggregatedFeedRemoveBeyondMergeWindow tests that removal reaches
// aggregates that have scrolled past the merge read-back window: the
// removal scan covers the whole retained feed, not just the newest
// mergeMaxLength aggregates.
func TestAggregatedFeedRemoveBeyondMergeWindow(t *testing.T) {
	f := newTestAggregatedFeed(t)
	f.SetMergeMaxLength(1)

	love := testActivity(1)
	comment := activity.Activity{
		ActorID:  7,
		Verb:     activity.VerbComment,
		ObjectID: 7,
		Time:     testTime.Add(time.Hour),
	}
	if err := f.AddMany([]activity.Activity{love, comment}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	// the love group is older and ranked below the merge window now
	if err := f.RemoveMany([]activity.ID{love.MustSerializationID()}); err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}

	aggs, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(aggs) != 1 {
		t.Fatalf("Expected 1 aggregate after the removal, got %d", len(aggs))
	}
	if aggs[0].Verb() != activity.VerbComment {
		t.Errorf("Expected only the comment group to survive, got %q", aggs[0].Verb())
	}
}

// TestAggregatedFeedRemoveTrims tests that removal cuts the feed down
// to its configured length before scanning.
func TestAggregatedFeedRemoveTrims(t *testing.T) {
	cfg := newTestConfig()
	cfg.MaxLength = 1
	f, err := NewAggregatedFeed(
		cfg,
		1,
		aggregator.NewRecentVerbAggregator(),
		serializer.NewAggregatedSerializer(serializer.NewCSVSerializer(activity.DefaultRegistry())),
	)
	if err != nil {
		t.Fatalf("NewAggregatedFeed() failed: %v", err)
	}

	love := testActivity(1)
	comment := activity.Activity{
		ActorID:  7,
		Verb:     activity.VerbComment,
		ObjectID: 7,
		Time:     testTime.Add(time.Hour),
	}
	if err := f.AddMany([]activity.Activity{love, comment}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	// nothing matches, but the stale row beyond MaxLength must be cut
	if err := f.RemoveMany([]activity.ID{testActivity(9).MustSerializationID()}); err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}
	n, err := f.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected the feed trimmed to 1 aggregate, got %d", n)
	}
}

// TestAggregatedFeedRemoveAll tests that removing every inner activity
// deletes the aggregate.
func TestAggregatedFeedRemoveAll(t *testing.T) {
	f := newTestAggregatedFeed(t)
	a1, a2 := testActivity(1), testActivity(2)

	if err := f.AddMany([]activity.Activity{a1, a2}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	err := f.RemoveMany([]activity.ID{a1.MustSerializationID(), a2.MustSerializationID()})
	if err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}

	n, err := f.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected an empty feed after removing all activities, got %d", n)
	}
}

// TestAggregatedFeedContainsActivity tests the structural lookup.
func TestAggregatedFeedContainsActivity(t *testing.T) {
	f := newTestAggregatedFeed(t)
	a := testActivity(1)

	if err := f.AddMany([]activity.Activity{a}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	ok, err := f.ContainsActivity(a.MustSerializationID())
	if err != nil {
		t.Fatalf("ContainsActivity() failed: %v", err)
	}
	if !ok {
		t.Error("Expected the feed to contain the activity")
	}

	ok, err = f.ContainsActivity(testActivity(9).MustSerializationID())
	if err != nil {
		t.Fatalf("ContainsActivity() failed: %v", err)
	}
	if ok {
		t.Error("Expected the feed to not contain an unknown activity")
	}

	// structural containment ignores the timestamp
	later := a
	later.Time = a.Time.Add(time.Hour)
	ok, err = f.Contains(later)
	if err != nil {
		t.Fatalf("Contains() failed: %v", err)
	}
	if !ok {
		t.Error("Expected structural containment to ignore the time")
	}

	other := a
	other.ActorID = 999
	ok, err = f.Contains(other)
	if err != nil {
		t.Fatalf("Contains() failed: %v", err)
	}
	if ok {
		t.Error("Expected a different actor to not be contained")
	}
}

// TestAggregatedFeedHook tests that the update hook sees the applied
// diff.
func TestAggregatedFeedHook(t *testing.T) {
	f := newTestAggregatedFeed(t)

	var gotCreated, gotChanged int
	f.SetOnUpdate(func(created []*activity.AggregatedActivity, changed []aggregator.ChangedPair, deleted []*activity.AggregatedActivity) error {
		gotCreated += len(created)
		gotChanged += len(changed)
		return nil
	})

	if err := f.AddMany([]activity.Activity{testActivity(1)}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if gotCreated != 1 || gotChanged != 0 {
		t.Errorf("Expected 1 created / 0 changed, got %d/%d", gotCreated, gotChanged)
	}

	if err := f.AddMany([]activity.Activity{testActivity(2)}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if gotCreated != 1 || gotChanged != 1 {
		t.Errorf("Expected 1 created / 1 changed after the merge, got %d/%d", gotCreated, gotChanged)
	}
}
