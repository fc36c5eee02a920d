package feed

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/metrics"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/ValentinKolb/dFeed/lib/storage/memory"
)

var testTime = time.Date(2013, 7, 8, 7, 39, 15, 0, time.UTC)

// testActivity creates a distinct activity; higher i means newer.
func testActivity(i int) activity.Activity {
	return activity.Activity{
		ActorID:  int64(100 + i),
		Verb:     activity.VerbLove,
		ObjectID: int64(i),
		Time:     testTime.Add(time.Duration(i) * time.Minute),
	}
}

// newTestConfig wires a fresh in-memory stack.
func newTestConfig() Config {
	codec := serializer.NewCSVSerializer(activity.DefaultRegistry())
	return Config{
		Timelines:  memory.NewTimelineStorage(),
		Activities: memory.NewActivityStorage(codec),
		Trim:       NeverTrim(),
	}
}

// TestFeedAddSlice tests the write-then-hydrated-read round trip.
func TestFeedAddSlice(t *testing.T) {
	f, err := NewFeed(newTestConfig(), 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := f.Add(testActivity(i)); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	acts, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(acts) != 3 {
		t.Fatalf("Expected 3 activities, got %d", len(acts))
	}
	// newest first
	if !acts[0].Equal(testActivity(3)) {
		t.Errorf("Expected the newest activity first, got %+v", acts[0])
	}
	if !acts[2].Equal(testActivity(1)) {
		t.Errorf("Expected the oldest activity last, got %+v", acts[2])
	}
}

// TestFeedTrim tests that after trimming to 5, only the 5 newest of 10
// activities survive.
func TestFeedTrim(t *testing.T) {
	cfg := newTestConfig()
	cfg.MaxLength = 5
	f, err := NewFeed(cfg, 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}

	for i := 1; i <= 10; i++ {
		if err := f.Add(testActivity(i)); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	if err := f.Trim(5); err != nil {
		t.Fatalf("Trim() failed: %v", err)
	}

	acts, err := f.Slice(0, 10)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(acts) != 5 {
		t.Fatalf("Expected 5 activities after trim, got %d", len(acts))
	}
	for i, want := range []int{10, 9, 8, 7, 6} {
		if !acts[i].Equal(testActivity(want)) {
			t.Errorf("Position %d: expected activity %d, got %+v", i, want, acts[i])
		}
	}
}

// TestFeedGracefulMissing tests that globally deleted activities are
// skipped on read instead of failing the slice.
func TestFeedGracefulMissing(t *testing.T) {
	cfg := newTestConfig()
	f, err := NewFeed(cfg, 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}

	a1, a2 := testActivity(1), testActivity(2)
	if err := f.AddMany([]activity.Activity{a1, a2}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	// delete a2 globally, leaving its timeline entry dangling
	err = RemoveActivitiesGlobally(cfg.Activities, metrics.NewNop(), a2.MustSerializationID())
	if err != nil {
		t.Fatalf("RemoveActivitiesGlobally() failed: %v", err)
	}

	acts, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("Expected 1 activity, got %d", len(acts))
	}
	if !acts[0].Equal(a1) {
		t.Errorf("Expected the surviving activity, got %+v", acts[0])
	}
}

// TestFeedRemove tests removal from the timeline only.
func TestFeedRemove(t *testing.T) {
	cfg := newTestConfig()
	f, err := NewFeed(cfg, 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}

	a := testActivity(1)
	if err := f.Add(a); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := f.Remove(a.MustSerializationID()); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	n, err := f.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty feed, got %d entries", n)
	}

	// the global payload survives a timeline removal
	byID, err := cfg.Activities.GetMany([]activity.ID{a.MustSerializationID()})
	if err != nil {
		t.Fatalf("GetMany() failed: %v", err)
	}
	if len(byID) != 1 {
		t.Error("Timeline removal must not delete the global payload")
	}
}

// TestFeedFilterPagination tests keyset pagination with IDLt.
func TestFeedFilterPagination(t *testing.T) {
	f, err := NewFeed(newTestConfig(), 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}
	for i := 1; i <= 6; i++ {
		if err := f.Add(testActivity(i)); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	page1, err := f.Slice(0, 2)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("Expected 2 activities on page 1, got %d", len(page1))
	}

	cursor := page1[len(page1)-1].MustSerializationID()
	page2, err := f.Filter(storage.SliceFilter{IDLt: cursor}).Slice(0, 2)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("Expected 2 activities on page 2, got %d", len(page2))
	}
	if !page2[0].Equal(testActivity(4)) {
		t.Errorf("Expected activity 4 on page 2, got %+v", page2[0])
	}

	// the original feed is untouched by the builder
	all, err := f.Slice(0, -1)
	if err != nil {
		t.Fatalf("Slice() failed: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("Filter() must not mutate the original feed, got %d", len(all))
	}
}

// TestFeedIndexContains tests position lookups.
func TestFeedIndexContains(t *testing.T) {
	f, err := NewFeed(newTestConfig(), 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := f.Add(testActivity(i)); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	idx, err := f.IndexOf(testActivity(3).MustSerializationID())
	if err != nil {
		t.Fatalf("IndexOf() failed: %v", err)
	}
	if idx != 0 {
		t.Errorf("Expected the newest activity at index 0, got %d", idx)
	}

	ok, err := f.Contains(testActivity(2).MustSerializationID())
	if err != nil {
		t.Fatalf("Contains() failed: %v", err)
	}
	if !ok {
		t.Error("Expected the feed to contain activity 2")
	}

	_, err = f.IndexOf(testActivity(9).MustSerializationID())
	if !errors.Is(err, activity.ErrActivityNotFound) {
		t.Errorf("Expected ErrActivityNotFound, got %v", err)
	}
}

// TestFeedAutoTrim tests that the trim policy fires on writes.
func TestFeedAutoTrim(t *testing.T) {
	cfg := newTestConfig()
	cfg.MaxLength = 3
	cfg.Trim = AlwaysTrim()
	f, err := NewFeed(cfg, 1)
	if err != nil {
		t.Fatalf("NewFeed() failed: %v", err)
	}

	for i := 1; i <= 10; i++ {
		if err := f.Add(testActivity(i)); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	n, err := f.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected the feed bounded to 3, got %d", n)
	}

	// AddMany with trim=false bypasses the policy
	if err := f.AddMany([]activity.Activity{testActivity(11), testActivity(12)}, false); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	n, _ = f.Count()
	if n != 5 {
		t.Errorf("Expected 5 entries with trimming disabled, got %d", n)
	}
}

// TestProbabilisticTrim tests the policy with a deterministic source.
func TestProbabilisticTrim(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	always := ProbabilisticTrim(1.0, rng)
	for i := 0; i < 10; i++ {
		if !always() {
			t.Fatal("Chance 1.0 must always trim")
		}
	}

	never := ProbabilisticTrim(0.0, rng)
	for i := 0; i < 10; i++ {
		if never() {
			t.Fatal("Chance 0.0 must never trim")
		}
	}

	// with a fixed seed the hit count is reproducible and roughly 1%
	rng = rand.New(rand.NewSource(42))
	some := ProbabilisticTrim(DefaultTrimChance, rng)
	hits := 0
	for i := 0; i < 10_000; i++ {
		if some() {
			hits++
		}
	}
	if hits == 0 || hits > 300 {
		t.Errorf("Expected roughly 1%% trims, got %d of 10000", hits)
	}
}
