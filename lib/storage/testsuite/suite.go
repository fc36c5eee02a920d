package testsuite

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/storage"
)

// ActivityStorageFactory creates a fresh, empty activity storage.
type ActivityStorageFactory func() storage.IActivityStorage

// TimelineStorageFactory creates a fresh, empty timeline storage.
type TimelineStorageFactory func() storage.ITimelineStorage

// ListsStorageFactory creates a fresh, empty lists storage.
type ListsStorageFactory func() storage.IListsStorage

var suiteTime = time.Date(2013, 7, 8, 7, 39, 15, 0, time.UTC)

// suiteActivity creates a distinct test activity. Higher i means newer.
func suiteActivity(i int) activity.Activity {
	return activity.Activity{
		ActorID:  int64(i),
		Verb:     activity.VerbLove,
		ObjectID: int64(i),
		Time:     suiteTime.Add(time.Duration(i) * time.Minute),
	}
}

// suiteEntry creates the dehydrated timeline entry of suiteActivity(i).
func suiteEntry(i int) storage.Entry {
	id := suiteActivity(i).MustSerializationID()
	return storage.Entry{ID: id, Payload: string(id)}
}

// --------------------------------------------------------------------------
// Activity Storage
// --------------------------------------------------------------------------

// RunActivityStorageTests runs the conformance suite for an activity
// storage implementation.
func RunActivityStorageTests(t *testing.T, name string, factory ActivityStorageFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AddGet", func(t *testing.T) {
			testActivityAddGet(t, factory())
		})
		t.Run("MissingIDs", func(t *testing.T) {
			testActivityMissing(t, factory())
		})
		t.Run("Remove", func(t *testing.T) {
			testActivityRemove(t, factory())
		})
		t.Run("Flush", func(t *testing.T) {
			testActivityFlush(t, factory())
		})
	})
}

func testActivityAddGet(t *testing.T, s storage.IActivityStorage) {
	a1, a2 := suiteActivity(1), suiteActivity(2)
	if err := s.AddMany([]activity.Activity{a1, a2}); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	got, err := s.GetMany([]activity.ID{a1.MustSerializationID(), a2.MustSerializationID()})
	if err != nil {
		t.Fatalf("GetMany() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(got))
	}
	if !got[a1.MustSerializationID()].Equal(a1) {
		t.Errorf("Stored activity doesn't match: %+v", got[a1.MustSerializationID()])
	}

	// adding the same activity twice must be idempotent
	if err := s.AddMany([]activity.Activity{a1}); err != nil {
		t.Fatalf("Re-adding failed: %v", err)
	}
}

func testActivityMissing(t *testing.T, s storage.IActivityStorage) {
	a := suiteActivity(1)
	if err := s.AddMany([]activity.Activity{a}); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	got, err := s.GetMany([]activity.ID{a.MustSerializationID(), "12345"})
	if err != nil {
		t.Fatalf("GetMany() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Missing ids should be skipped, got %d results", len(got))
	}
}

func testActivityRemove(t *testing.T, s storage.IActivityStorage) {
	a := suiteActivity(1)
	if err := s.AddMany([]activity.Activity{a}); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	if err := s.RemoveMany([]activity.ID{a.MustSerializationID(), "404"}); err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}
	got, err := s.GetMany([]activity.ID{a.MustSerializationID()})
	if err != nil {
		t.Fatalf("GetMany() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty result after removal, got %d", len(got))
	}
}

func testActivityFlush(t *testing.T, s storage.IActivityStorage) {
	if err := s.AddMany([]activity.Activity{suiteActivity(1), suiteActivity(2)}); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	got, err := s.GetMany([]activity.ID{suiteActivity(1).MustSerializationID()})
	if err != nil {
		t.Fatalf("GetMany() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty storage after flush, got %d", len(got))
	}
}

// --------------------------------------------------------------------------
// Timeline Storage
// --------------------------------------------------------------------------

// RunTimelineStorageTests runs the conformance suite for a timeline
// storage implementation.
func RunTimelineStorageTests(t *testing.T, name string, factory TimelineStorageFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AddOrder", func(t *testing.T) {
			testTimelineAddOrder(t, factory())
		})
		t.Run("Overwrite", func(t *testing.T) {
			testTimelineOverwrite(t, factory())
		})
		t.Run("Remove", func(t *testing.T) {
			testTimelineRemove(t, factory())
		})
		t.Run("SliceFilter", func(t *testing.T) {
			testTimelineSliceFilter(t, factory())
		})
		t.Run("SliceBounds", func(t *testing.T) {
			testTimelineSliceBounds(t, factory())
		})
		t.Run("Trim", func(t *testing.T) {
			testTimelineTrim(t, factory())
		})
		t.Run("IndexOf", func(t *testing.T) {
			testTimelineIndexOf(t, factory())
		})
		t.Run("Delete", func(t *testing.T) {
			testTimelineDelete(t, factory())
		})
		t.Run("Batch", func(t *testing.T) {
			testTimelineBatch(t, factory())
		})
		t.Run("KeyIsolation", func(t *testing.T) {
			testTimelineKeyIsolation(t, factory())
		})
	})
}

func testTimelineAddOrder(t *testing.T, s storage.ITimelineStorage) {
	// insert out of order
	for _, i := range []int{3, 1, 4, 2} {
		if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(i)}, nil); err != nil {
			t.Fatalf("AddMany() failed: %v", err)
		}
	}

	entries, err := s.GetSlice("feed:1", 0, -1, storage.SliceFilter{}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID.Less(entries[i].ID) {
			t.Errorf("Entries not in descending order: %s before %s", entries[i-1].ID, entries[i].ID)
		}
	}

	asc, err := s.GetSlice("feed:1", 0, -1, storage.SliceFilter{}, storage.OrderAsc)
	if err != nil {
		t.Fatalf("GetSlice(asc) failed: %v", err)
	}
	if asc[0].ID != entries[len(entries)-1].ID {
		t.Error("Ascending order should start with the oldest entry")
	}
}

func testTimelineOverwrite(t *testing.T, s storage.ITimelineStorage) {
	e := suiteEntry(1)
	if err := s.AddMany("feed:1", []storage.Entry{e, e}, nil); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := s.AddMany("feed:1", []storage.Entry{e}, nil); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	n, err := s.Count("feed:1")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Duplicate ids should overwrite, expected 1 entry, got %d", n)
	}
}

func testTimelineRemove(t *testing.T, s storage.ITimelineStorage) {
	entries := []storage.Entry{suiteEntry(1), suiteEntry(2), suiteEntry(3)}
	if err := s.AddMany("feed:1", entries, nil); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}

	if err := s.RemoveMany("feed:1", []storage.Entry{entries[1], suiteEntry(9)}, nil); err != nil {
		t.Fatalf("RemoveMany() failed: %v", err)
	}
	n, err := s.Count("feed:1")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 entries after removal, got %d", n)
	}
	ok, err := s.Contains("feed:1", entries[1].ID)
	if err != nil {
		t.Fatalf("Contains() failed: %v", err)
	}
	if ok {
		t.Error("Removed entry should not be contained anymore")
	}
}

func testTimelineSliceFilter(t *testing.T, s storage.ITimelineStorage) {
	for i := 1; i <= 5; i++ {
		if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(i)}, nil); err != nil {
			t.Fatalf("AddMany() failed: %v", err)
		}
	}
	id2, id4 := suiteEntry(2).ID, suiteEntry(4).ID

	// inclusive bounds
	entries, err := s.GetSlice("feed:1", 0, -1, storage.SliceFilter{IDGte: id2, IDLte: id4}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries for gte/lte, got %d", len(entries))
	}

	// exclusive bounds
	entries, err = s.GetSlice("feed:1", 0, -1, storage.SliceFilter{IDGt: id2, IDLt: id4}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry for gt/lt, got %d", len(entries))
	}
	if len(entries) == 1 && entries[0].ID != suiteEntry(3).ID {
		t.Errorf("Expected entry 3, got %s", entries[0].ID)
	}
}

func testTimelineSliceBounds(t *testing.T, s storage.ITimelineStorage) {
	for i := 1; i <= 5; i++ {
		if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(i)}, nil); err != nil {
			t.Fatalf("AddMany() failed: %v", err)
		}
	}

	entries, err := s.GetSlice("feed:1", 1, 3, storage.SliceFilter{}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries for [1,3), got %d", len(entries))
	}
	// newest is entry 5, so position 1 is entry 4
	if entries[0].ID != suiteEntry(4).ID {
		t.Errorf("Expected entry 4 at position 1, got %s", entries[0].ID)
	}

	// out of range reads are empty, not errors
	entries, err = s.GetSlice("feed:1", 10, 20, storage.SliceFilter{}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty slice past the end, got %d entries", len(entries))
	}

	// empty timeline
	entries, err = s.GetSlice("feed:unknown", 0, 10, storage.SliceFilter{}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty slice for unknown key, got %d entries", len(entries))
	}
}

func testTimelineTrim(t *testing.T, s storage.ITimelineStorage) {
	for i := 1; i <= 10; i++ {
		if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(i)}, nil); err != nil {
			t.Fatalf("AddMany() failed: %v", err)
		}
	}
	if err := s.Trim("feed:1", 3); err != nil {
		t.Fatalf("Trim() failed: %v", err)
	}
	entries, err := s.GetSlice("feed:1", 0, -1, storage.SliceFilter{}, storage.OrderDesc)
	if err != nil {
		t.Fatalf("GetSlice() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries after trim, got %d", len(entries))
	}
	// the newest must survive
	if entries[0].ID != suiteEntry(10).ID {
		t.Errorf("Expected newest entry to survive the trim, got %s", entries[0].ID)
	}

	// trimming a short timeline is a no-op
	if err := s.Trim("feed:1", 100); err != nil {
		t.Fatalf("Trim() failed: %v", err)
	}
	if n, _ := s.Count("feed:1"); n != 3 {
		t.Errorf("Trim above the length should not change anything, got %d", n)
	}
}

func testTimelineIndexOf(t *testing.T, s storage.ITimelineStorage) {
	for i := 1; i <= 3; i++ {
		if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(i)}, nil); err != nil {
			t.Fatalf("AddMany() failed: %v", err)
		}
	}

	// newest first: entry 3 is at index 0
	idx, err := s.IndexOf("feed:1", suiteEntry(3).ID)
	if err != nil {
		t.Fatalf("IndexOf() failed: %v", err)
	}
	if idx != 0 {
		t.Errorf("Expected index 0 for the newest entry, got %d", idx)
	}
	idx, err = s.IndexOf("feed:1", suiteEntry(1).ID)
	if err != nil {
		t.Fatalf("IndexOf() failed: %v", err)
	}
	if idx != 2 {
		t.Errorf("Expected index 2 for the oldest entry, got %d", idx)
	}

	_, err = s.IndexOf("feed:1", suiteEntry(9).ID)
	if !errors.Is(err, activity.ErrActivityNotFound) {
		t.Errorf("Expected ErrActivityNotFound, got %v", err)
	}
}

func testTimelineDelete(t *testing.T, s storage.ITimelineStorage) {
	if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(1)}, nil); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := s.Delete("feed:1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	n, err := s.Count("feed:1")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty timeline after delete, got %d", n)
	}
}

func testTimelineBatch(t *testing.T, s storage.ITimelineStorage) {
	batch := s.NewBatch()
	defer batch.Close()

	for i := 1; i <= 3; i++ {
		if err := s.AddMany(fmt.Sprintf("feed:%d", i), []storage.Entry{suiteEntry(i)}, batch); err != nil {
			t.Fatalf("AddMany() failed: %v", err)
		}
	}
	if err := batch.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		n, err := s.Count(fmt.Sprintf("feed:%d", i))
		if err != nil {
			t.Fatalf("Count() failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 entry in feed:%d after batch flush, got %d", i, n)
		}
	}
}

func testTimelineKeyIsolation(t *testing.T, s storage.ITimelineStorage) {
	if err := s.AddMany("feed:1", []storage.Entry{suiteEntry(1)}, nil); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := s.AddMany("feed:2", []storage.Entry{suiteEntry(2)}, nil); err != nil {
		t.Fatalf("AddMany() failed: %v", err)
	}
	if err := s.Delete("feed:1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	n, err := s.Count("feed:2")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Deleting feed:1 must not touch feed:2, got %d entries", n)
	}
}

// --------------------------------------------------------------------------
// Lists Storage
// --------------------------------------------------------------------------

// RunListsStorageTests runs the conformance suite for a lists storage
// implementation.
func RunListsStorageTests(t *testing.T, name string, factory ListsStorageFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AddGet", func(t *testing.T) {
			testListsAddGet(t, factory())
		})
		t.Run("MaxLength", func(t *testing.T) {
			testListsMaxLength(t, factory())
		})
		t.Run("Remove", func(t *testing.T) {
			testListsRemove(t, factory())
		})
		t.Run("Flush", func(t *testing.T) {
			testListsFlush(t, factory())
		})
	})
}

func testListsAddGet(t *testing.T, s storage.IListsStorage) {
	err := s.Add("user:1", map[string][]string{
		"unseen": {"a", "b"},
		"unread": {"a"},
	}, 0)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	got, err := s.Get("user:1", "unseen", "unread", "unknown")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(got["unseen"]) != 2 || len(got["unread"]) != 1 {
		t.Errorf("Unexpected list contents: %v", got)
	}
	if len(got["unknown"]) != 0 {
		t.Errorf("Unknown lists should come back empty, got %v", got["unknown"])
	}

	n, err := s.Count("user:1", "unseen")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected count 2, got %d", n)
	}
}

func testListsMaxLength(t *testing.T, s storage.IListsStorage) {
	for i := 0; i < 10; i++ {
		err := s.Add("user:1", map[string][]string{"unseen": {fmt.Sprintf("v%d", i)}}, 5)
		if err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	got, err := s.Get("user:1", "unseen")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(got["unseen"]) != 5 {
		t.Fatalf("Expected list capped at 5, got %d", len(got["unseen"]))
	}
	// the newest values survive
	if got["unseen"][len(got["unseen"])-1] != "v9" {
		t.Errorf("Expected newest value v9 to survive, got %v", got["unseen"])
	}
}

func testListsRemove(t *testing.T, s storage.IListsStorage) {
	err := s.Add("user:1", map[string][]string{"unseen": {"a", "b", "c"}}, 0)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	err = s.Remove("user:1", map[string][]string{"unseen": {"b", "missing"}})
	if err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	got, err := s.Get("user:1", "unseen")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(got["unseen"]) != 2 {
		t.Errorf("Expected 2 values after removal, got %v", got["unseen"])
	}
}

func testListsFlush(t *testing.T, s storage.IListsStorage) {
	err := s.Add("user:1", map[string][]string{"unseen": {"a"}, "unread": {"a"}}, 0)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := s.Flush("user:1", "unseen"); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	n, _ := s.Count("user:1", "unseen")
	if n != 0 {
		t.Errorf("Expected unseen flushed, got %d", n)
	}
	n, _ = s.Count("user:1", "unread")
	if n != 1 {
		t.Errorf("Flushing unseen must not touch unread, got %d", n)
	}
}
