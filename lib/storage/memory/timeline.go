package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// NewTimelineStorage creates an in-memory timeline storage.
func NewTimelineStorage() storage.ITimelineStorage {
	return &timelineStorageImpl{
		timelines: xsync.NewMapOf[string, *timeline](),
	}
}

// timelineStorageImpl implements the storage.ITimelineStorage interface
type timelineStorageImpl struct {
	timelines *xsync.MapOf[string, *timeline]
}

// timeline is one per-key ordered collection. entries is kept sorted
// descending by id at all times.
type timeline struct {
	mu      sync.RWMutex
	entries []storage.Entry
}

func (s *timelineStorageImpl) timeline(key string) *timeline {
	tl, _ := s.timelines.LoadOrCompute(key, func() *timeline {
		return &timeline{}
	})
	return tl
}

// insertPos returns the index where id belongs in the descending list.
func insertPos(entries []storage.Entry, id activity.ID) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].ID.Less(id)
	})
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.ITimelineStorage)
// --------------------------------------------------------------------------

func (s *timelineStorageImpl) AddMany(key string, entries []storage.Entry, _ storage.Batch) error {
	tl := s.timeline(key)
	tl.mu.Lock()
	defer tl.mu.Unlock()

	for _, e := range entries {
		pos := insertPos(tl.entries, e.ID)
		// overwrite an existing row in place. Rows are keyed by
		// (id, payload): ids are not unique because aggregate ids only
		// carry second resolution, so two groups updated within the same
		// second must coexist as separate rows.
		replaced := false
		for i := pos - 1; i >= 0 && tl.entries[i].ID == e.ID; i-- {
			if tl.entries[i].Payload == e.Payload {
				tl.entries[i] = e
				replaced = true
				break
			}
		}
		if replaced {
			continue
		}
		tl.entries = append(tl.entries, storage.Entry{})
		copy(tl.entries[pos+1:], tl.entries[pos:])
		tl.entries[pos] = e
	}
	return nil
}

func (s *timelineStorageImpl) RemoveMany(key string, entries []storage.Entry, _ storage.Batch) error {
	tl := s.timeline(key)
	tl.mu.Lock()
	defer tl.mu.Unlock()

	// match by (id, payload) so a colliding id belonging to another
	// row survives the removal
	drop := make(map[storage.Entry]bool, len(entries))
	for _, e := range entries {
		drop[e] = true
	}
	kept := tl.entries[:0]
	for _, e := range tl.entries {
		if !drop[e] {
			kept = append(kept, e)
		}
	}
	tl.entries = kept
	return nil
}

func (s *timelineStorageImpl) GetSlice(key string, start, stop int, filter storage.SliceFilter, order storage.Order) ([]storage.Entry, error) {
	if start < 0 {
		return nil, storage.NewStorageError("memory", "slice", fmt.Errorf("negative start %d", start))
	}
	tl := s.timeline(key)
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	filtered := make([]storage.Entry, 0, len(tl.entries))
	for _, e := range tl.entries {
		if filter.Match(e.ID) {
			filtered = append(filtered, e)
		}
	}
	if order == storage.OrderAsc {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	if start > len(filtered) {
		start = len(filtered)
	}
	if stop < 0 || stop > len(filtered) {
		stop = len(filtered)
	}
	if start >= stop {
		return nil, nil
	}
	return append([]storage.Entry(nil), filtered[start:stop]...), nil
}

func (s *timelineStorageImpl) Trim(key string, maxLength int) error {
	if maxLength < 0 {
		return storage.NewStorageError("memory", "trim", fmt.Errorf("negative max length %d", maxLength))
	}
	tl := s.timeline(key)
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if len(tl.entries) > maxLength {
		tl.entries = tl.entries[:maxLength]
	}
	return nil
}

func (s *timelineStorageImpl) Count(key string) (int, error) {
	tl := s.timeline(key)
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.entries), nil
}

func (s *timelineStorageImpl) Delete(key string) error {
	s.timelines.Delete(key)
	return nil
}

func (s *timelineStorageImpl) IndexOf(key string, id activity.ID) (int, error) {
	tl := s.timeline(key)
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	pos := insertPos(tl.entries, id)
	if pos > 0 && tl.entries[pos-1].ID == id {
		return pos - 1, nil
	}
	return 0, fmt.Errorf("timeline %s: id %s: %w", key, id, activity.ErrActivityNotFound)
}

func (s *timelineStorageImpl) Contains(key string, id activity.ID) (bool, error) {
	_, err := s.IndexOf(key, id)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *timelineStorageImpl) NewBatch() storage.Batch {
	return storage.NopBatch{}
}
