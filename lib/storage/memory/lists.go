package memory

import (
	"sync"

	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// NewListsStorage creates an in-memory lists storage.
func NewListsStorage() storage.IListsStorage {
	return &listsStorageImpl{
		keys: xsync.NewMapOf[string, *namedLists](),
	}
}

// listsStorageImpl implements the storage.IListsStorage interface
type listsStorageImpl struct {
	keys *xsync.MapOf[string, *namedLists]
}

// namedLists holds all lists of one key. Values are ordered
// oldest-first; trimming drops from the front.
type namedLists struct {
	mu    sync.RWMutex
	lists map[string][]string
}

func (s *listsStorageImpl) lists(key string) *namedLists {
	nl, _ := s.keys.LoadOrCompute(key, func() *namedLists {
		return &namedLists{lists: make(map[string][]string)}
	})
	return nl
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.IListsStorage)
// --------------------------------------------------------------------------

func (s *listsStorageImpl) Add(key string, values map[string][]string, maxLength int) error {
	nl := s.lists(key)
	nl.mu.Lock()
	defer nl.mu.Unlock()

	for list, vs := range values {
		merged := append(nl.lists[list], vs...)
		if maxLength > 0 && len(merged) > maxLength {
			merged = merged[len(merged)-maxLength:]
		}
		nl.lists[list] = merged
	}
	return nil
}

func (s *listsStorageImpl) Remove(key string, values map[string][]string) error {
	nl := s.lists(key)
	nl.mu.Lock()
	defer nl.mu.Unlock()

	for list, vs := range values {
		drop := make(map[string]bool, len(vs))
		for _, v := range vs {
			drop[v] = true
		}
		kept := nl.lists[list][:0]
		for _, v := range nl.lists[list] {
			if !drop[v] {
				kept = append(kept, v)
			}
		}
		nl.lists[list] = kept
	}
	return nil
}

func (s *listsStorageImpl) Count(key, list string) (int, error) {
	nl := s.lists(key)
	nl.mu.RLock()
	defer nl.mu.RUnlock()
	return len(nl.lists[list]), nil
}

func (s *listsStorageImpl) Get(key string, lists ...string) (map[string][]string, error) {
	nl := s.lists(key)
	nl.mu.RLock()
	defer nl.mu.RUnlock()

	result := make(map[string][]string, len(lists))
	for _, list := range lists {
		result[list] = append([]string(nil), nl.lists[list]...)
	}
	return result, nil
}

func (s *listsStorageImpl) Flush(key string, lists ...string) error {
	nl := s.lists(key)
	nl.mu.Lock()
	defer nl.mu.Unlock()

	for _, list := range lists {
		delete(nl.lists, list)
	}
	return nil
}
