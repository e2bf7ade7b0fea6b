package grant

import (
	"context"
	"sync"
)

// memoryStore is a grant store that keeps everything in memory,
// used mainly for testing and single-process embedding
type memoryStore struct {
	byItem map[int64][]Record

	sync.RWMutex
}

// NewMemoryStore returns an initialized in-memory grant store
func NewMemoryStore() (Store, error) {
	s := &memoryStore{
		byItem: make(map[int64][]Record),
	}

	return s, nil
}

// CreateRecord creates a new grant record
func (s *memoryStore) CreateRecord(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.Lock()
	s.byItem[r.ItemID] = append(s.byItem[r.ItemID], r)
	s.Unlock()

	return nil
}

// DeleteByItem deletes this realm's grant records for a content item
func (s *memoryStore) DeleteByItem(ctx context.Context, itemID int64) error {
	if itemID == 0 {
		return ErrZeroItemID
	}

	s.Lock()
	delete(s.byItem, itemID)
	s.Unlock()

	return nil
}

// DeleteAll wipes this realm's grant records
func (s *memoryStore) DeleteAll(ctx context.Context) error {
	s.Lock()
	s.byItem = make(map[int64][]Record)
	s.Unlock()

	return nil
}

// FetchByItem retrieves this realm's grant records for a content item
func (s *memoryStore) FetchByItem(ctx context.Context, itemID int64) ([]Record, error) {
	s.RLock()
	rs := s.byItem[itemID]
	s.RUnlock()

	result := make([]Record, len(rs))
	copy(result, rs)

	return result, nil
}

// FetchAll retrieves all of this realm's grant records
func (s *memoryStore) FetchAll(ctx context.Context) ([]Record, error) {
	s.RLock()
	defer s.RUnlock()

	rs := make([]Record, 0, len(s.byItem))
	for _, items := range s.byItem {
		rs = append(rs, items...)
	}

	return rs, nil
}

// MaxGid returns the highest gid present, zero when empty
func (s *memoryStore) MaxGid(ctx context.Context) (uint32, error) {
	s.RLock()
	defer s.RUnlock()

	var max uint32
	for _, items := range s.byItem {
		for _, r := range items {
			if r.Gid > max {
				max = r.Gid
			}
		}
	}

	return max, nil
}
