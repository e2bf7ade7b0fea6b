package term

import (
	"context"
	"sync"
)

// memoryStore is a term store that keeps everything in memory,
// used mainly for testing and single-process embedding
type memoryStore struct {
	idMap   map[int64]Term
	nameMap map[string]int64
	parents map[int64][]int64

	sync.RWMutex
}

// NewMemoryStore returns an initialized in-memory term store
func NewMemoryStore() (Store, error) {
	s := &memoryStore{
		idMap:   make(map[int64]Term),
		nameMap: make(map[string]int64),
		parents: make(map[int64][]int64),
	}

	return s, nil
}

// UpsertTerm stores a term
func (s *memoryStore) UpsertTerm(ctx context.Context, t Term) (Term, error) {
	if err := t.Validate(); err != nil {
		return t, err
	}

	s.Lock()

	// clearing a possibly stale name mapping before re-adding
	if existing, ok := s.idMap[t.ID]; ok {
		delete(s.nameMap, existing.Name)
	}

	s.idMap[t.ID] = t
	s.nameMap[t.Name] = t.ID
	s.Unlock()

	return t, nil
}

// CreateRelation attaches a parent to a term
func (s *memoryStore) CreateRelation(ctx context.Context, termID, parentID int64) error {
	if termID == 0 || parentID == 0 {
		return ErrZeroID
	}

	s.Lock()
	defer s.Unlock()

	for _, pid := range s.parents[termID] {
		if pid == parentID {
			return ErrDuplicateRelation
		}
	}

	s.parents[termID] = append(s.parents[termID], parentID)

	return nil
}

// DeleteRelation detaches a parent from a term
func (s *memoryStore) DeleteRelation(ctx context.Context, termID, parentID int64) error {
	if termID == 0 || parentID == 0 {
		return ErrZeroID
	}

	s.Lock()
	defer s.Unlock()

	pids := s.parents[termID]
	for i, pid := range pids {
		if pid == parentID {
			s.parents[termID] = append(pids[:i], pids[i+1:]...)
			return nil
		}
	}

	return nil
}

// FetchTermByID retrieves a single term by its id
func (s *memoryStore) FetchTermByID(ctx context.Context, termID int64) (Term, error) {
	s.RLock()
	t, ok := s.idMap[termID]
	s.RUnlock()

	if !ok {
		return t, ErrTermNotFound
	}

	return t, nil
}

// FetchTermByName retrieves a single term by a direct name match
func (s *memoryStore) FetchTermByName(ctx context.Context, name string) (Term, error) {
	s.RLock()
	id, ok := s.nameMap[name]
	s.RUnlock()

	if !ok {
		return Term{}, ErrTermNotFound
	}

	return s.FetchTermByID(ctx, id)
}

// FetchParentIDs returns the ids of the term's direct parents
func (s *memoryStore) FetchParentIDs(ctx context.Context, termID int64) ([]int64, error) {
	s.RLock()
	pids := s.parents[termID]
	s.RUnlock()

	// copying to protect internal state from the caller
	result := make([]int64, len(pids))
	copy(result, pids)

	return result, nil
}

// FetchAllTerms retrieves all known terms
func (s *memoryStore) FetchAllTerms(ctx context.Context) ([]Term, error) {
	s.RLock()
	defer s.RUnlock()

	ts := make([]Term, 0, len(s.idMap))
	for _, t := range s.idMap {
		ts = append(ts, t)
	}

	return ts, nil
}
