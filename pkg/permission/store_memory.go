package permission

import (
	"context"
	"sync"
)

type recordKey struct {
	termID      int64
	kind        Kind
	principalID int64
}

// memoryStore is a permission store that keeps everything in memory,
// used mainly for testing and single-process embedding
type memoryStore struct {
	records map[recordKey]Record

	sync.RWMutex
}

// NewMemoryStore returns an initialized in-memory permission store
func NewMemoryStore() (Store, error) {
	s := &memoryStore{
		records: make(map[recordKey]Record),
	}

	return s, nil
}

func (r Record) key() recordKey {
	return recordKey{termID: r.TermID, kind: r.Kind, principalID: r.PrincipalID}
}

// CreateRecord creates a new permission record
func (s *memoryStore) CreateRecord(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.records[r.key()]; ok {
		return ErrDuplicateRecord
	}

	s.records[r.key()] = r

	return nil
}

// DeleteRecord deletes a single permission record
func (s *memoryStore) DeleteRecord(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.records[r.key()]; !ok {
		return ErrRecordNotFound
	}

	delete(s.records, r.key())

	return nil
}

// DeleteByPrincipal deletes every record held by a principal
func (s *memoryStore) DeleteByPrincipal(ctx context.Context, kind Kind, principalID int64) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}

	if principalID == 0 {
		return ErrZeroPrincipalID
	}

	s.Lock()
	defer s.Unlock()

	for k := range s.records {
		if k.kind == kind && k.principalID == principalID {
			delete(s.records, k)
		}
	}

	return nil
}

// FetchByTerm retrieves every permission record attached to a term
func (s *memoryStore) FetchByTerm(ctx context.Context, termID int64) ([]Record, error) {
	s.RLock()
	defer s.RUnlock()

	rs := make([]Record, 0)
	for k, r := range s.records {
		if k.termID == termID {
			rs = append(rs, r)
		}
	}

	return rs, nil
}

// FetchUserIDs returns the ids of users explicitly allowed on a term
func (s *memoryStore) FetchUserIDs(ctx context.Context, termID int64) ([]int64, error) {
	return s.fetchIDs(termID, KUser), nil
}

// FetchRoleIDs returns the ids of roles explicitly allowed on a term
func (s *memoryStore) FetchRoleIDs(ctx context.Context, termID int64) ([]int64, error) {
	return s.fetchIDs(termID, KRole), nil
}

func (s *memoryStore) fetchIDs(termID int64, kind Kind) []int64 {
	s.RLock()
	defer s.RUnlock()

	ids := make([]int64, 0)
	for k := range s.records {
		if k.termID == termID && k.kind == kind {
			ids = append(ids, k.principalID)
		}
	}

	return ids
}

// FetchRestrictedTermIDs returns the ids of every restricted term
func (s *memoryStore) FetchRestrictedTermIDs(ctx context.Context) ([]int64, error) {
	s.RLock()
	defer s.RUnlock()

	seen := make(map[int64]bool)
	ids := make([]int64, 0)

	for k := range s.records {
		if !seen[k.termID] {
			seen[k.termID] = true
			ids = append(ids, k.termID)
		}
	}

	return ids, nil
}

// HasAny reports whether a term has any permission records at all
func (s *memoryStore) HasAny(ctx context.Context, termID int64) (bool, error) {
	s.RLock()
	defer s.RUnlock()

	for k := range s.records {
		if k.termID == termID {
			return true, nil
		}
	}

	return false, nil
}
