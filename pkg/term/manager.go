package term

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxDepth caps ancestor traversal; any realistic taxonomy is far
// shallower, so hitting the cap means a malformed hierarchy
const DefaultMaxDepth = 32

// Manager is responsible for term hierarchy resolution within its scope
type Manager struct {
	terms    map[int64]Term
	nameMap  map[string]int64
	store    Store
	logger   *zap.Logger
	maxDepth int
	sync.RWMutex
}

// NewManager initializes a new term manager
func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, ErrNilTermStore
	}

	m := &Manager{
		terms:    make(map[int64]Term),
		nameMap:  make(map[string]int64),
		store:    store,
		maxDepth: DefaultMaxDepth,
	}

	return m, nil
}

// SetLogger assigns a logger for this manager
func (m *Manager) SetLogger(logger *zap.Logger) error {
	if logger != nil {
		logger = logger.Named("[term]")
	}

	m.logger = logger

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
func (m *Manager) Logger() *zap.Logger {
	if m.logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(fmt.Errorf("failed to initialize term manager logger: %s", err))
		}

		m.logger = l
	}

	return m.logger
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	if m.store == nil {
		panic(ErrNilTermStore)
	}

	return m.store
}

// Register caches and stores a host-assigned term
func (m *Manager) Register(ctx context.Context, t Term) (Term, error) {
	t, err := m.Store().UpsertTerm(ctx, t)
	if err != nil {
		return t, err
	}

	m.Lock()
	m.terms[t.ID] = t
	m.nameMap[t.Name] = t.ID
	m.Unlock()

	return t, nil
}

// AddParent attaches a parent term to a term
func (m *Manager) AddParent(ctx context.Context, termID, parentID int64) error {
	if termID == parentID {
		return ErrCircuitedHierarchy
	}

	return m.Store().CreateRelation(ctx, termID, parentID)
}

// TermByID returns a term by its id, checking the cache first
func (m *Manager) TermByID(ctx context.Context, termID int64) (Term, error) {
	m.RLock()
	t, ok := m.terms[termID]
	m.RUnlock()

	if ok {
		return t, nil
	}

	t, err := m.store.FetchTermByID(ctx, termID)
	if err != nil {
		return t, err
	}

	m.Lock()
	m.terms[t.ID] = t
	m.nameMap[t.Name] = t.ID
	m.Unlock()

	return t, nil
}

// ResolveByName resolves a term name to its id
// NOTE: returns ErrTermNotFound for unknown names; callers must treat
// that as "no restriction match", never as an implicit allow
func (m *Manager) ResolveByName(ctx context.Context, name string) (int64, error) {
	m.RLock()
	id, ok := m.nameMap[name]
	m.RUnlock()

	if ok {
		return id, nil
	}

	t, err := m.store.FetchTermByName(ctx, name)
	if err != nil {
		return 0, err
	}

	m.Lock()
	m.terms[t.ID] = t
	m.nameMap[t.Name] = t.ID
	m.Unlock()

	return t.ID, nil
}

// Ancestors returns the ids of every ancestor of a term, nearest first
// within each level; the result is empty when the term has no parents
// NOTE: traversal tracks visited ids and is capped by depth, because a
// malformed hierarchy may contain cycles; on detection the traversal
// fails with ErrCircuitedHierarchy instead of looping forever
func (m *Manager) Ancestors(ctx context.Context, termID int64) ([]int64, error) {
	if termID == 0 {
		return nil, ErrZeroID
	}

	visited := map[int64]bool{termID: true}
	frontier := []int64{termID}
	ancestors := make([]int64, 0)

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= m.maxDepth {
			return nil, ErrHierarchyTooDeep
		}

		next := make([]int64, 0)

		for _, id := range frontier {
			pids, err := m.store.FetchParentIDs(ctx, id)
			if err != nil {
				return nil, err
			}

			for _, pid := range pids {
				if pid == termID {
					return nil, ErrCircuitedHierarchy
				}

				if visited[pid] {
					continue
				}

				visited[pid] = true
				ancestors = append(ancestors, pid)
				next = append(next, pid)
			}
		}

		frontier = next
	}

	return ancestors, nil
}
