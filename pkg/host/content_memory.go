package host

import (
	"context"
	"sort"
	"sync"
)

type memoryItem struct {
	published bool
	termIDs   []int64
}

// MemoryContent is an in-memory content resolver, used in tests and by
// hosts that feed item state into the module directly
type MemoryContent struct {
	items map[int64]memoryItem

	sync.RWMutex
}

// NewMemoryContent returns an initialized in-memory content resolver
func NewMemoryContent() *MemoryContent {
	return &MemoryContent{
		items: make(map[int64]memoryItem),
	}
}

// PutItem registers or replaces a content item
func (c *MemoryContent) PutItem(itemID int64, published bool, termIDs ...int64) {
	c.Lock()
	c.items[itemID] = memoryItem{published: published, termIDs: termIDs}
	c.Unlock()
}

// TermIDsForItem returns the term ids attached to an item
func (c *MemoryContent) TermIDsForItem(ctx context.Context, itemID int64) ([]int64, error) {
	c.RLock()
	item, ok := c.items[itemID]
	c.RUnlock()

	if !ok {
		return nil, ErrItemNotFound
	}

	ids := make([]int64, len(item.termIDs))
	copy(ids, item.termIDs)

	return ids, nil
}

// ItemIDsByTerm returns the ids of items carrying a term, sorted
func (c *MemoryContent) ItemIDsByTerm(ctx context.Context, termID int64) ([]int64, error) {
	c.RLock()
	defer c.RUnlock()

	ids := make([]int64, 0)

	for itemID, item := range c.items {
		for _, tid := range item.termIDs {
			if tid == termID {
				ids = append(ids, itemID)
				break
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// IsPublished reports an item's publication state
func (c *MemoryContent) IsPublished(ctx context.Context, itemID int64) (bool, error) {
	c.RLock()
	item, ok := c.items[itemID]
	c.RUnlock()

	if !ok {
		return false, ErrItemNotFound
	}

	return item.published, nil
}

// AllItemIDs enumerates every content item, sorted
func (c *MemoryContent) AllItemIDs(ctx context.Context) ([]int64, error) {
	c.RLock()
	defer c.RUnlock()

	ids := make([]int64, 0, len(c.items))
	for itemID := range c.items {
		ids = append(ids, itemID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}
