package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/grant"
)

// invalidation tags understood by the host cache/index layer
const (
	TagGrants = "termacl:grants"
)

// ItemTag returns the invalidation tag for a single content item
func ItemTag(itemID int64) string {
	return fmt.Sprintf("termacl:item:%d", itemID)
}

// OnAccessCheck is the host access hook: it enforces the unpublished rule
// before the term predicate and lets the bypass capability short-circuit
// everything; any internal failure resolves to deny
func (c *Core) OnAccessCheck(ctx context.Context, itemID int64, op access.Operation, p access.Principal) (bool, error) {
	if p.CanBypass() {
		return true, nil
	}

	// the single-item answer must match what the grant record flags say
	// for the same operation
	if !c.GrantMaintainer().Permits(op) {
		return false, nil
	}

	published, err := c.content.IsPublished(ctx, itemID)
	if err != nil {
		return false, err
	}

	// unpublished content is never visible without bypass, regardless
	// of term permissions; this denial is the observable one
	if !published {
		if c.observer != nil {
			c.observer.AccessDenied(itemID)
		}

		c.Logger().Debug(
			"access denied to unpublished item",
			zap.Int64("item_id", itemID),
			zap.Int64("user_id", p.UserID),
			zap.String("op", op.String()),
		)

		return false, nil
	}

	return c.Checker().Allowed(ctx, itemID, p)
}

// OnGrantsRequested returns the grant buckets the principal belongs to
// for an operation, consumed by the host's bulk-query joins
func (c *Core) OnGrantsRequested(ctx context.Context, p access.Principal, op access.Operation) ([]uint32, error) {
	return c.GrantMaintainer().GidsForPrincipal(ctx, p, op)
}

// OnGrantRecordsRequested computes the grant records for a content item
// without writing them, for hosts that own the grant table storage
func (c *Core) OnGrantRecordsRequested(ctx context.Context, itemID int64) ([]grant.Record, error) {
	m := c.GrantMaintainer()

	alloc, err := m.NewPassAllocator(ctx)
	if err != nil {
		return nil, err
	}

	if err = m.PrimeAllocator(ctx, alloc); err != nil {
		return nil, err
	}

	return m.RecordsForItem(ctx, itemID, alloc)
}

// OnItemInsert writes grant records for a freshly inserted content item
func (c *Core) OnItemInsert(ctx context.Context, itemID int64) error {
	if err := c.GrantMaintainer().RecomputeItem(ctx, itemID); err != nil {
		return err
	}

	c.invalidator.Invalidate(ItemTag(itemID))

	return nil
}

// OnTermFormSubmit is the administrator save path: full replace of a
// term's allowed sets, then grant recomputation for every item carrying
// the term; when the submission changes nothing, both the recomputation
// and the invalidation are skipped to avoid needless cache churn
func (c *Core) OnTermFormSubmit(ctx context.Context, termID int64, userIDs, roleIDs []int64) error {
	cs, err := c.PermissionManager().SaveTermPermissions(ctx, termID, userIDs, roleIDs)
	if err != nil {
		return err
	}

	if cs.IsEmpty() {
		c.Logger().Debug("term permissions unchanged, skipping invalidation", zap.Int64("term_id", termID))
		return nil
	}

	itemIDs, err := c.content.ItemIDsByTerm(ctx, termID)
	if err != nil {
		return err
	}

	// one allocator for the whole recompute batch
	m := c.GrantMaintainer()

	alloc, err := m.NewPassAllocator(ctx)
	if err != nil {
		return err
	}

	if err = m.PrimeAllocator(ctx, alloc); err != nil {
		return err
	}

	for _, itemID := range itemIDs {
		if err = m.ApplyForItem(ctx, itemID, alloc); err != nil {
			return err
		}

		c.invalidator.Invalidate(ItemTag(itemID))
	}

	c.invalidator.Invalidate(TagGrants)

	return nil
}

// OnUserCancelled purges the cancelled user's permission records; every
// bucket the user participated in may have changed shape, so the grant
// table is rebuilt from source afterwards
func (c *Core) OnUserCancelled(ctx context.Context, userID int64) error {
	if err := c.PermissionManager().DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	if err := c.GrantMaintainer().RebuildAll(ctx); err != nil {
		return err
	}

	c.invalidator.Invalidate(TagGrants)

	return nil
}

// RebuildAll is the explicit full-reindex entry point
func (c *Core) RebuildAll(ctx context.Context) error {
	if err := c.GrantMaintainer().RebuildAll(ctx); err != nil {
		return err
	}

	c.invalidator.Invalidate(TagGrants)

	return nil
}
