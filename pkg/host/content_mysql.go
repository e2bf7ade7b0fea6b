package host

import (
	"context"

	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
)

// MySQLContent reads content items and their term associations directly
// from the host tables; strictly read-only, content is host-owned
type MySQLContent struct {
	db *dbr.Connection
}

// NewMySQLContent returns a content resolver backed by the host database
func NewMySQLContent(db *dbr.Connection) (*MySQLContent, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	return &MySQLContent{db}, nil
}

// TermIDsForItem returns the term ids attached to an item across all
// taxonomy reference fields
func (c *MySQLContent) TermIDsForItem(ctx context.Context, itemID int64) (ids []int64, err error) {
	_, err = c.db.NewSession(nil).
		SelectBySql("SELECT term_id FROM content_item_terms WHERE content_item_id = ?", itemID).
		LoadContext(ctx, &ids)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch item terms")
	}

	return ids, nil
}

// ItemIDsByTerm returns the ids of items carrying a term
func (c *MySQLContent) ItemIDsByTerm(ctx context.Context, termID int64) (ids []int64, err error) {
	_, err = c.db.NewSession(nil).
		SelectBySql("SELECT content_item_id FROM content_item_terms WHERE term_id = ?", termID).
		LoadContext(ctx, &ids)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch items by term")
	}

	return ids, nil
}

// IsPublished reports an item's publication state
func (c *MySQLContent) IsPublished(ctx context.Context, itemID int64) (bool, error) {
	var published bool

	err := c.db.NewSession(nil).
		SelectBySql("SELECT published FROM content_item WHERE id = ? LIMIT 1", itemID).
		LoadOneContext(ctx, &published)

	if err != nil {
		if err == dbr.ErrNotFound {
			return false, ErrItemNotFound
		}

		return false, errors.Wrap(err, "failed to fetch item publication state")
	}

	return published, nil
}

// AllItemIDs enumerates every content item for the full reindex
func (c *MySQLContent) AllItemIDs(ctx context.Context) (ids []int64, err error) {
	_, err = c.db.NewSession(nil).
		SelectBySql("SELECT id FROM content_item").
		LoadContext(ctx, &ids)

	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate content items")
	}

	return ids, nil
}
