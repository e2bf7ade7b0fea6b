package grant

import (
	"context"
	"errors"
	"fmt"
)

// errors
var (
	ErrNilDatabase          = errors.New("database is nil")
	ErrNilGrantStore        = errors.New("grant store is nil")
	ErrNilGrantMaintainer   = errors.New("grant maintainer is nil")
	ErrNilPermissionManager = errors.New("permission manager is nil")
	ErrNilContentSource     = errors.New("content source is nil")
	ErrNilChecker           = errors.New("access checker is nil")
	ErrNilAllocator         = errors.New("gid allocator is nil")
	ErrZeroItemID           = errors.New("content item id is zero")
)

// Realm tags this module's records inside the shared grant table so the
// host can tell them apart from other access-restricting modules
const Realm = "permissions_by_term"

// LanguageNotSpecified is the language value written for grants that do
// not target a specific translation
const LanguageNotSpecified = "und"

// Record is a denormalized per-content-item grant row consumed by the
// host's bulk-query filtering; it is fully derivable from the permission
// records and the item's term associations and is rebuildable at any time
type Record struct {
	ItemID   int64  `db:"content_item_id" json:"content_item_id"`
	Gid      uint32 `db:"gid" json:"gid"`
	View     bool   `db:"grant_view" json:"grant_view"`
	Update   bool   `db:"grant_update" json:"grant_update"`
	Delete   bool   `db:"grant_delete" json:"grant_delete"`
	Language string `db:"language" json:"language"`
	Realm    string `db:"realm" json:"realm"`
	Fallback bool   `db:"fallback" json:"fallback"`
}

// Validate performs a self-check
func (r Record) Validate() error {
	if r.ItemID == 0 {
		return ErrZeroItemID
	}

	if r.Realm == "" {
		return errors.New("grant record realm is empty")
	}

	return nil
}

// StringID returns short object info
func (r Record) StringID() string {
	return fmt.Sprintf("grant(%d:%d:%s)", r.ItemID, r.Gid, r.Realm)
}

// ContentSource is the host contract the maintainer reads items through;
// AllItemIDs feeds the full reindex pass
type ContentSource interface {
	TermIDsForItem(ctx context.Context, itemID int64) ([]int64, error)
	AllItemIDs(ctx context.Context) ([]int64, error)
}
