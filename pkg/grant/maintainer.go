package grant

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/permission"
)

// Config carries grant maintainer behaviour switches; view is always
// granted to bucket members, update and delete are opt-in because term
// permissions primarily govern visibility
type Config struct {
	GrantUpdate bool `json:"grant_update"`
	GrantDelete bool `json:"grant_delete"`
}

// Maintainer keeps the denormalized grant table consistent with the
// permission records and term associations it is derived from; it is
// write-side only, the decision engine never reads grants back
type Maintainer struct {
	store       Store
	permissions *permission.Manager
	content     ContentSource
	checker     *access.Checker
	config      Config
	logger      *zap.Logger
}

// NewMaintainer initializes a grant maintainer with explicit collaborators
func NewMaintainer(store Store, pm *permission.Manager, content ContentSource, checker *access.Checker, config Config) (*Maintainer, error) {
	if store == nil {
		return nil, ErrNilGrantStore
	}

	if pm == nil {
		return nil, ErrNilPermissionManager
	}

	if content == nil {
		return nil, ErrNilContentSource
	}

	if checker == nil {
		return nil, ErrNilChecker
	}

	m := &Maintainer{
		store:       store,
		permissions: pm,
		content:     content,
		checker:     checker,
		config:      config,
	}

	return m, nil
}

// SetLogger assigns a logger for this maintainer
func (m *Maintainer) SetLogger(logger *zap.Logger) error {
	if logger != nil {
		logger = logger.Named("[grant]")
	}

	m.logger = logger

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
func (m *Maintainer) Logger() *zap.Logger {
	if m.logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(fmt.Errorf("failed to initialize grant maintainer logger: %s", err))
		}

		m.logger = l
	}

	return m.logger
}

// Store returns the underlying store
func (m *Maintainer) Store() Store {
	if m.store == nil {
		panic(ErrNilGrantStore)
	}

	return m.store
}

// Permits reports whether this configuration grants an operation at all:
// view is always granted to bucket members, update and delete only when
// switched on; the single-item path must answer the same way the grant
// record flags do
func (m *Maintainer) Permits(op access.Operation) bool {
	switch op {
	case access.OpView:
		return true
	case access.OpUpdate:
		return m.config.GrantUpdate
	case access.OpDelete:
		return m.config.GrantDelete
	default:
		return false
	}
}

// SignatureForItem fingerprints an item's current access configuration;
// terms without any permission record do not participate in restriction
// and are filtered out before hashing
func (m *Maintainer) SignatureForItem(ctx context.Context, itemID int64) (Signature, error) {
	if itemID == 0 {
		return 0, ErrZeroItemID
	}

	termIDs, err := m.content.TermIDsForItem(ctx, itemID)
	if err != nil {
		return 0, err
	}

	restricted := make([]int64, 0, len(termIDs))
	for _, termID := range termIDs {
		ok, err := m.permissions.IsRestricted(ctx, termID)
		if err != nil {
			return 0, err
		}

		if ok {
			restricted = append(restricted, termID)
		}
	}

	sort.Slice(restricted, func(i, j int) bool { return restricted[i] < restricted[j] })

	userIDs := make(map[int64][]int64, len(restricted))
	roleIDs := make(map[int64][]int64, len(restricted))

	for _, termID := range restricted {
		// manager results are already sorted, which the signature requires
		if userIDs[termID], err = m.permissions.AllowedUserIDs(ctx, termID); err != nil {
			return 0, err
		}

		if roleIDs[termID], err = m.permissions.AllowedRoleIDs(ctx, termID); err != nil {
			return 0, err
		}
	}

	return NewSignature(restricted, userIDs, roleIDs), nil
}

// NewPassAllocator creates an allocator for one maintenance pass, seeded
// above the highest gid already stored so no retired gid is ever reused
func (m *Maintainer) NewPassAllocator(ctx context.Context) (*Allocator, error) {
	seed, err := m.Store().MaxGid(ctx)
	if err != nil {
		return nil, err
	}

	return NewAllocator(seed), nil
}

// PrimeAllocator binds the stored gid of every existing bucket to its
// current configuration signature, so recomputing an unchanged item
// yields bit-identical records instead of burning a fresh gid
// NOTE: a gid is adopted only when every item in its bucket still hashes
// to one signature; once a source change splits a bucket, rebinding the
// stored gid to either half would leave the other half filtered under a
// configuration that is no longer theirs, so the changed items move to a
// fresh gid instead
func (m *Maintainer) PrimeAllocator(ctx context.Context, alloc *Allocator) error {
	if alloc == nil {
		return ErrNilAllocator
	}

	rs, err := m.Store().FetchAll(ctx)
	if err != nil {
		return err
	}

	buckets := make(map[uint32][]int64)
	for _, r := range rs {
		buckets[r.Gid] = append(buckets[r.Gid], r.ItemID)
	}

	for gid, itemIDs := range buckets {
		var sig Signature
		coherent := true

		for i, itemID := range itemIDs {
			s, err := m.SignatureForItem(ctx, itemID)
			if err != nil {
				return errors.Wrapf(err, "failed to fingerprint item %d", itemID)
			}

			if i == 0 {
				sig = s
				continue
			}

			if s != sig {
				coherent = false
				break
			}
		}

		if !coherent {
			m.Logger().Debug("grant bucket diverged, retiring gid", zap.Uint32("gid", gid))
			continue
		}

		alloc.Adopt(sig, gid)
	}

	return nil
}

// RecordsForItem computes the grant records for a content item without
// touching storage; idempotent, two calls with no intervening permission
// change produce bit-identical records
func (m *Maintainer) RecordsForItem(ctx context.Context, itemID int64, alloc *Allocator) ([]Record, error) {
	if alloc == nil {
		return nil, ErrNilAllocator
	}

	sig, err := m.SignatureForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	r := Record{
		ItemID:   itemID,
		Gid:      alloc.GidFor(sig),
		View:     true,
		Update:   m.config.GrantUpdate,
		Delete:   m.config.GrantDelete,
		Language: LanguageNotSpecified,
		Realm:    Realm,
		Fallback: true,
	}

	return []Record{r}, nil
}

// ApplyForItem recomputes and rewrites the grant records of one item
func (m *Maintainer) ApplyForItem(ctx context.Context, itemID int64, alloc *Allocator) error {
	rs, err := m.RecordsForItem(ctx, itemID, alloc)
	if err != nil {
		return err
	}

	if err = m.Store().DeleteByItem(ctx, itemID); err != nil {
		return err
	}

	for _, r := range rs {
		if err = m.Store().CreateRecord(ctx, r); err != nil {
			return errors.Wrapf(err, "failed to store %s", r.StringID())
		}
	}

	return nil
}

// RecomputeItem is the single-item maintenance entry point used by the
// content-insert and permission-change paths: one primed allocator per
// invocation, discarded afterwards
func (m *Maintainer) RecomputeItem(ctx context.Context, itemID int64) error {
	alloc, err := m.NewPassAllocator(ctx)
	if err != nil {
		return err
	}

	if err = m.PrimeAllocator(ctx, alloc); err != nil {
		return err
	}

	return m.ApplyForItem(ctx, itemID, alloc)
}

// RebuildAll wipes and rebuilds this realm's entire grant table from
// source data with a single fresh allocator
// NOTE: passes must not run concurrently; the caller serializes them
func (m *Maintainer) RebuildAll(ctx context.Context) error {
	seed, err := m.Store().MaxGid(ctx)
	if err != nil {
		return err
	}

	itemIDs, err := m.content.AllItemIDs(ctx)
	if err != nil {
		return err
	}

	if err = m.Store().DeleteAll(ctx); err != nil {
		return err
	}

	alloc := NewAllocator(seed)

	for _, itemID := range itemIDs {
		if err = m.ApplyForItem(ctx, itemID, alloc); err != nil {
			return errors.Wrapf(err, "rebuild failed at item %d", itemID)
		}
	}

	m.Logger().Info(
		"grant table rebuilt",
		zap.Int("items", len(itemIDs)),
		zap.Uint32("gid_seed", seed),
	)

	return nil
}

// GidsForPrincipal returns the grant buckets a principal belongs to for
// an operation, for the host's bulk-query joins; membership is evaluated
// against source permissions via the decision engine, never against the
// grant table contents themselves
func (m *Maintainer) GidsForPrincipal(ctx context.Context, p access.Principal, op access.Operation) ([]uint32, error) {
	rs, err := m.Store().FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[uint32]int64)
	flags := make(map[uint32]bool)

	for _, r := range rs {
		if rep, ok := buckets[r.Gid]; !ok || r.ItemID < rep {
			buckets[r.Gid] = r.ItemID
		}

		switch op {
		case access.OpView:
			flags[r.Gid] = r.View
		case access.OpUpdate:
			flags[r.Gid] = r.Update
		case access.OpDelete:
			flags[r.Gid] = r.Delete
		}
	}

	gids := make([]uint32, 0, len(buckets))

	for gid, itemID := range buckets {
		if !flags[gid] {
			continue
		}

		allowed, err := m.checker.Allowed(ctx, itemID, p)
		if err != nil {
			return nil, err
		}

		if allowed {
			gids = append(gids, gid)
		}
	}

	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

	return gids, nil
}
