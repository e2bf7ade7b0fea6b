package permission

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Manager is responsible for all term permission operations within its scope
type Manager struct {
	store    Store
	resolver PrincipalResolver
	logger   *zap.Logger
}

// NewManager initializes a new permission manager
// NOTE: the resolver is the host identity system; a save that references
// a principal unknown to the resolver is rejected as a validation error
func NewManager(store Store, resolver PrincipalResolver) (*Manager, error) {
	if store == nil {
		return nil, ErrNilPermissionStore
	}

	if resolver == nil {
		return nil, ErrNilPrincipalResolver
	}

	m := &Manager{
		store:    store,
		resolver: resolver,
	}

	return m, nil
}

// SetLogger assigns a logger for this manager
func (m *Manager) SetLogger(logger *zap.Logger) error {
	if logger != nil {
		logger = logger.Named("[permission]")
	}

	m.logger = logger

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
func (m *Manager) Logger() *zap.Logger {
	if m.logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(fmt.Errorf("failed to initialize permission manager logger: %s", err))
		}

		m.logger = l
	}

	return m.logger
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	if m.store == nil {
		panic(ErrNilPermissionStore)
	}

	return m.store
}

// AllowedUserIDs returns the ids of users explicitly allowed on a term, sorted
func (m *Manager) AllowedUserIDs(ctx context.Context, termID int64) ([]int64, error) {
	if termID == 0 {
		return nil, ErrZeroTermID
	}

	ids, err := m.Store().FetchUserIDs(ctx, termID)
	if err != nil {
		return nil, err
	}

	sortIDs(ids)

	return ids, nil
}

// AllowedRoleIDs returns the ids of roles explicitly allowed on a term, sorted
func (m *Manager) AllowedRoleIDs(ctx context.Context, termID int64) ([]int64, error) {
	if termID == 0 {
		return nil, ErrZeroTermID
	}

	ids, err := m.Store().FetchRoleIDs(ctx, termID)
	if err != nil {
		return nil, err
	}

	sortIDs(ids)

	return ids, nil
}

// IsRestricted reports whether a term has any permission records at all
func (m *Manager) IsRestricted(ctx context.Context, termID int64) (bool, error) {
	if termID == 0 {
		return false, ErrZeroTermID
	}

	return m.Store().HasAny(ctx, termID)
}

// RestrictedTermIDs returns every term id that carries a restriction
func (m *Manager) RestrictedTermIDs(ctx context.Context) ([]int64, error) {
	ids, err := m.Store().FetchRestrictedTermIDs(ctx)
	if err != nil {
		return nil, err
	}

	sortIDs(ids)

	return ids, nil
}

// SaveTermPermissions performs a full replace of a term's allowed-user and
// allowed-role sets: entries absent from the submission are deleted, new
// entries are inserted, and the returned changeset describes exactly what
// changed; an empty changeset means the caller may skip invalidation
// NOTE: two concurrent administrator saves for the same term are a
// last-writer-wins race; there is no optimistic concurrency control here
func (m *Manager) SaveTermPermissions(ctx context.Context, termID int64, userIDs, roleIDs []int64) (cs ChangeSet, err error) {
	if termID == 0 {
		return cs, ErrZeroTermID
	}

	// rejecting the whole submission upon the first unresolvable reference,
	// before any record is touched
	for _, id := range userIDs {
		if !m.resolver.UserExists(id) {
			return cs, errors.Wrapf(ErrUnresolvedPrincipal, "user %d", id)
		}
	}

	for _, id := range roleIDs {
		if !m.resolver.RoleExists(id) {
			return cs, errors.Wrapf(ErrUnresolvedPrincipal, "role %d", id)
		}
	}

	currentUsers, err := m.Store().FetchUserIDs(ctx, termID)
	if err != nil {
		return cs, err
	}

	currentRoles, err := m.Store().FetchRoleIDs(ctx, termID)
	if err != nil {
		return cs, err
	}

	// symmetric difference between stored and submitted sets, per kind
	addUsers, delUsers := diffIDs(currentUsers, userIDs)
	addRoles, delRoles := diffIDs(currentRoles, roleIDs)

	for _, id := range delUsers {
		r := Record{TermID: termID, Kind: KUser, PrincipalID: id}
		if err = m.Store().DeleteRecord(ctx, r); err != nil {
			return cs, errors.Wrapf(err, "failed to delete %s", r.StringID())
		}

		cs.Deleted = append(cs.Deleted, r)
	}

	for _, id := range delRoles {
		r := Record{TermID: termID, Kind: KRole, PrincipalID: id}
		if err = m.Store().DeleteRecord(ctx, r); err != nil {
			return cs, errors.Wrapf(err, "failed to delete %s", r.StringID())
		}

		cs.Deleted = append(cs.Deleted, r)
	}

	for _, id := range addUsers {
		r := Record{TermID: termID, Kind: KUser, PrincipalID: id}
		if err = m.Store().CreateRecord(ctx, r); err != nil {
			return cs, errors.Wrapf(err, "failed to create %s", r.StringID())
		}

		cs.Added = append(cs.Added, r)
	}

	for _, id := range addRoles {
		r := Record{TermID: termID, Kind: KRole, PrincipalID: id}
		if err = m.Store().CreateRecord(ctx, r); err != nil {
			return cs, errors.Wrapf(err, "failed to create %s", r.StringID())
		}

		cs.Added = append(cs.Added, r)
	}

	if !cs.IsEmpty() {
		m.Logger().Info(
			"term permissions replaced",
			zap.Int64("term_id", termID),
			zap.Int("added", len(cs.Added)),
			zap.Int("deleted", len(cs.Deleted)),
		)
	}

	return cs, nil
}

// DeleteAllForUser deletes every permission record held by a user,
// triggered by host user account cancellation
func (m *Manager) DeleteAllForUser(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrZeroPrincipalID
	}

	if err := m.Store().DeleteByPrincipal(ctx, KUser, userID); err != nil {
		return err
	}

	m.Logger().Info("permission records purged for cancelled user", zap.Int64("user_id", userID))

	return nil
}

// diffIDs computes (submitted minus stored, stored minus submitted)
// with deterministic order
func diffIDs(stored, submitted []int64) (added, deleted []int64) {
	storedSet := make(map[int64]bool, len(stored))
	submittedSet := make(map[int64]bool, len(submitted))

	for _, id := range stored {
		storedSet[id] = true
	}

	for _, id := range submitted {
		submittedSet[id] = true
	}

	for id := range submittedSet {
		if !storedSet[id] {
			added = append(added, id)
		}
	}

	for id := range storedSet {
		if !submittedSet[id] {
			deleted = append(deleted, id)
		}
	}

	sortIDs(added)
	sortIDs(deleted)

	return added, deleted
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
