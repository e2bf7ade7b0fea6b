package permission_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/termacl/termacl/pkg/host"
	"github.com/termacl/termacl/pkg/permission"
)

func newTestManager(t *testing.T) (*permission.Manager, *host.MemoryDirectory) {
	a := assert.New(t)

	s, err := permission.NewMemoryStore()
	a.NoError(err)
	a.NotNil(s)

	directory := host.NewMemoryDirectory()

	m, err := permission.NewManager(s, directory)
	a.NoError(err)
	a.NotNil(m)

	return m, directory
}

func TestManager_SaveTermPermissions(t *testing.T) {
	a := assert.New(t)

	m, directory := newTestManager(t)
	ctx := context.Background()

	directory.AddUser(1)
	directory.AddUser(2)
	directory.AddRole(100)

	//---------------------------------------------------------------------------
	// initial save
	//---------------------------------------------------------------------------
	cs, err := m.SaveTermPermissions(ctx, 7, []int64{1, 2}, []int64{100})
	a.NoError(err)
	a.False(cs.IsEmpty())
	a.Len(cs.Added, 3)
	a.Len(cs.Deleted, 0)

	// round-trip: reading back yields exactly the submitted sets
	userIDs, err := m.AllowedUserIDs(ctx, 7)
	a.NoError(err)
	a.Equal([]int64{1, 2}, userIDs)

	roleIDs, err := m.AllowedRoleIDs(ctx, 7)
	a.NoError(err)
	a.Equal([]int64{100}, roleIDs)

	//---------------------------------------------------------------------------
	// saving the very same sets again must change nothing
	//---------------------------------------------------------------------------
	cs, err = m.SaveTermPermissions(ctx, 7, []int64{2, 1}, []int64{100})
	a.NoError(err)
	a.True(cs.IsEmpty())

	//---------------------------------------------------------------------------
	// full replace: dropping user 2, adding nothing
	//---------------------------------------------------------------------------
	cs, err = m.SaveTermPermissions(ctx, 7, []int64{1}, []int64{100})
	a.NoError(err)
	a.Len(cs.Added, 0)
	a.Len(cs.Deleted, 1)
	a.Equal(int64(2), cs.Deleted[0].PrincipalID)

	userIDs, err = m.AllowedUserIDs(ctx, 7)
	a.NoError(err)
	a.Equal([]int64{1}, userIDs)
}

func TestManager_SaveRejectsUnresolvedPrincipal(t *testing.T) {
	a := assert.New(t)

	m, directory := newTestManager(t)
	ctx := context.Background()

	directory.AddUser(1)

	// user 99 does not resolve, the whole submission is rejected
	_, err := m.SaveTermPermissions(ctx, 7, []int64{1, 99}, nil)
	a.Error(err)
	a.Equal(permission.ErrUnresolvedPrincipal, errors.Cause(err))

	// nothing must have been stored
	restricted, err := m.IsRestricted(ctx, 7)
	a.NoError(err)
	a.False(restricted)
}

func TestManager_DeleteAllForUser(t *testing.T) {
	a := assert.New(t)

	m, directory := newTestManager(t)
	ctx := context.Background()

	directory.AddUser(5)
	directory.AddRole(200)

	_, err := m.SaveTermPermissions(ctx, 7, []int64{5}, []int64{200})
	a.NoError(err)

	_, err = m.SaveTermPermissions(ctx, 8, []int64{5}, nil)
	a.NoError(err)

	a.NoError(m.DeleteAllForUser(ctx, 5))

	// user 5 is gone from every term
	userIDs, err := m.AllowedUserIDs(ctx, 7)
	a.NoError(err)
	a.NotContains(userIDs, int64(5))

	userIDs, err = m.AllowedUserIDs(ctx, 8)
	a.NoError(err)
	a.NotContains(userIDs, int64(5))

	// role records survive a user purge
	roleIDs, err := m.AllowedRoleIDs(ctx, 7)
	a.NoError(err)
	a.Equal([]int64{200}, roleIDs)
}
