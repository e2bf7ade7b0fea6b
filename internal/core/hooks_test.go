package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/termacl/termacl/internal/core"
	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/grant"
	"github.com/termacl/termacl/pkg/host"
	"github.com/termacl/termacl/pkg/permission"
	"github.com/termacl/termacl/pkg/term"
)

type recordInvalidator struct {
	tags []string
}

func (ri *recordInvalidator) Invalidate(tag string) {
	ri.tags = append(ri.tags, tag)
}

func (ri *recordInvalidator) reset() { ri.tags = nil }

type recordObserver struct {
	denied []int64
}

func (ro *recordObserver) AccessDenied(itemID int64) {
	ro.denied = append(ro.denied, itemID)
}

type fixture struct {
	core        *core.Core
	permissions *permission.Manager
	grants      grant.Store
	content     *host.MemoryContent
	directory   *host.MemoryDirectory
	invalidator *recordInvalidator
	observer    *recordObserver
}

func newFixture(t *testing.T) fixture {
	return newFixtureConfig(t, grant.Config{})
}

func newFixtureConfig(t *testing.T, config grant.Config) fixture {
	a := assert.New(t)

	ps, err := permission.NewMemoryStore()
	a.NoError(err)

	ts, err := term.NewMemoryStore()
	a.NoError(err)

	gs, err := grant.NewMemoryStore()
	a.NoError(err)

	directory := host.NewMemoryDirectory()
	content := host.NewMemoryContent()

	pm, err := permission.NewManager(ps, directory)
	a.NoError(err)

	tm, err := term.NewManager(ts)
	a.NoError(err)

	checker, err := access.NewChecker(pm, tm, content, access.Config{})
	a.NoError(err)

	gm, err := grant.NewMaintainer(gs, pm, content, checker, config)
	a.NoError(err)
	a.NoError(gm.SetLogger(zap.NewNop()))

	invalidator := &recordInvalidator{}
	observer := &recordObserver{}
	identity := host.StaticIdentity{Principal: access.Principal{UserID: 1}}

	c, err := core.New(pm, tm, checker, gm, identity, content, invalidator, observer)
	a.NoError(err)
	a.NotNil(c)
	a.NoError(c.SetLogger(zap.NewNop()))

	return fixture{
		core:        c,
		permissions: pm,
		grants:      gs,
		content:     content,
		directory:   directory,
		invalidator: invalidator,
		observer:    observer,
	}
}

func TestCore_OnAccessCheckUnpublished(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.content.PutItem(42, false)

	// unpublished denies everyone without the bypass capability, even
	// when no term restricts the item
	allowed, err := f.core.OnAccessCheck(ctx, 42, access.OpView, access.Principal{UserID: 1})
	a.NoError(err)
	a.False(allowed)
	a.Equal([]int64{42}, f.observer.denied)

	// bypass short-circuits before publication is even consulted
	admin := access.Principal{
		UserID:       2,
		Capabilities: map[string]bool{access.CapBypassAccess: true},
	}

	allowed, err = f.core.OnAccessCheck(ctx, 42, access.OpView, admin)
	a.NoError(err)
	a.True(allowed)
	a.Len(f.observer.denied, 1)
}

func TestCore_OnAccessCheckTermPredicate(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.directory.AddRole(300)
	f.directory.AddUser(9)

	_, err := f.permissions.SaveTermPermissions(ctx, 7, nil, []int64{300})
	a.NoError(err)

	_, err = f.permissions.SaveTermPermissions(ctx, 8, []int64{9}, nil)
	a.NoError(err)

	// item 10 carries term 7 only, item 11 carries both terms
	f.content.PutItem(10, true, 7)
	f.content.PutItem(11, true, 7, 8)

	editor := access.Principal{UserID: 5, RoleIDs: []int64{300}}

	allowed, err := f.core.OnAccessCheck(ctx, 10, access.OpView, editor)
	a.NoError(err)
	a.True(allowed)

	// the editor's role covers term 7 but nothing allows them term 8,
	// and every restricted term must individually allow the principal
	allowed, err = f.core.OnAccessCheck(ctx, 11, access.OpView, editor)
	a.NoError(err)
	a.False(allowed)

	niner := access.Principal{UserID: 9, RoleIDs: []int64{300}}

	allowed, err = f.core.OnAccessCheck(ctx, 11, access.OpView, niner)
	a.NoError(err)
	a.True(allowed)
}

func TestCore_OnAccessCheckOperationGating(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.content.PutItem(10, true)

	viewer := access.Principal{UserID: 5}

	// the item is open, but update grants are off in this configuration;
	// the single-item answer must match the grant record flags
	allowed, err := f.core.OnAccessCheck(ctx, 10, access.OpView, viewer)
	a.NoError(err)
	a.True(allowed)

	allowed, err = f.core.OnAccessCheck(ctx, 10, access.OpUpdate, viewer)
	a.NoError(err)
	a.False(allowed)

	allowed, err = f.core.OnAccessCheck(ctx, 10, access.OpDelete, viewer)
	a.NoError(err)
	a.False(allowed)

	// bypass stays absolute
	admin := access.Principal{
		UserID:       2,
		Capabilities: map[string]bool{access.CapBypassAccess: true},
	}

	allowed, err = f.core.OnAccessCheck(ctx, 10, access.OpUpdate, admin)
	a.NoError(err)
	a.True(allowed)

	// with update grants switched on, both views of the policy agree again
	g := newFixtureConfig(t, grant.Config{GrantUpdate: true})
	g.content.PutItem(10, true)

	allowed, err = g.core.OnAccessCheck(ctx, 10, access.OpUpdate, viewer)
	a.NoError(err)
	a.True(allowed)

	allowed, err = g.core.OnAccessCheck(ctx, 10, access.OpDelete, viewer)
	a.NoError(err)
	a.False(allowed)
}

func TestCore_OnItemInsert(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.content.PutItem(10, true)

	a.NoError(f.core.OnItemInsert(ctx, 10))

	rs, err := f.grants.FetchByItem(ctx, 10)
	a.NoError(err)
	a.Len(rs, 1)
	a.Equal(grant.Realm, rs[0].Realm)

	a.Equal([]string{core.ItemTag(10)}, f.invalidator.tags)
}

func TestCore_OnTermFormSubmit(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.directory.AddRole(300)
	f.content.PutItem(10, true, 7)
	f.content.PutItem(11, true, 7)

	a.NoError(f.core.OnTermFormSubmit(ctx, 7, nil, []int64{300}))
	a.Equal(
		[]string{core.ItemTag(10), core.ItemTag(11), core.TagGrants},
		f.invalidator.tags,
	)

	rs, err := f.grants.FetchByItem(ctx, 10)
	a.NoError(err)
	a.Len(rs, 1)

	// resubmitting the same sets changes nothing and must not signal
	f.invalidator.reset()

	a.NoError(f.core.OnTermFormSubmit(ctx, 7, nil, []int64{300}))
	a.Len(f.invalidator.tags, 0)
}

func TestCore_OnTermFormSubmitUnresolved(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.content.PutItem(10, true, 7)

	// user 99 does not exist: the whole submission is rejected and no
	// recomputation or invalidation happens
	err := f.core.OnTermFormSubmit(ctx, 7, []int64{99}, nil)
	a.Error(err)
	a.Len(f.invalidator.tags, 0)

	rs, err := f.grants.FetchByItem(ctx, 10)
	a.NoError(err)
	a.Len(rs, 0)
}

func TestCore_OnUserCancelled(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.directory.AddUser(9)
	f.directory.AddRole(300)

	_, err := f.permissions.SaveTermPermissions(ctx, 7, []int64{9}, []int64{300})
	a.NoError(err)

	f.content.PutItem(10, true, 7)

	a.NoError(f.core.RebuildAll(ctx))
	f.invalidator.reset()

	a.NoError(f.core.OnUserCancelled(ctx, 9))
	a.Equal([]string{core.TagGrants}, f.invalidator.tags)

	// user records are gone, the role record survives
	userIDs, err := f.permissions.AllowedUserIDs(ctx, 7)
	a.NoError(err)
	a.Len(userIDs, 0)

	roleIDs, err := f.permissions.AllowedRoleIDs(ctx, 7)
	a.NoError(err)
	a.Equal([]int64{300}, roleIDs)

	// the cancelled user no longer joins the bucket, the role still does
	gids, err := f.core.OnGrantsRequested(ctx, access.Principal{UserID: 9}, access.OpView)
	a.NoError(err)
	a.Len(gids, 0)

	gids, err = f.core.OnGrantsRequested(ctx, access.Principal{UserID: 2, RoleIDs: []int64{300}}, access.OpView)
	a.NoError(err)
	a.Len(gids, 1)
}

func TestCore_OnGrantRecordsRequested(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.content.PutItem(10, true)

	// pure compute: nothing is written to the store
	rs, err := f.core.OnGrantRecordsRequested(ctx, 10)
	a.NoError(err)
	a.Len(rs, 1)
	a.True(rs[0].View)
	a.True(rs[0].Fallback)

	stored, err := f.grants.FetchByItem(ctx, 10)
	a.NoError(err)
	a.Len(stored, 0)
}
