package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/host"
	"github.com/termacl/termacl/pkg/permission"
	"github.com/termacl/termacl/pkg/term"
)

type fixture struct {
	permissions *permission.Manager
	terms       *term.Manager
	content     *host.MemoryContent
	directory   *host.MemoryDirectory
}

func newFixture(t *testing.T) fixture {
	a := assert.New(t)

	ps, err := permission.NewMemoryStore()
	a.NoError(err)

	ts, err := term.NewMemoryStore()
	a.NoError(err)

	directory := host.NewMemoryDirectory()

	pm, err := permission.NewManager(ps, directory)
	a.NoError(err)

	tm, err := term.NewManager(ts)
	a.NoError(err)

	return fixture{
		permissions: pm,
		terms:       tm,
		content:     host.NewMemoryContent(),
		directory:   directory,
	}
}

func (f fixture) checker(t *testing.T, config access.Config) *access.Checker {
	a := assert.New(t)

	c, err := access.NewChecker(f.permissions, f.terms, f.content, config)
	a.NoError(err)
	a.NotNil(c)

	return c
}

func TestChecker_DefaultOpen(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	c := f.checker(t, access.Config{})
	ctx := context.Background()

	// item 1 carries no terms at all
	f.content.PutItem(1, true)

	// item 2 carries a term that nobody ever restricted
	f.content.PutItem(2, true, 55)

	nobody := access.Principal{UserID: 42}

	allowed, err := c.Allowed(ctx, 1, nobody)
	a.NoError(err)
	a.True(allowed)

	allowed, err = c.Allowed(ctx, 2, nobody)
	a.NoError(err)
	a.True(allowed)
}

func TestChecker_RoleAllow(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	c := f.checker(t, access.Config{})
	ctx := context.Background()

	f.directory.AddRole(300)

	// term 7 is restricted to role 300 ("editor")
	_, err := f.permissions.SaveTermPermissions(ctx, 7, nil, []int64{300})
	a.NoError(err)

	f.content.PutItem(10, true, 7)

	editor := access.Principal{UserID: 1, RoleIDs: []int64{300}}
	outsider := access.Principal{UserID: 2, RoleIDs: []int64{301}}

	allowed, err := c.Allowed(ctx, 10, editor)
	a.NoError(err)
	a.True(allowed)

	allowed, err = c.Allowed(ctx, 10, outsider)
	a.NoError(err)
	a.False(allowed)
}

func TestChecker_ConjunctiveTerms(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	c := f.checker(t, access.Config{})
	ctx := context.Background()

	f.directory.AddRole(300)
	f.directory.AddUser(9)

	// term 7 allows role 300, term 8 allows only user 9
	_, err := f.permissions.SaveTermPermissions(ctx, 7, nil, []int64{300})
	a.NoError(err)

	_, err = f.permissions.SaveTermPermissions(ctx, 8, []int64{9}, nil)
	a.NoError(err)

	// item 11 carries both terms; every restriction must be satisfied
	f.content.PutItem(11, true, 7, 8)

	editor := access.Principal{UserID: 1, RoleIDs: []int64{300}}

	allowed, err := c.Allowed(ctx, 11, editor)
	a.NoError(err)
	a.False(allowed)

	// user 9 with the editor role satisfies both terms
	niner := access.Principal{UserID: 9, RoleIDs: []int64{300}}

	allowed, err = c.Allowed(ctx, 11, niner)
	a.NoError(err)
	a.True(allowed)
}

func TestChecker_AncestorInheritance(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	ctx := context.Background()

	f.directory.AddUser(4)

	// parent term 30 allows user 4; child term 31 is restricted to
	// somebody else entirely
	f.directory.AddUser(5)

	_, err := f.permissions.SaveTermPermissions(ctx, 30, []int64{4}, nil)
	a.NoError(err)

	_, err = f.permissions.SaveTermPermissions(ctx, 31, []int64{5}, nil)
	a.NoError(err)

	for id, name := range map[int64]string{30: "parent", 31: "child"} {
		tt, err := term.NewTerm(id, name)
		a.NoError(err)

		_, err = f.terms.Register(ctx, tt)
		a.NoError(err)
	}

	a.NoError(f.terms.AddParent(ctx, 31, 30))

	f.content.PutItem(20, true, 31)

	four := access.Principal{UserID: 4}

	// inheritance disabled: the child's own allow list decides
	c := f.checker(t, access.Config{})

	allowed, err := c.Allowed(ctx, 20, four)
	a.NoError(err)
	a.False(allowed)

	// inheritance enabled: the ancestor allow satisfies the child
	c = f.checker(t, access.Config{InheritAncestors: true})

	allowed, err = c.Allowed(ctx, 20, four)
	a.NoError(err)
	a.True(allowed)
}

func TestChecker_MalformedHierarchyStaysDeny(t *testing.T) {
	a := assert.New(t)

	f := newFixture(t)
	c := f.checker(t, access.Config{InheritAncestors: true})
	ctx := context.Background()

	f.directory.AddUser(6)

	_, err := f.permissions.SaveTermPermissions(ctx, 40, []int64{6}, nil)
	a.NoError(err)

	for id, name := range map[int64]string{40: "looped", 41: "loopedtoo"} {
		tt, err := term.NewTerm(id, name)
		a.NoError(err)

		_, err = f.terms.Register(ctx, tt)
		a.NoError(err)
	}

	// 40 -> 41 -> 40 is a malformed hierarchy
	a.NoError(f.terms.AddParent(ctx, 40, 41))
	a.NoError(f.terms.AddParent(ctx, 41, 40))

	f.content.PutItem(30, true, 40)

	// user 6 is explicitly allowed on term 40 itself, the cycle is
	// irrelevant for them
	allowed, err := c.Allowed(ctx, 30, access.Principal{UserID: 6})
	a.NoError(err)
	a.True(allowed)

	// a stranger falls through to inheritance, which detects the cycle
	// and must resolve to deny instead of erroring the decision
	allowed, err = c.Allowed(ctx, 30, access.Principal{UserID: 7})
	a.NoError(err)
	a.False(allowed)
}
