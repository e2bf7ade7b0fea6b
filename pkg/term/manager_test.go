package term_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/termacl/termacl/pkg/term"
)

func TestManager_Register(t *testing.T) {
	a := assert.New(t)

	s, err := term.NewMemoryStore()
	a.NoError(err)
	a.NotNil(s)

	m, err := term.NewManager(s)
	a.NoError(err)
	a.NotNil(m)

	// blank context
	ctx := context.Background()

	t1, err := term.NewTerm(1, "internal")
	a.NoError(err)

	t1, err = m.Register(ctx, t1)
	a.NoError(err)
	a.Equal(int64(1), t1.ID)

	// zero id must be rejected, term identity is host-assigned
	_, err = term.NewTerm(0, "orphan")
	a.Error(err)

	// empty name must be rejected
	_, err = term.NewTerm(2, "  ")
	a.Error(err)
}

func TestManager_ResolveByName(t *testing.T) {
	a := assert.New(t)

	s, err := term.NewMemoryStore()
	a.NoError(err)

	m, err := term.NewManager(s)
	a.NoError(err)

	ctx := context.Background()

	t1, err := term.NewTerm(7, "restricted")
	a.NoError(err)

	_, err = m.Register(ctx, t1)
	a.NoError(err)

	id, err := m.ResolveByName(ctx, "restricted")
	a.NoError(err)
	a.Equal(int64(7), id)

	// unknown name yields ErrTermNotFound, never a silent zero id
	_, err = m.ResolveByName(ctx, "no such term")
	a.Error(err)
	a.Equal(term.ErrTermNotFound, err)
}

func TestManager_Ancestors(t *testing.T) {
	a := assert.New(t)

	s, err := term.NewMemoryStore()
	a.NoError(err)

	m, err := term.NewManager(s)
	a.NoError(err)

	ctx := context.Background()

	//---------------------------------------------------------------------------
	// building a small taxonomy
	//
	//        10
	//       /  \
	//     11    12
	//       \  /
	//        13
	//---------------------------------------------------------------------------
	for id, name := range map[int64]string{10: "root", 11: "left", 12: "right", 13: "leaf"} {
		tt, err := term.NewTerm(id, name)
		a.NoError(err)

		_, err = m.Register(ctx, tt)
		a.NoError(err)
	}

	a.NoError(m.AddParent(ctx, 11, 10))
	a.NoError(m.AddParent(ctx, 12, 10))
	a.NoError(m.AddParent(ctx, 13, 11))
	a.NoError(m.AddParent(ctx, 13, 12))

	// root has no ancestors
	ancestors, err := m.Ancestors(ctx, 10)
	a.NoError(err)
	a.Len(ancestors, 0)

	// leaf sees both parents and the shared grandparent exactly once
	ancestors, err = m.Ancestors(ctx, 13)
	a.NoError(err)
	a.ElementsMatch([]int64{11, 12, 10}, ancestors)
}

func TestManager_AncestorsCycle(t *testing.T) {
	a := assert.New(t)

	s, err := term.NewMemoryStore()
	a.NoError(err)

	m, err := term.NewManager(s)
	a.NoError(err)

	ctx := context.Background()

	for id, name := range map[int64]string{20: "alpha", 21: "beta", 22: "gamma"} {
		tt, err := term.NewTerm(id, name)
		a.NoError(err)

		_, err = m.Register(ctx, tt)
		a.NoError(err)
	}

	// a term can never be its own parent
	a.Equal(term.ErrCircuitedHierarchy, m.AddParent(ctx, 20, 20))

	// building a cycle through the store directly: 20 -> 21 -> 22 -> 20
	a.NoError(m.AddParent(ctx, 20, 21))
	a.NoError(m.AddParent(ctx, 21, 22))
	a.NoError(m.AddParent(ctx, 22, 20))

	// traversal must fail instead of looping forever
	_, err = m.Ancestors(ctx, 20)
	a.Error(err)
	a.Equal(term.ErrCircuitedHierarchy, err)
}
