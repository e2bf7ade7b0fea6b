package grant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/termacl/termacl/pkg/grant"
)

func TestAllocator_Monotonic(t *testing.T) {
	a := assert.New(t)

	alloc := grant.NewAllocator(0)

	sigA := grant.NewSignature([]int64{7}, map[int64][]int64{7: {1}}, map[int64][]int64{})
	sigB := grant.NewSignature([]int64{7}, map[int64][]int64{7: {2}}, map[int64][]int64{})

	gidA := alloc.GidFor(sigA)
	gidB := alloc.GidFor(sigB)

	// distinct configurations never share a gid
	a.NotEqual(gidA, gidB)
	a.True(gidB > gidA)

	// an equivalent configuration reuses its gid
	a.Equal(gidA, alloc.GidFor(sigA))
}

func TestAllocator_SeededAboveStore(t *testing.T) {
	a := assert.New(t)

	alloc := grant.NewAllocator(41)

	sig := grant.NewSignature(nil, nil, nil)

	// a fresh allocation never dips into already-stored gid space
	a.Equal(uint32(42), alloc.GidFor(sig))
}

func TestAllocator_Adopt(t *testing.T) {
	a := assert.New(t)

	alloc := grant.NewAllocator(0)

	sig := grant.NewSignature([]int64{9}, map[int64][]int64{9: {3}}, map[int64][]int64{9: {100}})

	alloc.Adopt(sig, 17)

	// the adopted binding wins and pushes the watermark past it
	a.Equal(uint32(17), alloc.GidFor(sig))

	other := grant.NewSignature([]int64{10}, nil, nil)
	a.Equal(uint32(18), alloc.GidFor(other))
}

func TestSignature_OrderIndependence(t *testing.T) {
	a := assert.New(t)

	// the maintainer sorts before hashing; equal sorted inputs must
	// always produce equal signatures
	users := map[int64][]int64{7: {1, 2}, 8: {3}}
	roles := map[int64][]int64{7: {100}}

	s1 := grant.NewSignature([]int64{7, 8}, users, roles)
	s2 := grant.NewSignature([]int64{7, 8}, users, roles)

	a.Equal(s1, s2)

	// and a different configuration must not collide
	s3 := grant.NewSignature([]int64{7, 8}, map[int64][]int64{7: {1, 2}, 8: {4}}, roles)
	a.NotEqual(s1, s3)
}
