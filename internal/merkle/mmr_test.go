package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/pkg/types"
)

func TestMMR_EmptyRootIsZero(t *testing.T) {
	m := NewMMR()
	require.True(t, m.Root().IsZero())
	require.Equal(t, uint64(0), m.Size())
}

func TestMMR_AppendChangesRoot(t *testing.T) {
	m := NewMMR()
	m.Append(types.DigestFromUint64s(1, 0, 0, 0))
	first := m.Root()
	require.False(t, first.IsZero())

	m.Append(types.DigestFromUint64s(2, 0, 0, 0))
	second := m.Root()
	require.False(t, second.Equal(first))
	require.Equal(t, uint64(2), m.Size())
}

func TestMMR_DeterministicForSameSequence(t *testing.T) {
	leaves := []types.Digest{
		types.DigestFromUint64s(1, 0, 0, 0),
		types.DigestFromUint64s(2, 0, 0, 0),
		types.DigestFromUint64s(3, 0, 0, 0),
		types.DigestFromUint64s(4, 0, 0, 0),
		types.DigestFromUint64s(5, 0, 0, 0),
	}

	m1 := NewMMR()
	m2 := NewMMR()
	for _, l := range leaves {
		m1.Append(l)
		m2.Append(l)
	}

	require.True(t, m1.Root().Equal(m2.Root()))
}

func TestMMR_DifferentOrderDifferentRoot(t *testing.T) {
	a := types.DigestFromUint64s(1, 0, 0, 0)
	b := types.DigestFromUint64s(2, 0, 0, 0)

	m1 := NewMMR()
	m1.Append(a)
	m1.Append(b)

	m2 := NewMMR()
	m2.Append(b)
	m2.Append(a)

	require.False(t, m1.Root().Equal(m2.Root()))
}
