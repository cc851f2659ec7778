package grpcstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/pkg/types"
)

func TestDigestHexRoundTrip(t *testing.T) {
	d := types.DigestFromUint64s(1, 2, 3, 4)
	decoded, err := digestFromHex(digestToHex(d))
	require.NoError(t, err)
	require.True(t, d.Equal(decoded))
}

func TestHeaderWireRoundTrip(t *testing.T) {
	h := &types.BlockHeader{
		PrevHash:      types.DigestFromUint64s(1, 0, 0, 0),
		BlockNum:      7,
		ChainRoot:     types.DigestFromUint64s(2, 0, 0, 0),
		AccountRoot:   types.DigestFromUint64s(3, 0, 0, 0),
		NullifierRoot: types.DigestFromUint64s(4, 0, 0, 0),
		NoteRoot:      types.DigestFromUint64s(5, 0, 0, 0),
		BatchRoot:     types.DigestFromUint64s(6, 0, 0, 0),
		Version:       1,
	}
	decoded, err := headerFromWire(headerToWire(h))
	require.NoError(t, err)
	require.Equal(t, h.BlockNum, decoded.BlockNum)
	require.True(t, h.AccountRoot.Equal(decoded.AccountRoot))
	require.True(t, h.ChainRoot.Equal(decoded.ChainRoot))
}

func TestOptionalDigestFromHex_Empty(t *testing.T) {
	d, err := optionalDigestFromHex("")
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestMerklePathWireRoundTrip(t *testing.T) {
	path := merkle.MerklePath{
		LeafIndex: 21,
		Siblings: []types.Digest{
			types.DigestFromUint64s(1, 0, 0, 0),
			types.DigestFromUint64s(2, 0, 0, 0),
		},
	}
	decoded, err := merklePathFromWire(merklePathToWire(path))
	require.NoError(t, err)
	require.Equal(t, path.LeafIndex, decoded.LeafIndex)
	require.Len(t, decoded.Siblings, len(path.Siblings))
	for i := range path.Siblings {
		require.True(t, path.Siblings[i].Equal(decoded.Siblings[i]))
	}
}
