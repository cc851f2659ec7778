package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/pkg/types"
)

func TestHeaderCodecRoundTrip(t *testing.T) {
	h := &types.BlockHeader{
		PrevHash:      types.DigestFromUint64s(1, 0, 0, 0),
		BlockNum:      42,
		ChainRoot:     types.DigestFromUint64s(2, 0, 0, 0),
		AccountRoot:   types.DigestFromUint64s(3, 0, 0, 0),
		NullifierRoot: types.DigestFromUint64s(4, 0, 0, 0),
		NoteRoot:      types.DigestFromUint64s(5, 0, 0, 0),
		BatchRoot:     types.DigestFromUint64s(6, 0, 0, 0),
		Version:       1,
		Timestamp:     1234567890,
	}

	decoded, err := decodeHeader(encodeHeader(h))
	require.NoError(t, err)
	require.Equal(t, h.BlockNum, decoded.BlockNum)
	require.Equal(t, h.Version, decoded.Version)
	require.Equal(t, h.Timestamp, decoded.Timestamp)
	require.True(t, h.PrevHash.Equal(decoded.PrevHash))
	require.True(t, h.ChainRoot.Equal(decoded.ChainRoot))
	require.True(t, h.AccountRoot.Equal(decoded.AccountRoot))
}

func TestDecodeHeader_WrongLength(t *testing.T) {
	_, err := decodeHeader([]byte{1, 2, 3})
	require.Error(t, err)
}
