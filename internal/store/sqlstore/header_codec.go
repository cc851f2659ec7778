package sqlstore

import (
	"encoding/binary"
	"fmt"

	"github.com/ccoin/blockproducer/pkg/types"
)

// encodeHeader serializes a BlockHeader as six fixed-width 128-byte digest
// fields followed by the block number, version, and timestamp — a flat
// layout chosen for a single BYTEA column rather than six separate ones.
func encodeHeader(h *types.BlockHeader) []byte {
	buf := make([]byte, 0, 128*6+4+4+8)
	buf = append(buf, h.PrevHash.Bytes()...)
	buf = append(buf, h.ChainRoot.Bytes()...)
	buf = append(buf, h.AccountRoot.Bytes()...)
	buf = append(buf, h.NullifierRoot.Bytes()...)
	buf = append(buf, h.NoteRoot.Bytes()...)
	buf = append(buf, h.BatchRoot.Bytes()...)
	var tail [16]byte
	binary.BigEndian.PutUint32(tail[0:4], h.BlockNum)
	binary.BigEndian.PutUint32(tail[4:8], h.Version)
	binary.BigEndian.PutUint64(tail[8:16], h.Timestamp)
	return append(buf, tail[:]...)
}

func decodeHeader(b []byte) (*types.BlockHeader, error) {
	const digestLen = 128
	want := digestLen*6 + 16
	if len(b) != want {
		return nil, fmt.Errorf("sqlstore: header blob must be %d bytes, got %d", want, len(b))
	}

	digests := make([]types.Digest, 6)
	for i := 0; i < 6; i++ {
		d, err := types.DigestFromBytes(b[i*digestLen : (i+1)*digestLen])
		if err != nil {
			return nil, fmt.Errorf("sqlstore: decode header digest %d: %w", i, err)
		}
		digests[i] = d
	}
	tail := b[6*digestLen:]
	return &types.BlockHeader{
		PrevHash:      digests[0],
		ChainRoot:     digests[1],
		AccountRoot:   digests[2],
		NullifierRoot: digests[3],
		NoteRoot:      digests[4],
		BatchRoot:     digests[5],
		BlockNum:      binary.BigEndian.Uint32(tail[0:4]),
		Version:       binary.BigEndian.Uint32(tail[4:8]),
		Timestamp:     binary.BigEndian.Uint64(tail[8:16]),
	}, nil
}
