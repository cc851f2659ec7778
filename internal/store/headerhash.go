package store

import (
	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/pkg/types"
)

// HeaderDigest combines a committed block header's fields into the single
// digest the chain MMR appends as a leaf. Folded pairwise the same way
// internal/merkle combines tree nodes, so header hashing and tree node
// hashing share one primitive rather than two independent ones.
func HeaderDigest(h *types.BlockHeader) types.Digest {
	d := merkle.CombineHash(h.PrevHash, h.AccountRoot)
	d = merkle.CombineHash(d, h.NullifierRoot)
	d = merkle.CombineHash(d, h.NoteRoot)
	d = merkle.CombineHash(d, h.ChainRoot)
	d = merkle.CombineHash(d, h.BatchRoot)
	blockNumDigest := merkle.HashLeaf(uint64(h.BlockNum))
	return merkle.CombineHash(d, blockNumDigest)
}
