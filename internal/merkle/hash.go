// Package merkle implements the bit-exact tree constructions the block
// kernel relies on: the account/nullifier sparse Merkle trees, the
// depth-21 created-notes tree, and the chain Merkle Mountain Range
// combine hashes.
//
// Node hashing is adapted from CommitmentTree.hashPair
// (internal/zkp/merkle.go), generalized from a plain sha256 combine to a
// domain-separated MiMC sponge over the bn254 scalar field so a combined
// node is itself a types.Digest (four field elements), matching the
// zkp.Merkle's use of gnark-crypto (internal/zkp/pedersen.go).
package merkle

import (
	"encoding/binary"

	bn254mimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/ccoin/blockproducer/pkg/types"
)

// CombineHash computes the parent node for a left/right child pair. Each
// output lane is an independently domain-separated MiMC hash over the
// concatenated byte encodings of both children, so distinct lanes of the
// resulting Digest are not simple repetitions of one another.
func CombineHash(left, right types.Digest) types.Digest {
	var out types.Digest
	lb := left.Bytes()
	rb := right.Bytes()

	for lane := 0; lane < 4; lane++ {
		h := bn254mimc.NewMiMC()
		h.Write(lb)
		h.Write(rb)
		h.Write(laneTag(lane))
		sum := h.Sum(nil)
		out[lane].SetBytes(sum)
	}
	return out
}

// HashLeaf derives the leaf-level encoding used when a raw uint64 value
// (e.g. a block number) is stored at an SMT leaf instead of a Digest.
func HashLeaf(value uint64) types.Digest {
	var out types.Digest
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	for lane := 0; lane < 4; lane++ {
		h := bn254mimc.NewMiMC()
		h.Write(buf)
		h.Write(laneTag(lane))
		out[lane].SetBytes(h.Sum(nil))
	}
	return out
}

func laneTag(lane int) []byte {
	return []byte{'L', byte(lane)}
}

// LeafIndexFromDigest derives a sparse-tree leaf index from a Digest
// (e.g. a nullifier) by truncating its byte encoding to the first 64
// bits. Used to key the account/nullifier trees, which are indexed by
// uint64, from values that are naturally four field elements.
func LeafIndexFromDigest(d types.Digest) uint64 {
	b := d.Bytes()
	return binary.BigEndian.Uint64(b[:8])
}
