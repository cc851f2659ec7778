// Package blockprover executes the block kernel over a block witness and
// extracts the five commitment roots a new block header carries. The
// kernel itself is treated as an opaque program: a real deployment
// delegates proving to a dedicated zero-knowledge VM, so DefaultProver
// only computes what that VM's public outputs would be.
package blockprover

import (
	"context"
	"fmt"

	"github.com/ccoin/blockproducer/internal/blockwitness"
	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/common"
	"github.com/ccoin/blockproducer/pkg/types"
)

// Prover executes the block kernel over a witness.
type Prover interface {
	Prove(ctx context.Context, witness *blockwitness.Witness, blockNum uint32) (*types.BlockHeader, error)
}

// DefaultProver is the in-process stand-in for the block kernel. It holds
// no state of its own: every commitment root is re-derived from the
// witness each call, by verifying each account/nullifier's Merkle proof
// against the witness's previously-committed roots and folding in that
// account/nullifier's new value — the same standard proof-based leaf
// update a real Merkle-backed store performs, just run here instead of
// inside the kernel's zero-knowledge circuit.
type DefaultProver struct{}

// NewDefaultProver builds a prover. It carries no per-chain state; the
// account and nullifier trees it reconstructs each Prove call start from
// whatever root the witness's PrevBlockHeader claims.
func NewDefaultProver() *DefaultProver {
	return &DefaultProver{}
}

// Prove implements Prover.
func (p *DefaultProver) Prove(_ context.Context, witness *blockwitness.Witness, blockNum uint32) (*types.BlockHeader, error) {
	prevAccountRoot := merkle.EmptyRoot(merkle.AccountTreeDepth)
	prevNullifierRoot := merkle.EmptyRoot(merkle.NullifierTreeDepth)
	if witness.PrevBlockHeader != nil {
		prevAccountRoot = witness.PrevBlockHeader.AccountRoot
		prevNullifierRoot = witness.PrevBlockHeader.NullifierRoot
	}

	accountUpdates := make([]leafUpdate, 0, len(witness.Accounts))
	for _, acc := range witness.Accounts {
		idx := uint64(acc.AccountID)
		if !merkle.VerifyPath(acc.Proof, acc.InitialHash, prevAccountRoot) {
			return nil, &InvalidMerklePathsError{Cause: fmt.Errorf("account %s: proof does not verify against account root", acc.AccountID)}
		}
		accountUpdates = append(accountUpdates, leafUpdate{index: idx, newValue: acc.FinalHash, proof: acc.Proof})
	}
	accountTree, err := applyProofUpdates(merkle.AccountTreeDepth, accountUpdates)
	if err != nil {
		return nil, &InvalidMerklePathsError{Cause: err}
	}
	accountRoot := accountTree.Root()

	nullifierUpdates := make([]leafUpdate, 0, len(witness.Nullifiers))
	for _, n := range witness.Nullifiers {
		idx := merkle.LeafIndexFromDigest(n.Nullifier)
		if !merkle.VerifyPath(n.Proof, types.ZeroDigest(), prevNullifierRoot) {
			return nil, &InvalidMerklePathsError{Cause: fmt.Errorf("nullifier already consumed or proof invalid")}
		}
		nullifierUpdates = append(nullifierUpdates, leafUpdate{index: idx, newValue: merkle.HashLeaf(uint64(blockNum)), proof: n.Proof})
	}
	nullifierTree, err := applyProofUpdates(merkle.NullifierTreeDepth, nullifierUpdates)
	if err != nil {
		return nil, &InvalidMerklePathsError{Cause: err}
	}
	nullifierRoot := nullifierTree.Root()

	noteTree, err := merkle.BuildBlockNotesTree(witness.BatchNotesRoots)
	if err != nil {
		return nil, &InvalidMerklePathsError{Cause: err}
	}
	noteRoot := noteTree.Root()

	mmr := merkle.FromPeaks(witness.ChainMMRPeaks, witness.ChainMMRSize)
	var prevHash types.Digest
	if witness.PrevBlockHeader != nil {
		prevHash = store.HeaderDigest(witness.PrevBlockHeader)
		mmr.Append(prevHash)
	}
	chainRoot := mmr.Root()

	batchTree := merkle.NewSparseMerkleTree(batchTreeDepth(len(witness.BatchNotesRoots)))
	for i, root := range witness.BatchNotesRoots {
		if err := batchTree.Set(uint64(i), root); err != nil {
			return nil, &InvalidMerklePathsError{Cause: err}
		}
	}
	batchRoot := batchTree.Root()

	header := &types.BlockHeader{
		PrevHash:      prevHash,
		BlockNum:      blockNum,
		ChainRoot:     chainRoot,
		AccountRoot:   accountRoot,
		NullifierRoot: nullifierRoot,
		NoteRoot:      noteRoot,
		BatchRoot:     batchRoot,
		Version:       1,
		Timestamp:     common.Now(),
	}
	return header, nil
}

// batchTreeDepth returns the depth of the batch-commitment tree
// (CREATED_NOTES_TREE_INSERTION_DEPTH = 8), matching the batch-to-block
// insertion depth the notes tree already uses.
func batchTreeDepth(_ int) int {
	return merkle.BlockNotesSMTDepth - types.CreatedNotesSMTDepth
}

// leafUpdate is a single leaf's old-proof/new-value pair, the unit
// applyProofUpdates folds into a freshly reconstructed tree.
type leafUpdate struct {
	index    uint64
	newValue types.Digest
	proof    merkle.MerklePath
}

// applyProofUpdates reconstructs a depth-deep tree reflecting every
// update in updates, using each update's Merkle proof to stand in for
// everything this block leaves untouched instead of requiring a
// persistent tree carried across Prove calls.
//
// Every leaf not being updated this block is covered by exactly one
// proof's sibling subtree (the point where that leaf's ancestor path
// joins a touched leaf's path); grafting that subtree's old, still-valid
// root reproduces it without the prover ever seeing its value directly.
// A sibling subtree that happens to contain ANOTHER touched leaf is
// skipped: that region's true post-update content is instead assembled
// from the other leaf's own Set call plus its own (finer) proof grafts.
func applyProofUpdates(depth int, updates []leafUpdate) (*merkle.SparseMerkleTree, error) {
	tree := merkle.NewSparseMerkleTree(depth)

	touched := make(map[uint64]struct{}, len(updates))
	for _, u := range updates {
		touched[u.index] = struct{}{}
	}

	for _, u := range updates {
		for level, sibling := range u.proof.Siblings {
			prefix := (u.index >> uint(level)) ^ 1
			if subtreeContainsAny(prefix, level, touched) {
				continue
			}
			if err := tree.SetSubtreeRoot(prefix, level, sibling); err != nil {
				return nil, err
			}
		}
	}
	for _, u := range updates {
		if err := tree.Set(u.index, u.newValue); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// subtreeContainsAny reports whether the subtree of the given depth
// rooted at prefix contains any leaf index in touched.
func subtreeContainsAny(prefix uint64, subtreeDepth int, touched map[uint64]struct{}) bool {
	lo := prefix << uint(subtreeDepth)
	hi := lo | ((uint64(1) << uint(subtreeDepth)) - 1)
	for idx := range touched {
		if idx >= lo && idx <= hi {
			return true
		}
	}
	return false
}
