package blockprover

import (
	"github.com/consensys/gnark/frontend"
)

// BlockKernelCircuit documents the block kernel's public-input/witness
// shape as a gnark frontend.Circuit, the same way internal/zkp documents
// circuit shapes for its transaction/disclosure proofs
// (internal/zkp/circuits.go TransactionCircuit et al.). The block kernel
// itself runs as an opaque program (DefaultProver below); this type is
// not compiled or proven against in-process, since a real deployment
// delegates proving to a dedicated zero-knowledge VM running this exact
// circuit shape out of process.
type BlockKernelCircuit struct {
	// Public inputs: the previous account root, the five commitment roots
	// the kernel must prove it derived correctly from the witness, and the
	// block number.
	PrevAccountRoot   frontend.Variable `gnark:",public"`
	AccountRoot       frontend.Variable `gnark:",public"`
	NullifierRoot     frontend.Variable `gnark:",public"`
	NoteRoot          frontend.Variable `gnark:",public"`
	ChainRoot         frontend.Variable `gnark:",public"`
	BatchRoot         frontend.Variable `gnark:",public"`
	BlockNum          frontend.Variable `gnark:",public"`

	// Private witness: per-account transitions and their Merkle paths
	// against PrevAccountRoot, the produced nullifiers, and the ordered
	// batch note-subtree roots. Slice lengths are fixed at circuit
	// compilation time in a real deployment (one circuit per
	// max-batches-per-block / max-accounts-per-block configuration); left
	// unsized here since this type is never compiled.
	AccountInitialHashes []frontend.Variable
	AccountFinalHashes   []frontend.Variable
	AccountMerklePaths   [][]frontend.Variable
	Nullifiers           []frontend.Variable
	BatchNotesRoots      []frontend.Variable
}

// Define is a placeholder: its only constraint is that PrevAccountRoot
// differs from -1. It does not constrain the account transitions, their
// Merkle paths, or how AccountRoot, NullifierRoot, NoteRoot, ChainRoot and
// BatchRoot are derived from the witness; those checks depend on the
// concrete max-accounts/max-batches bound chosen at compile time and
// belong to the out-of-process kernel this type documents.
func (c *BlockKernelCircuit) Define(api frontend.API) error {
	api.AssertIsDifferent(c.PrevAccountRoot, -1)
	return nil
}
