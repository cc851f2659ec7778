// Package store defines the store capability the core consumes: a narrow,
// fallible, asynchronous interface the block-producer treats as a black
// box, with a production gRPC-backed implementation
// (grpcstore), an optional Postgres-backed dev cache (sqlstore), and an
// in-memory implementation for tests.
package store

import (
	"context"
	"fmt"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/pkg/types"
)

// AccountInputRecord is the store's view of a single account as of the
// current committed chain tip: its hash, if any, and a Merkle proof of
// that hash against the committed account root.
type AccountInputRecord struct {
	AccountID types.AccountId
	// AccountHash is the account's committed hash. Absent for a brand-new
	// account (a ZERO digest from the transport is normalized
	// to absent here).
	AccountHash *types.Digest
	// Proof authenticates AccountHash (or the zero digest, for a brand-new
	// account) against the account root the accompanying BlockInputs'
	// PrevBlockHeader carries.
	Proof merkle.MerklePath
}

// NullifierInputRecord is the store's view of a single nullifier: whether
// it has already been consumed, and a Merkle proof of that fact against
// the nullifier root the accompanying BlockInputs' PrevBlockHeader
// carries.
type NullifierInputRecord struct {
	Nullifier types.Nullifier
	Consumed  bool
	Proof     merkle.MerklePath
}

// TxInputs is the store's answer to get_tx_inputs: the account's current
// hash (nil for a new account) and the consumed status of each nullifier
// the transaction references.
type TxInputs struct {
	AccountHash *types.Digest
	Nullifiers  map[types.Nullifier]bool
}

// BlockInputs is the store's answer to get_block_inputs: everything the
// block witness needs to reconcile batch-side state against the
// committed chain tip.
type BlockInputs struct {
	PrevBlockHeader *types.BlockHeader
	ChainMMRPeaks   []types.Digest
	// ChainMMRSize is the number of leaves (committed block headers)
	// accounted for by ChainMMRPeaks, needed to reconstruct the MMR's
	// internal peak-to-level assignment.
	ChainMMRSize uint64
	Accounts     []AccountInputRecord
	Nullifiers   []NullifierInputRecord
}

// Store is the capability the block-producer core consumes. Production
// code talks to it over gRPC (grpcstore); tests use an in-memory
// implementation (memstore). The core never depends on which.
type Store interface {
	// GetTxInputs answers a single transaction's verification inputs.
	GetTxInputs(ctx context.Context, accountID types.AccountId, nullifiers []types.Nullifier) (TxInputs, error)
	// GetBlockInputs answers the inputs a pending block's witness needs
	// for the given updated accounts and consumed nullifiers.
	GetBlockInputs(ctx context.Context, accountIDs []types.AccountId, nullifiers []types.Nullifier) (BlockInputs, error)
	// ApplyBlock durably commits block, advancing the chain tip.
	ApplyBlock(ctx context.Context, block *types.Block) error
}

// ApplyBlockError wraps a failure from Store.ApplyBlock so the block
// builder can distinguish it from a local witness/prover failure.
type ApplyBlockError struct {
	Cause error
}

func (e *ApplyBlockError) Error() string {
	return fmt.Sprintf("store: apply_block failed: %v", e.Cause)
}

func (e *ApplyBlockError) Unwrap() error {
	return e.Cause
}

// GetBlockInputsError wraps a failure from Store.GetBlockInputs.
type GetBlockInputsError struct {
	Cause error
}

func (e *GetBlockInputsError) Error() string {
	return fmt.Sprintf("store: get_block_inputs failed: %v", e.Cause)
}

func (e *GetBlockInputsError) Unwrap() error {
	return e.Cause
}
