// Package blockwitness builds the verified, self-consistent bundle of
// inputs the block kernel needs from a set of pending batches and the
// store's view of the accounts and nullifiers they touch.
package blockwitness

import (
	"sort"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

// AccountTransition is a single account's verified state transition: the
// hash the store currently has it at, the hash the batches move it to,
// and the store's Merkle proof of the initial hash against the previous
// block's account root.
type AccountTransition struct {
	AccountID   types.AccountId
	InitialHash types.Digest
	FinalHash   types.Digest
	Proof       merkle.MerklePath
}

// NullifierEntry is a single consumed nullifier together with the store's
// inclusion proof that it was not previously spent, against the previous
// block's nullifier root.
type NullifierEntry struct {
	Nullifier types.Nullifier
	Proof     merkle.MerklePath
}

// Witness is the verified bundle of inputs the block prover consumes.
type Witness struct {
	PrevBlockHeader *types.BlockHeader
	ChainMMRPeaks   []types.Digest
	ChainMMRSize    uint64
	Accounts        []AccountTransition
	BatchNotesRoots []types.Digest
	Nullifiers      []NullifierEntry
}

// New builds a Witness from the store's block inputs and the ordered list
// of pending batches, performing the two consistency checks a witness
// requires before any commitment is computed.
func New(inputs store.BlockInputs, batches []*types.TransactionBatch) (*Witness, error) {
	batchAccounts := collectBatchAccounts(batches)
	storeAccounts := make(map[types.AccountId]store.AccountInputRecord, len(inputs.Accounts))
	for _, rec := range inputs.Accounts {
		storeAccounts[rec.AccountID] = rec
	}

	if diff := symmetricDifference(batchAccounts, storeAccounts); len(diff) > 0 {
		return nil, &InconsistentAccountIdsError{Ids: diff}
	}

	var mismatched []types.AccountId
	transitions := make([]AccountTransition, 0, len(batchAccounts))
	for id, txn := range batchAccounts {
		rec := storeAccounts[id]
		storeHash := types.ZeroDigest()
		if rec.AccountHash != nil {
			storeHash = *rec.AccountHash
		}
		if !txn.initialHash.Equal(storeHash) {
			mismatched = append(mismatched, id)
			continue
		}
		transitions = append(transitions, AccountTransition{
			AccountID:   id,
			InitialHash: txn.initialHash,
			FinalHash:   txn.finalHash,
			Proof:       rec.Proof,
		})
	}
	if len(mismatched) > 0 {
		sortAccountIds(mismatched)
		return nil, &InconsistentAccountStatesError{Ids: mismatched}
	}
	sort.Slice(transitions, func(i, j int) bool { return transitions[i].AccountID.Less(transitions[j].AccountID) })

	batchNotesRoots := make([]types.Digest, 0, len(batches))
	for _, b := range batches {
		batchNotesRoots = append(batchNotesRoots, b.NotesRoot)
	}

	nullifiers := make([]NullifierEntry, 0, len(inputs.Nullifiers))
	proofByNullifier := make(map[types.Nullifier]merkle.MerklePath, len(inputs.Nullifiers))
	for _, rec := range inputs.Nullifiers {
		proofByNullifier[rec.Nullifier] = rec.Proof
	}
	for _, b := range batches {
		for _, n := range b.ConsumedNullifiers() {
			nullifiers = append(nullifiers, NullifierEntry{Nullifier: n, Proof: proofByNullifier[n]})
		}
	}

	return &Witness{
		PrevBlockHeader: inputs.PrevBlockHeader,
		ChainMMRPeaks:   inputs.ChainMMRPeaks,
		ChainMMRSize:    inputs.ChainMMRSize,
		Accounts:        transitions,
		BatchNotesRoots: batchNotesRoots,
		Nullifiers:      nullifiers,
	}, nil
}

type accountTxn struct {
	initialHash types.Digest
	finalHash   types.Digest
	seen        bool
}

// collectBatchAccounts walks batches in order, recording for each touched
// account the FIRST transaction's initial hash (matching the note on
// multiply-modified accounts) and the LAST transaction's final hash.
func collectBatchAccounts(batches []*types.TransactionBatch) map[types.AccountId]accountTxn {
	out := make(map[types.AccountId]accountTxn)
	for _, b := range batches {
		for _, tx := range b.Transactions {
			entry, ok := out[tx.AccountID]
			if !ok {
				out[tx.AccountID] = accountTxn{initialHash: tx.InitialAccountHash, finalHash: tx.FinalAccountHash, seen: true}
				continue
			}
			entry.finalHash = tx.FinalAccountHash
			out[tx.AccountID] = entry
		}
	}
	return out
}

// symmetricDifference returns, sorted ascending, every account id present
// in exactly one of the two sets.
func symmetricDifference(batchAccounts map[types.AccountId]accountTxn, storeAccounts map[types.AccountId]store.AccountInputRecord) []types.AccountId {
	var diff []types.AccountId
	for id := range batchAccounts {
		if _, ok := storeAccounts[id]; !ok {
			diff = append(diff, id)
		}
	}
	for id := range storeAccounts {
		if _, ok := batchAccounts[id]; !ok {
			diff = append(diff, id)
		}
	}
	sortAccountIds(diff)
	return diff
}

func sortAccountIds(ids []types.AccountId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
