// Package stateview tracks the accounts and nullifiers touched by
// not-yet-committed transactions, so the block-producer can reject a
// transaction that conflicts with one already accepted into the pipeline
// before it ever reaches batch assembly.
package stateview

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ccoin/blockproducer/internal/store"
	"github.com/ccoin/blockproducer/pkg/types"
)

// TxInputsReader is the narrow slice of the store capability the state
// view needs: a single get_tx_inputs RPC per transaction, answering both
// the account's current hash and the consumed status of its input notes
// in one round trip.
type TxInputsReader interface {
	GetTxInputs(ctx context.Context, accountID types.AccountId, nullifiers []types.Nullifier) (store.TxInputs, error)
}

// InFlightState is the set of accounts and nullifiers touched by
// transactions that have passed VerifyTx but have not yet been committed
// into a block.
//
// Generalized from the mempool package's RWMutex-guarded index maps
// (internal/mempool/mempool.go Mempool.txs/nullifiers): instead of a
// priority queue of pending transactions, InFlightState holds only the
// two conflict-detection sets verify_tx needs. Each modified account also
// records the hash its in-flight transaction leaves it at; VerifyTx does
// not read that hash, and any follow-on transaction on the same account
// is rejected.
type InFlightState struct {
	mu sync.RWMutex

	// modifiedAccounts maps an in-flight-modified account to the final
	// hash the modifying transaction leaves it at.
	modifiedAccounts map[types.AccountId]types.Digest
	// consumedNullifiers is the set of nullifiers consumed by an in-flight
	// transaction.
	consumedNullifiers map[types.Nullifier]struct{}
}

func newInFlightState() *InFlightState {
	return &InFlightState{
		modifiedAccounts:   make(map[types.AccountId]types.Digest),
		consumedNullifiers: make(map[types.Nullifier]struct{}),
	}
}

// DefaultStateView is the default StateView implementation: a Store handle
// plus the in-flight conflict-detection state layered on top of it.
type DefaultStateView struct {
	store   TxInputsReader
	inFlght *InFlightState
	log     *zap.Logger
}

// NewDefaultStateView builds a state view over the given store.
func NewDefaultStateView(s TxInputsReader, log *zap.Logger) *DefaultStateView {
	if log == nil {
		log = zap.NewNop()
	}
	return &DefaultStateView{
		store:   s,
		inFlght: newInFlightState(),
		log:     log,
	}
}

// VerifyTx checks tx against the store and the in-flight state, and, if
// it passes, atomically records tx's effects as
// in-flight so a subsequent conflicting transaction is rejected.
//
// The "prepare then commit" shape — gather every check's outcome before
// mutating any state — is the critical-section pattern the
// Mempool.Add uses (check existence, size, fee, and nullifier conflicts
// before touching any map), generalized here so a cancelled or failed
// store lookup can never leave partially-applied in-flight state behind.
func (sv *DefaultStateView) VerifyTx(ctx context.Context, tx *types.ProvenTransaction) error {
	sv.inFlght.mu.Lock()
	defer sv.inFlght.mu.Unlock()

	if err := sv.checkAccountNotInFlight(tx.AccountID); err != nil {
		return err
	}

	inputs, err := sv.store.GetTxInputs(ctx, tx.AccountID, tx.InputNotes)
	if err != nil {
		return newStoreConnectionFailed(err)
	}

	if err := sv.checkInitialAccountHash(tx, inputs); err != nil {
		return err
	}
	if err := sv.checkNullifiersUnconsumed(tx.InputNotes, inputs); err != nil {
		return err
	}

	sv.inFlght.modifiedAccounts[tx.AccountID] = tx.FinalAccountHash
	for _, n := range tx.InputNotes {
		sv.inFlght.consumedNullifiers[n] = struct{}{}
	}

	sv.log.Debug("tx accepted into in-flight state",
		zap.Stringer("account_id", tx.AccountID),
		zap.Int("input_notes", len(tx.InputNotes)),
		zap.Int("output_notes", len(tx.OutputNotes)),
	)
	return nil
}

// checkAccountNotInFlight enforces that at most one in-flight
// transaction may modify a given account.
func (sv *DefaultStateView) checkAccountNotInFlight(accountID types.AccountId) error {
	if _, ok := sv.inFlght.modifiedAccounts[accountID]; ok {
		return newAccountAlreadyModified(accountID)
	}
	return nil
}

// checkInitialAccountHash checks that the tx's claimed initial account
// hash matches the account's current committed hash. A nil AccountHash
// (the transport's ZERO digest normalized to absent) means the store has
// no record of the account; it is treated as new and the check always
// succeeds (see DESIGN.md for the Open Question this resolves).
func (sv *DefaultStateView) checkInitialAccountHash(tx *types.ProvenTransaction, inputs store.TxInputs) error {
	if inputs.AccountHash == nil {
		return nil
	}
	if !tx.InitialAccountHash.Equal(*inputs.AccountHash) {
		return newIncorrectInitialHash(tx.AccountID, tx.InitialAccountHash, *inputs.AccountHash, true)
	}
	return nil
}

// checkNullifiersUnconsumed checks that none of the tx's input notes are
// already consumed, either in the store or by another in-flight
// transaction.
func (sv *DefaultStateView) checkNullifiersUnconsumed(nullifiers []types.Nullifier, inputs store.TxInputs) error {
	var conflicts []types.Nullifier
	for _, n := range nullifiers {
		if _, ok := sv.inFlght.consumedNullifiers[n]; ok {
			conflicts = append(conflicts, n)
			continue
		}
		if inputs.Nullifiers[n] {
			conflicts = append(conflicts, n)
		}
	}
	if len(conflicts) > 0 {
		return newInputNotesAlreadyConsumed(conflicts)
	}
	return nil
}

// DropTransactions removes the in-flight effects of a set of transactions:
// the queue calls it when the batch builder rejects a chunk containing
// them (the chunk is discarded, not requeued), and the block builder
// calls it once the block containing them has been applied to the store.
func (sv *DefaultStateView) DropTransactions(txs []*types.ProvenTransaction) {
	sv.inFlght.mu.Lock()
	defer sv.inFlght.mu.Unlock()

	for _, tx := range txs {
		delete(sv.inFlght.modifiedAccounts, tx.AccountID)
		for _, n := range tx.InputNotes {
			delete(sv.inFlght.consumedNullifiers, n)
		}
	}
}
