package stateview

import (
	"fmt"

	"github.com/ccoin/blockproducer/pkg/types"
)

// VerifyTxError is returned by (*DefaultStateView).VerifyTx when a
// transaction fails one of verify_tx's consistency checks. Each variant
// carries the offending data so a caller can report or log it
// without re-deriving it, mirroring the mempool package's sentinel-error
// style (internal/mempool/mempool.go) generalized to carry structured
// payloads instead of a bare message.
type VerifyTxError struct {
	Kind VerifyTxErrorKind

	// IncorrectAccountInitialHash fields.
	TxInitialAccountHash types.Digest
	StoreAccountHash     types.Digest
	StoreHasAccount      bool

	// AccountAlreadyModifiedByOtherTx field.
	AccountID types.AccountId

	// InputNotesAlreadyConsumed field.
	Nullifiers []types.Nullifier

	// StoreConnectionFailed field.
	Cause error
}

// VerifyTxErrorKind discriminates the VerifyTxError variants.
type VerifyTxErrorKind int

const (
	// ErrIncorrectAccountInitialHash means the tx's initial account hash
	// does not match the hash the store currently has committed for that
	// account.
	ErrIncorrectAccountInitialHash VerifyTxErrorKind = iota
	// ErrAccountAlreadyModifiedByOtherTx means another not-yet-committed
	// transaction already modifies this account.
	ErrAccountAlreadyModifiedByOtherTx
	// ErrInputNotesAlreadyConsumed means one or more of the tx's input
	// notes were already consumed, either in the store or by another
	// in-flight transaction.
	ErrInputNotesAlreadyConsumed
	// ErrStoreConnectionFailed surfaces a store lookup failure as-is.
	ErrStoreConnectionFailed
)

func (e *VerifyTxError) Error() string {
	switch e.Kind {
	case ErrIncorrectAccountInitialHash:
		if e.StoreHasAccount {
			return fmt.Sprintf(
				"verify_tx: incorrect initial account hash for %s: tx has %s, store has %s",
				e.AccountID, e.TxInitialAccountHash, e.StoreAccountHash,
			)
		}
		return fmt.Sprintf(
			"verify_tx: incorrect initial account hash for %s: tx has %s, account not in store",
			e.AccountID, e.TxInitialAccountHash,
		)
	case ErrAccountAlreadyModifiedByOtherTx:
		return fmt.Sprintf("verify_tx: account %s already modified by another in-flight transaction", e.AccountID)
	case ErrInputNotesAlreadyConsumed:
		return fmt.Sprintf("verify_tx: %d input note(s) already consumed", len(e.Nullifiers))
	case ErrStoreConnectionFailed:
		return fmt.Sprintf("verify_tx: store connection failed: %v", e.Cause)
	default:
		return "verify_tx: unknown error"
	}
}

// Unwrap exposes the underlying store failure, if any, for errors.Is/As.
func (e *VerifyTxError) Unwrap() error {
	return e.Cause
}

func newIncorrectInitialHash(accountID types.AccountId, txHash types.Digest, storeHash types.Digest, storeHasAccount bool) *VerifyTxError {
	return &VerifyTxError{
		Kind:                 ErrIncorrectAccountInitialHash,
		AccountID:            accountID,
		TxInitialAccountHash: txHash,
		StoreAccountHash:     storeHash,
		StoreHasAccount:      storeHasAccount,
	}
}

func newAccountAlreadyModified(accountID types.AccountId) *VerifyTxError {
	return &VerifyTxError{Kind: ErrAccountAlreadyModifiedByOtherTx, AccountID: accountID}
}

func newInputNotesAlreadyConsumed(nullifiers []types.Nullifier) *VerifyTxError {
	return &VerifyTxError{Kind: ErrInputNotesAlreadyConsumed, Nullifiers: nullifiers}
}

func newStoreConnectionFailed(cause error) *VerifyTxError {
	return &VerifyTxError{Kind: ErrStoreConnectionFailed, Cause: cause}
}
