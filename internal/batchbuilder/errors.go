package batchbuilder

import (
	"fmt"

	"github.com/ccoin/blockproducer/pkg/types"
)

// TooManyNotesCreatedError is returned when a chunk's total output notes
// exceed types.MaxCreatedNotesPerBatch. It carries the offending
// transactions so the caller can decide whether to refund or requeue them.
type TooManyNotesCreatedError struct {
	Count int
	Txs   []*types.ProvenTransaction
}

func (e *TooManyNotesCreatedError) Error() string {
	return fmt.Sprintf("batchbuilder: %d created notes exceeds max %d", e.Count, types.MaxCreatedNotesPerBatch)
}

// NotesSMTError is returned when the batch's notes-commitment subtree
// fails to build. It carries the underlying cause and the offending
// transactions.
type NotesSMTError struct {
	Cause error
	Txs   []*types.ProvenTransaction
}

func (e *NotesSMTError) Error() string {
	return fmt.Sprintf("batchbuilder: notes smt construction failed: %v", e.Cause)
}

func (e *NotesSMTError) Unwrap() error {
	return e.Cause
}
