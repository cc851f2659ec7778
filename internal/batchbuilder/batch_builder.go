// Package batchbuilder turns an ordered chunk of ProvenTransactions
// released by the transaction queue into a committed TransactionBatch.
package batchbuilder

import (
	"context"

	"go.uber.org/zap"

	"github.com/ccoin/blockproducer/internal/merkle"
	"github.com/ccoin/blockproducer/pkg/types"
)

// BatchSink receives completed batches for block assembly.
type BatchSink interface {
	AddBatch(ctx context.Context, batch *types.TransactionBatch) error
}

// BatchBuilder assembles TransactionBatch values from transaction chunks.
type BatchBuilder struct {
	sink BatchSink
	log  *zap.Logger
}

// New builds a BatchBuilder publishing completed batches to sink.
func New(sink BatchSink, log *zap.Logger) *BatchBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchBuilder{sink: sink, log: log}
}

// BuildBatch implements txqueue.ChunkSink: it turns txs into a
// TransactionBatch and publishes it to the block builder's pending list.
func (b *BatchBuilder) BuildBatch(ctx context.Context, txs []*types.ProvenTransaction) error {
	batch, err := b.assemble(txs)
	if err != nil {
		return err
	}
	if err := b.sink.AddBatch(ctx, batch); err != nil {
		return err
	}
	b.log.Debug("batch published", zap.Int("tx_count", len(txs)), zap.Int("notes", batch.NumOutputNotes()))
	return nil
}

// assemble validates the output-note budget and builds the batch's
// depth-13 notes commitment subtree.
func (b *BatchBuilder) assemble(txs []*types.ProvenTransaction) (*types.TransactionBatch, error) {
	var notes []types.NoteEnvelope
	for _, tx := range txs {
		notes = append(notes, tx.OutputNotes...)
	}

	if len(notes) > types.MaxCreatedNotesPerBatch {
		return nil, &TooManyNotesCreatedError{Count: len(notes), Txs: txs}
	}

	tree, err := merkle.BuildBatchNotesTree(notes)
	if err != nil {
		return nil, &NotesSMTError{Cause: err, Txs: txs}
	}

	return types.NewTransactionBatch(txs, tree.Root()), nil
}
