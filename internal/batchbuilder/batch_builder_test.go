package batchbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccoin/blockproducer/pkg/types"
)

type fakeBatchSink struct {
	batches []*types.TransactionBatch
	fail    bool
}

func (f *fakeBatchSink) AddBatch(_ context.Context, batch *types.TransactionBatch) error {
	if f.fail {
		return errors.New("block builder rejected batch")
	}
	f.batches = append(f.batches, batch)
	return nil
}

func txWithNotes(accountID uint64, notes []types.NoteEnvelope) *types.ProvenTransaction {
	return types.NewProvenTransaction(types.AccountId(accountID), types.ZeroDigest(), types.ZeroDigest(), nil, notes, nil)
}

func note(seed uint64) types.NoteEnvelope {
	return types.NoteEnvelope{
		NoteID:   types.DigestFromUint64s(seed, 0, 0, 0),
		Metadata: types.DigestFromUint64s(seed, 1, 0, 0),
	}
}

func TestBatchBuilder_PublishesBatch(t *testing.T) {
	sink := &fakeBatchSink{}
	bb := New(sink, nil)

	txs := []*types.ProvenTransaction{
		txWithNotes(0, []types.NoteEnvelope{note(1)}),
		txWithNotes(1, []types.NoteEnvelope{note(2)}),
	}

	require.NoError(t, bb.BuildBatch(context.Background(), txs))
	require.Len(t, sink.batches, 1)
	require.Equal(t, 2, sink.batches[0].NumOutputNotes())
	require.False(t, sink.batches[0].NotesRoot.IsZero())
}

func TestBatchBuilder_TooManyNotesCreated(t *testing.T) {
	sink := &fakeBatchSink{}
	bb := New(sink, nil)

	var notes []types.NoteEnvelope
	for i := 0; i < types.MaxCreatedNotesPerBatch+1; i++ {
		notes = append(notes, note(uint64(i)))
	}
	txs := []*types.ProvenTransaction{txWithNotes(0, notes)}

	err := bb.BuildBatch(context.Background(), txs)
	require.Error(t, err)
	var tooMany *TooManyNotesCreatedError
	require.ErrorAs(t, err, &tooMany)
	require.Equal(t, types.MaxCreatedNotesPerBatch+1, tooMany.Count)
	require.Empty(t, sink.batches)
}

func TestBatchBuilder_SinkFailurePropagates(t *testing.T) {
	sink := &fakeBatchSink{fail: true}
	bb := New(sink, nil)

	txs := []*types.ProvenTransaction{txWithNotes(0, []types.NoteEnvelope{note(1)})}
	err := bb.BuildBatch(context.Background(), txs)
	require.Error(t, err)
}
