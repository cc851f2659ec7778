package types

// MaxCreatedNotesPerBatch is 2^(CREATED_NOTES_SMT_DEPTH-1): the maximum
// number of output notes a single batch may contain, since each note
// occupies two leaves of a depth-13 subtree.
const MaxCreatedNotesPerBatch = 1 << (CreatedNotesSMTDepth - 1)

// CreatedNotesSMTDepth is the depth of a batch's intra-batch notes subtree.
const CreatedNotesSMTDepth = 13

// TransactionBatch is an ordered sequence of ProvenTransactions together
// with the commitment derived from them.
type TransactionBatch struct {
	Transactions []*ProvenTransaction
	// NotesRoot is the root of this batch's depth-13 created-notes subtree.
	NotesRoot Digest
}

// NewTransactionBatch builds a batch, copying the transaction slice so the
// caller's backing array can be reused.
func NewTransactionBatch(txs []*ProvenTransaction, notesRoot Digest) *TransactionBatch {
	return &TransactionBatch{
		Transactions: append([]*ProvenTransaction(nil), txs...),
		NotesRoot:    notesRoot,
	}
}

// UpdatedAccounts returns the distinct account ids touched by this batch, in
// submission order.
func (b *TransactionBatch) UpdatedAccounts() []AccountId {
	seen := make(map[AccountId]struct{}, len(b.Transactions))
	out := make([]AccountId, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		if _, ok := seen[tx.AccountID]; ok {
			continue
		}
		seen[tx.AccountID] = struct{}{}
		out = append(out, tx.AccountID)
	}
	return out
}

// ConsumedNullifiers returns every nullifier consumed across the batch's
// transactions, in submission order.
func (b *TransactionBatch) ConsumedNullifiers() []Nullifier {
	out := make([]Nullifier, 0)
	for _, tx := range b.Transactions {
		out = append(out, tx.InputNotes...)
	}
	return out
}

// NumOutputNotes returns the total number of notes created by the batch.
func (b *TransactionBatch) NumOutputNotes() int {
	total := 0
	for _, tx := range b.Transactions {
		total += tx.NumOutputNotes()
	}
	return total
}
