package types

import "fmt"

// ProvenTransaction is an immutable record of a single proven user
// transaction: the account it updates, the notes it consumes and creates,
// and an opaque validity proof the core never re-verifies.
//
// Adapted from the shielded Transaction type
// (pkg/types/transaction.go): instead of a Pedersen-commitment/nullifier
// UTXO set with fee/memo/disclosure fields, a ProvenTransaction carries an
// account state transition (initial_account_hash -> final_account_hash)
// plus the notes it consumes (by nullifier) and produces (NoteEnvelope).
type ProvenTransaction struct {
	AccountID          AccountId
	InitialAccountHash Digest
	FinalAccountHash   Digest
	InputNotes         []Nullifier
	OutputNotes        []NoteEnvelope
	// Proof is the opaque zk-SNARK validity proof; the core never inspects it.
	Proof []byte
}

// NewProvenTransaction builds a ProvenTransaction, defensively copying the
// input/output slices so later mutation by the caller cannot corrupt
// in-flight state or a published batch.
func NewProvenTransaction(
	accountID AccountId,
	initialHash, finalHash Digest,
	inputNotes []Nullifier,
	outputNotes []NoteEnvelope,
	proof []byte,
) *ProvenTransaction {
	return &ProvenTransaction{
		AccountID:          accountID,
		InitialAccountHash: initialHash,
		FinalAccountHash:   finalHash,
		InputNotes:         append([]Nullifier(nil), inputNotes...),
		OutputNotes:        append([]NoteEnvelope(nil), outputNotes...),
		Proof:              append([]byte(nil), proof...),
	}
}

// NumOutputNotes returns the number of notes this transaction creates.
func (tx *ProvenTransaction) NumOutputNotes() int {
	return len(tx.OutputNotes)
}

func (tx *ProvenTransaction) String() string {
	return fmt.Sprintf(
		"ProvenTransaction{account=%s, initial=%s, final=%s, inputs=%d, outputs=%d}",
		tx.AccountID, tx.InitialAccountHash, tx.FinalAccountHash,
		len(tx.InputNotes), len(tx.OutputNotes),
	)
}
