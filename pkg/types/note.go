package types

// Nullifier uniquely identifies a spent note. A nullifier is a Digest;
// uniqueness is enforced globally by the store and the in-flight state.
type Nullifier Digest

// IsZero reports whether n is the zero nullifier.
func (n Nullifier) IsZero() bool {
	return Digest(n).IsZero()
}

func (n Nullifier) String() string {
	return Digest(n).String()
}

// NoteEnvelope is a single created note: the pair (note_id, metadata) that
// occupies two contiguous leaves in the created-notes commitment tree.
type NoteEnvelope struct {
	NoteID   Digest
	Metadata Digest
}
