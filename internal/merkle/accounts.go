package merkle

// AccountTreeDepth and NullifierTreeDepth are wide enough that the
// account-id/nullifier keyspace (and the low-64-bit digest truncation
// LeafIndexFromDigest uses for nullifiers) never overflows a leaf index.
const (
	AccountTreeDepth   = 64
	NullifierTreeDepth = 64
)
