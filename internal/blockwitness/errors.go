package blockwitness

import (
	"fmt"

	"github.com/ccoin/blockproducer/pkg/types"
)

// InconsistentAccountIdsError is returned when the set of AccountIds the
// store reports does not equal the set the batches modify. Ids is the
// symmetric difference, sorted ascending.
type InconsistentAccountIdsError struct {
	Ids []types.AccountId
}

func (e *InconsistentAccountIdsError) Error() string {
	return fmt.Sprintf("blockwitness: inconsistent account ids %v", e.Ids)
}

// InconsistentAccountStatesError is returned when an account present in
// both the store and the batches has a mismatched initial hash.
type InconsistentAccountStatesError struct {
	Ids []types.AccountId
}

func (e *InconsistentAccountStatesError) Error() string {
	return fmt.Sprintf("blockwitness: inconsistent account states %v", e.Ids)
}
