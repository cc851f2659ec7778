package blockbuilder

import "fmt"

// TooManyBatchesInBlockError reports a pending-batch count over the hard
// ceiling of 2^CREATED_NOTES_TREE_INSERTION_DEPTH (256) batches per block.
// buildBlock logs it and keeps the batches pending instead of assembling.
type TooManyBatchesInBlockError struct {
	Count int
}

func (e *TooManyBatchesInBlockError) Error() string {
	return fmt.Sprintf("blockbuilder: %d batches exceeds hard max %d", e.Count, HardMaxBatchesPerBlock)
}
