package core

// CompareTimer is the single 8-bit counter/compare unit the scheduler
// multiplexes. The counter counts up one per tick and wraps from MaxTicks
// to 0; a compare-match event fires when it reaches the compare value.
//
// All methods are called from the compare handler and must be
// allocation-free register writes.
type CompareTimer interface {
	// SetCompare programs the compare register
	SetCompare(value uint8)

	// SetCounter overwrites the free-running counter
	SetCounter(value uint8)

	// ClearCompareFlag drops a compare match that is already pending
	ClearCompareFlag()
}
