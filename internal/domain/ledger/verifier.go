package ledger

import (
	"fmt"
	"strings"
)

// ChainIntegrityError reports the sequence numbers whose stored hashes do not
// match recomputation. Fatal for the affected chain segment: appends to the
// (series, fiscal year) must halt until manually investigated.
type ChainIntegrityError struct {
	Series     string
	FiscalYear int
	BrokenAt   []int64
}

// Error implements the error interface
func (e *ChainIntegrityError) Error() string {
	parts := make([]string, len(e.BrokenAt))
	for i, seq := range e.BrokenAt {
		parts[i] = fmt.Sprintf("%d", seq)
	}
	return fmt.Sprintf("ledger chain %s/%d broken at sequence(s) %s",
		e.Series, e.FiscalYear, strings.Join(parts, ", "))
}

// VerifyChain walks entries (ordered by sequence number) and recomputes each
// integrity hash from stored fields plus the prior entry's stored hash.
// It reports every broken link, starting with the first: a gap or duplicate
// in the numbering, a previous-hash mismatch, or a hash that no longer matches
// its own fields. Audit use only; never part of normal operation.
func VerifyChain(series string, fiscalYear int, entries []InvoiceLedgerEntry) error {
	var broken []int64

	expectedSeq := int64(1)
	expectedPrev := GenesisHash

	for i := range entries {
		e := &entries[i]
		ok := true

		if e.SequenceNumber != expectedSeq {
			ok = false
		}
		if e.PreviousHash != expectedPrev {
			ok = false
		}
		if !e.VerifyHash() {
			ok = false
		}

		if !ok {
			broken = append(broken, e.SequenceNumber)
		}

		// Continue the walk from the stored values so a single broken entry
		// does not cascade into reporting every later entry.
		expectedSeq = e.SequenceNumber + 1
		expectedPrev = e.CurrentHash
	}

	if len(broken) > 0 {
		return &ChainIntegrityError{Series: series, FiscalYear: fiscalYear, BrokenAt: broken}
	}
	return nil
}
