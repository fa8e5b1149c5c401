package ledger

import (
	"time"

	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreditNoteSeriesPrefix is prepended to the base series to form the
// rectificative series. Credit notes chain in their own series so the two
// document types never interleave in one sequence.
const CreditNoteSeriesPrefix = "R"

// CreditNoteSeries derives the rectificative series for a base invoice series
func CreditNoteSeries(baseSeries string) string {
	return CreditNoteSeriesPrefix + baseSeries
}

// NewCreditNoteCandidate builds the candidate for a credit note rectifying
// the given entry. The amount may cover the original partially; a full
// rectification passes the original's tax base.
func NewCreditNoteCandidate(original *InvoiceLedgerEntry, taxBase decimal.Decimal, reason string) (EntryCandidate, error) {
	if original == nil {
		return EntryCandidate{}, shared.NewDomainError("INVALID_ORIGINAL", "Original ledger entry is required")
	}
	if original.IsCreditNote() {
		return EntryCandidate{}, shared.NewDomainError("INVALID_ORIGINAL", "Cannot rectify a credit note")
	}
	if reason == "" {
		return EntryCandidate{}, shared.NewDomainError("INVALID_REASON", "Rectification reason is required")
	}
	if taxBase.LessThanOrEqual(decimal.Zero) {
		return EntryCandidate{}, shared.NewDomainError("INVALID_TAX_BASE", "Credit note tax base must be positive")
	}
	if taxBase.GreaterThan(original.TaxBase) {
		return EntryCandidate{}, shared.NewDomainError("INVALID_TAX_BASE", "Credit note cannot exceed the original tax base")
	}

	originalID := original.ID
	return EntryCandidate{
		DocumentType:     DocumentTypeCreditNote,
		Series:           CreditNoteSeries(original.Series),
		FiscalYear:       original.FiscalYear,
		OrderID:          original.OrderID,
		CustomerID:       original.CustomerID,
		IssueDate:        time.Now(),
		TaxBase:          taxBase,
		TaxRate:          original.TaxRate,
		RectifiesEntryID: &originalID,
		RectifyReason:    reason,
	}, nil
}
