package workshop

import (
	"time"

	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/workshop"
	"github.com/google/uuid"
)

// FinalizeOrderRequest carries the caller-side options for a finalization.
// ForceItemIDs lists stock items whose shortfall the caller chose to override;
// forced items are not decremented and are recorded as unfulfilled movements.
// The override policy belongs to the caller, not the domain.
type FinalizeOrderRequest struct {
	ForceItemIDs []uuid.UUID
}

// FinalizeOrderResult is returned on a successful finalization
type FinalizeOrderResult struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	InvoiceID      uuid.UUID `json:"invoice_id"`
	InvoiceNumber  string    `json:"invoice_number"`
	Series         string    `json:"series"`
	FiscalYear     int       `json:"fiscal_year"`
	SequenceNumber int64     `json:"sequence_number"`
	CurrentHash    string    `json:"current_hash"`
	TotalAmount    string    `json:"total_amount"`
	IssueDate      time.Time `json:"issue_date"`
}

// newFinalizeOrderResult maps the finalized order and its minted entry
func newFinalizeOrderResult(order *workshop.RepairOrder, entry *ledger.InvoiceLedgerEntry) *FinalizeOrderResult {
	return &FinalizeOrderResult{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		InvoiceID:      entry.ID,
		InvoiceNumber:  entry.InvoiceNumber(),
		Series:         entry.Series,
		FiscalYear:     entry.FiscalYear,
		SequenceNumber: entry.SequenceNumber,
		CurrentHash:    entry.CurrentHash,
		TotalAmount:    entry.TotalAmount.StringFixed(2),
		IssueDate:      entry.IssueDate,
	}
}

