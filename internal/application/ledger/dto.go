package ledger

import (
	"time"

	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
)

// VerifyChainResult is the API view of a chain verification
type VerifyChainResult struct {
	Series     string  `json:"series"`
	FiscalYear int     `json:"fiscal_year"`
	OK         bool    `json:"ok"`
	BrokenAt   []int64 `json:"broken_at,omitempty"`
	Entries    int     `json:"entries"`
}

// ToVerifyChainResult maps a verification report to its API view
func ToVerifyChainResult(report *VerifyReport) VerifyChainResult {
	return VerifyChainResult{
		Series:     report.Series,
		FiscalYear: report.FiscalYear,
		OK:         report.OK(),
		BrokenAt:   report.BrokenAt,
		Entries:    report.Entries,
	}
}

// CreditNoteRequest asks for a rectificative entry against an invoice
type CreditNoteRequest struct {
	TaxBase string `json:"tax_base" binding:"required"`
	Reason  string `json:"reason" binding:"required,min=1,max=500"`
}

// PaymentStateRequest asks for a payment state transition on an entry
type PaymentStateRequest struct {
	State string `json:"state" binding:"required,oneof=PENDING PARTIAL PAID CANCELLED"`
}

// LedgerEntryResponse is the API view of a ledger entry
type LedgerEntryResponse struct {
	ID             uuid.UUID           `json:"id"`
	InvoiceNumber  string              `json:"invoice_number"`
	Series         string              `json:"series"`
	FiscalYear     int                 `json:"fiscal_year"`
	SequenceNumber int64               `json:"sequence_number"`
	DocumentType   ledger.DocumentType `json:"document_type"`
	OrderID        *uuid.UUID          `json:"order_id,omitempty"`
	IssueDate      time.Time           `json:"issue_date"`
	TaxBase        string              `json:"tax_base"`
	TaxRate        string              `json:"tax_rate"`
	TaxAmount      string              `json:"tax_amount"`
	TotalAmount    string              `json:"total_amount"`
	PaymentState   ledger.PaymentState `json:"payment_state"`
	PreviousHash   string              `json:"previous_hash"`
	CurrentHash    string              `json:"current_hash"`
	RectifiesID    *uuid.UUID          `json:"rectifies_entry_id,omitempty"`
}

// ToLedgerEntryResponse maps a domain entry to its API view
func ToLedgerEntryResponse(entry *ledger.InvoiceLedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             entry.ID,
		InvoiceNumber:  entry.InvoiceNumber(),
		Series:         entry.Series,
		FiscalYear:     entry.FiscalYear,
		SequenceNumber: entry.SequenceNumber,
		DocumentType:   entry.DocumentType,
		OrderID:        entry.OrderID,
		IssueDate:      entry.IssueDate,
		TaxBase:        entry.TaxBase.StringFixed(2),
		TaxRate:        entry.TaxRate.StringFixed(2),
		TaxAmount:      entry.TaxAmount.StringFixed(2),
		TotalAmount:    entry.TotalAmount.StringFixed(2),
		PaymentState:   entry.PaymentState,
		PreviousHash:   entry.PreviousHash,
		CurrentHash:    entry.CurrentHash,
		RectifiesID:    entry.RectifiesEntryID,
	}
}
