package ledger

import (
	"github.com/bikeshop/backend/internal/domain/shared"
)

// Event types for the invoice ledger aggregate
const (
	EventTypeLedgerEntryAppended  = "ledger.entry_appended"
	EventTypePaymentStateChanged  = "ledger.payment_state_changed"
	EventTypeChainHalted          = "ledger.chain_halted"
)

// LedgerEntryAppendedEvent is emitted when a new entry joins the chain
type LedgerEntryAppendedEvent struct {
	shared.BaseDomainEvent
	Series         string       `json:"series"`
	FiscalYear     int          `json:"fiscal_year"`
	SequenceNumber int64        `json:"sequence_number"`
	DocumentType   DocumentType `json:"document_type"`
	CurrentHash    string       `json:"current_hash"`
}

// NewLedgerEntryAppendedEvent creates a LedgerEntryAppendedEvent
func NewLedgerEntryAppendedEvent(entry *InvoiceLedgerEntry) *LedgerEntryAppendedEvent {
	return &LedgerEntryAppendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerEntryAppended, entry.ID, "InvoiceLedgerEntry"),
		Series:          entry.Series,
		FiscalYear:      entry.FiscalYear,
		SequenceNumber:  entry.SequenceNumber,
		DocumentType:    entry.DocumentType,
		CurrentHash:     entry.CurrentHash,
	}
}

// PaymentStateChangedEvent is emitted when an entry's payment state moves
type PaymentStateChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string       `json:"invoice_number"`
	From          PaymentState `json:"from"`
	To            PaymentState `json:"to"`
}

// NewPaymentStateChangedEvent creates a PaymentStateChangedEvent
func NewPaymentStateChangedEvent(entry *InvoiceLedgerEntry, from, to PaymentState) *PaymentStateChangedEvent {
	return &PaymentStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentStateChanged, entry.ID, "InvoiceLedgerEntry"),
		InvoiceNumber:   entry.InvoiceNumber(),
		From:            from,
		To:              to,
	}
}
