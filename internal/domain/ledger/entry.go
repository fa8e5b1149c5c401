package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenesisHash is the well-known previous-hash value for the first entry of a
// (series, fiscal year) chain. It is not a valid SHA-256 digest of anything,
// so an empty chain is distinguishable from a tampered first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// DocumentType distinguishes invoices from credit notes in the ledger
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "INVOICE"
	DocumentTypeCreditNote DocumentType = "CREDIT_NOTE"
)

// PaymentState tracks how much of an invoice has been collected.
// It lives outside the hashed fields, so it may change after issue.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "PENDING"
	PaymentStatePaid      PaymentState = "PAID"
	PaymentStatePartial   PaymentState = "PARTIAL"
	PaymentStateCancelled PaymentState = "CANCELLED"
)

// IsValid checks if the state is a valid PaymentState
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStatePending, PaymentStatePaid, PaymentStatePartial, PaymentStateCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the payment state can move to the target state
func (s PaymentState) CanTransitionTo(target PaymentState) bool {
	switch s {
	case PaymentStatePending:
		return target == PaymentStatePaid || target == PaymentStatePartial || target == PaymentStateCancelled
	case PaymentStatePartial:
		return target == PaymentStatePaid || target == PaymentStateCancelled
	case PaymentStatePaid, PaymentStateCancelled:
		return false // Terminal states
	}
	return false
}

// InvoiceLedgerEntry is one immutable record in the fiscal hash chain.
// Once CurrentHash is computed the hashed fields are never edited or deleted;
// corrections are new credit-note entries, never mutations. Column names keep
// the fiscal layout's Spanish terms.
type InvoiceLedgerEntry struct {
	shared.BaseAggregateRoot
	Series         string          `gorm:"column:serie;size:10;not null;uniqueIndex:idx_ledger_series_year_seq,priority:1"`
	FiscalYear     int             `gorm:"column:ejercicio_fiscal;not null;uniqueIndex:idx_ledger_series_year_seq,priority:2"`
	SequenceNumber int64           `gorm:"column:numero_factura;not null;uniqueIndex:idx_ledger_series_year_seq,priority:3"`
	DocumentType   DocumentType    `gorm:"size:20;not null;default:INVOICE"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null"`
	IssueDate      time.Time       `gorm:"not null"`
	TaxBase        decimal.Decimal `gorm:"column:base_imponible;type:decimal(18,2);not null"`
	TaxRate        decimal.Decimal `gorm:"column:tipo_iva;type:decimal(9,4);not null"`
	TaxAmount      decimal.Decimal `gorm:"column:cuota_iva;type:decimal(18,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaymentState   PaymentState    `gorm:"column:estado_pago;size:20;not null;default:PENDING"`
	PreviousHash   string          `gorm:"column:hash_anterior;size:64;not null"`
	CurrentHash    string          `gorm:"column:hash_actual;size:64;not null"`

	// Credit-note linkage: the original entry this one rectifies
	RectifiesEntryID *uuid.UUID `gorm:"type:uuid;index"`
	RectifyReason    string     `gorm:"size:500"`

	// Fiscal export artifacts. Derived from the hashed fields and
	// regenerable at any time; they never feed back into the chain.
	XMLContent       string     `gorm:"column:xml_content"`
	SignedXMLContent string     `gorm:"column:signed_xml_content"`
	SchemaValid      *bool      `gorm:"column:schema_valid"`
	ValidationErrors string     `gorm:"column:validation_errors;size:4000"`
	SignedAt         *time.Time `gorm:"column:signed_at"`
}

// TableName returns the table name for GORM
func (InvoiceLedgerEntry) TableName() string {
	return "invoice_ledger_entries"
}

// EntryCandidate carries the caller-supplied fields of a new ledger entry.
// Sequence number and previous hash are assigned by the repository inside the
// append transaction, never by the caller.
type EntryCandidate struct {
	DocumentType     DocumentType
	Series           string
	FiscalYear       int
	OrderID          *uuid.UUID
	CustomerID       uuid.UUID
	IssueDate        time.Time
	TaxBase          decimal.Decimal
	TaxRate          decimal.Decimal
	RectifiesEntryID *uuid.UUID
	RectifyReason    string
}

// Validate checks the candidate fields before sequence assignment
func (c *EntryCandidate) Validate() error {
	if c.Series == "" {
		return shared.NewDomainError("INVALID_SERIES", "Series cannot be empty")
	}
	if c.FiscalYear < 2000 || c.FiscalYear > 2200 {
		return shared.NewDomainError("INVALID_FISCAL_YEAR", "Fiscal year out of range")
	}
	if c.CustomerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if c.TaxBase.IsNegative() {
		return shared.NewDomainError("INVALID_TAX_BASE", "Tax base cannot be negative")
	}
	if c.TaxRate.IsNegative() {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	if c.IssueDate.IsZero() {
		return shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if c.DocumentType == DocumentTypeCreditNote && c.RectifiesEntryID == nil {
		return shared.NewDomainError("INVALID_CREDIT_NOTE", "Credit note must reference the entry it rectifies")
	}
	return nil
}

// NewLedgerEntry builds a chained entry from a candidate plus the sequence
// number and previous hash reserved for it. The integrity hash is computed
// here, once, and the entry is immutable afterwards.
func NewLedgerEntry(c EntryCandidate, sequenceNumber int64, previousHash string) (*InvoiceLedgerEntry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if sequenceNumber < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Sequence number must be positive")
	}
	if sequenceNumber == 1 && previousHash != GenesisHash {
		return nil, shared.NewDomainError("INVALID_PREVIOUS_HASH", "First entry in a chain must link to the genesis hash")
	}
	if previousHash == "" {
		return nil, shared.NewDomainError("INVALID_PREVIOUS_HASH", "Previous hash is required")
	}

	taxBase := c.TaxBase.Round(2)
	taxAmount := taxBase.Mul(c.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	totalAmount := taxBase.Add(taxAmount)

	entry := &InvoiceLedgerEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Series:            c.Series,
		FiscalYear:        c.FiscalYear,
		SequenceNumber:    sequenceNumber,
		DocumentType:      c.DocumentType,
		OrderID:           c.OrderID,
		CustomerID:        c.CustomerID,
		IssueDate:         c.IssueDate,
		TaxBase:           taxBase,
		TaxRate:           c.TaxRate,
		TaxAmount:         taxAmount,
		TotalAmount:       totalAmount,
		PaymentState:      PaymentStatePending,
		PreviousHash:      previousHash,
		RectifiesEntryID:  c.RectifiesEntryID,
		RectifyReason:     c.RectifyReason,
	}
	entry.CurrentHash = entry.ComputeHash()

	entry.AddDomainEvent(NewLedgerEntryAppendedEvent(entry))

	return entry, nil
}

// canonicalString builds the fixed field encoding fed into the integrity hash.
// Any representation change here invalidates every existing chain, so the
// format is frozen: pipe-separated, date as UTC yyyy-mm-dd, amount with two
// decimals.
func (e *InvoiceLedgerEntry) canonicalString() string {
	return strings.Join([]string{
		e.Series,
		fmt.Sprintf("%d", e.FiscalYear),
		fmt.Sprintf("%d", e.SequenceNumber),
		e.IssueDate.UTC().Format("2006-01-02"),
		e.TotalAmount.StringFixed(2),
		e.PreviousHash,
	}, "|")
}

// ComputeHash recomputes the integrity hash from the entry's stored fields
// and its stored previous hash
func (e *InvoiceLedgerEntry) ComputeHash() string {
	sum := sha256.Sum256([]byte(e.canonicalString()))
	return hex.EncodeToString(sum[:])
}

// VerifyHash returns true if the stored hash matches a recomputation
func (e *InvoiceLedgerEntry) VerifyHash() bool {
	return e.CurrentHash == e.ComputeHash()
}

// InvoiceNumber renders the display number, e.g. "001/2026-000042"
func (e *InvoiceLedgerEntry) InvoiceNumber() string {
	return fmt.Sprintf("%s/%d-%06d", e.Series, e.FiscalYear, e.SequenceNumber)
}

// IsCreditNote returns true for rectificative entries
func (e *InvoiceLedgerEntry) IsCreditNote() bool {
	return e.DocumentType == DocumentTypeCreditNote
}

// TotalMoney returns the total amount as Money
func (e *InvoiceLedgerEntry) TotalMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(e.TotalAmount)
}

// RecordExport stores the rendered unsigned document on the entry. Hashed
// fields stay untouched; re-exporting replaces the draft.
func (e *InvoiceLedgerEntry) RecordExport(xmlContent string) {
	e.XMLContent = xmlContent
	e.UpdatedAt = time.Now()
}

// RecordSignature stores the signed document together with its schema
// validation outcome. A failing validation is recorded, not discarded; the
// signed artifact is evidence of the signing problem.
func (e *InvoiceLedgerEntry) RecordSignature(signedXML string, valid bool, violations []string, signedAt time.Time) {
	e.SignedXMLContent = signedXML
	e.SchemaValid = &valid
	e.ValidationErrors = strings.Join(violations, "\n")
	e.SignedAt = &signedAt
	e.UpdatedAt = time.Now()
}

// TransitionPaymentState moves the payment state. Besides the export
// artifacts, payment state is the only mutable field on a committed entry;
// hashed fields are never touched.
func (e *InvoiceLedgerEntry) TransitionPaymentState(target PaymentState) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_STATE", "Unknown payment state: "+string(target))
	}
	if !e.PaymentState.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_PAYMENT_TRANSITION",
			fmt.Sprintf("Cannot move payment state from %s to %s", e.PaymentState, target))
	}

	from := e.PaymentState
	e.PaymentState = target
	e.UpdatedAt = time.Now()
	e.IncrementVersion()

	e.AddDomainEvent(NewPaymentStateChangedEvent(e, from, target))

	return nil
}
