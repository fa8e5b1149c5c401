package ledger

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceLedgerRepository is the persistence contract for the hash chain.
// There is deliberately no update or delete for committed entries; the only
// mutations the interface admits are the payment state and the regenerable
// export artifacts.
type InvoiceLedgerRepository interface {
	// Append reserves the next sequence number for the candidate's
	// (series, fiscal year), fetches the previous entry's hash, builds the
	// chained entry and persists it - all inside one atomic unit. A failed
	// append rolls the reservation back, leaving no gap.
	Append(ctx context.Context, candidate EntryCandidate) (*InvoiceLedgerEntry, error)

	FindByID(ctx context.Context, id uuid.UUID) (*InvoiceLedgerEntry, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*InvoiceLedgerEntry, error)
	// FindChain returns every entry of a (series, fiscal year) ordered by
	// sequence number, for audit verification.
	FindChain(ctx context.Context, series string, fiscalYear int) ([]InvoiceLedgerEntry, error)

	// SavePaymentState persists a payment-state transition without touching
	// any hashed column.
	SavePaymentState(ctx context.Context, entry *InvoiceLedgerEntry) error

	// SaveExportState persists the export artifacts and their validation
	// outcome without touching any hashed column.
	SaveExportState(ctx context.Context, entry *InvoiceLedgerEntry) error

	// IsHalted reports whether appends to the chain are blocked by a recorded
	// integrity failure.
	IsHalted(ctx context.Context, series string, fiscalYear int) (bool, error)
	// RecordHalt blocks further appends to the chain until the halt row is
	// cleared manually.
	RecordHalt(ctx context.Context, series string, fiscalYear int, reason string) error
}
