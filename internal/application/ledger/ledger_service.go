package ledger

import (
	"context"
	"errors"

	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService exposes the read and audit side of the invoice chain plus the
// two legal mutations: credit notes (new entries) and payment-state changes.
type LedgerService struct {
	repo    ledger.InvoiceLedgerRepository
	taxRate decimal.Decimal
	logger  *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repo ledger.InvoiceLedgerRepository, taxRate decimal.Decimal, logger *zap.Logger) *LedgerService {
	return &LedgerService{repo: repo, taxRate: taxRate, logger: logger}
}

// GetEntry returns a single ledger entry by id
func (s *LedgerService) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	return s.repo.FindByID(ctx, id)
}

// GetEntryByOrder returns the invoice minted for an order, if any
func (s *LedgerService) GetEntryByOrder(ctx context.Context, orderID uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

// VerifyReport is the outcome of a chain verification
type VerifyReport struct {
	Series     string
	FiscalYear int
	Entries    int
	BrokenAt   []int64
}

// OK returns true when every link verified
func (r *VerifyReport) OK() bool {
	return len(r.BrokenAt) == 0
}

// VerifyChain loads the full (series, fiscal year) chain and recomputes every
// link. On the first detected break it records a halt so further appends to
// the chain are refused until the halt is cleared manually.
func (s *LedgerService) VerifyChain(ctx context.Context, series string, fiscalYear int) (*VerifyReport, error) {
	entries, err := s.repo.FindChain(ctx, series, fiscalYear)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Series: series, FiscalYear: fiscalYear, Entries: len(entries)}

	if err := ledger.VerifyChain(series, fiscalYear, entries); err != nil {
		var integrityErr *ledger.ChainIntegrityError
		if !errors.As(err, &integrityErr) {
			return nil, err
		}
		report.BrokenAt = integrityErr.BrokenAt

		s.logger.Error("ledger chain verification failed",
			zap.String("series", series),
			zap.Int("fiscal_year", fiscalYear),
			zap.Int64s("broken_at", integrityErr.BrokenAt))

		if haltErr := s.repo.RecordHalt(ctx, series, fiscalYear, integrityErr.Error()); haltErr != nil {
			return nil, haltErr
		}
	}

	return report, nil
}

// IssueCreditNote appends a rectificative entry against an existing invoice.
// Credit notes chain in their own rectificative series; the original entry is
// never touched.
func (s *LedgerService) IssueCreditNote(ctx context.Context, originalID uuid.UUID, taxBase decimal.Decimal, reason string) (*ledger.InvoiceLedgerEntry, error) {
	original, err := s.repo.FindByID(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, shared.ErrNotFound
	}

	candidate, err := ledger.NewCreditNoteCandidate(original, taxBase, reason)
	if err != nil {
		return nil, err
	}

	note, err := s.repo.Append(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit note issued",
		zap.String("invoice_number", note.InvoiceNumber()),
		zap.String("rectifies", original.InvoiceNumber()),
		zap.String("tax_base", note.TaxBase.StringFixed(2)))

	return note, nil
}

// TransitionPaymentState applies a payment-state change to a committed entry.
// The only mutation the ledger admits; hashed fields are never written.
func (s *LedgerService) TransitionPaymentState(ctx context.Context, id uuid.UUID, target ledger.PaymentState) (*ledger.InvoiceLedgerEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.ErrNotFound
	}

	if err := entry.TransitionPaymentState(target); err != nil {
		return nil, err
	}
	if err := s.repo.SavePaymentState(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
