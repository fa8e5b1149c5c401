package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chainKey struct {
	series string
	year   int
}

// memoryLedger keeps one hash chain per (series, fiscal year) in memory,
// mirroring the append semantics of the real repository.
type memoryLedger struct {
	chains map[chainKey][]*ledger.InvoiceLedgerEntry
	halts  map[chainKey]string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		chains: make(map[chainKey][]*ledger.InvoiceLedgerEntry),
		halts:  make(map[chainKey]string),
	}
}

func (m *memoryLedger) Append(_ context.Context, c ledger.EntryCandidate) (*ledger.InvoiceLedgerEntry, error) {
	key := chainKey{c.Series, c.FiscalYear}
	if _, halted := m.halts[key]; halted {
		return nil, shared.NewDomainErrorWithCategory("CHAIN_HALTED", "chain is halted", shared.CategoryIntegrity)
	}
	chain := m.chains[key]
	seq := int64(len(chain) + 1)
	prev := ledger.GenesisHash
	if seq > 1 {
		prev = chain[len(chain)-1].CurrentHash
	}
	entry, err := ledger.NewLedgerEntry(c, seq, prev)
	if err != nil {
		return nil, err
	}
	m.chains[key] = append(chain, entry)
	return entry, nil
}

func (m *memoryLedger) FindByID(_ context.Context, id uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	for _, chain := range m.chains {
		for _, e := range chain {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryLedger) FindByOrderID(_ context.Context, orderID uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	for _, chain := range m.chains {
		for _, e := range chain {
			if e.OrderID != nil && *e.OrderID == orderID {
				return e, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryLedger) FindChain(_ context.Context, series string, fiscalYear int) ([]ledger.InvoiceLedgerEntry, error) {
	chain := m.chains[chainKey{series, fiscalYear}]
	out := make([]ledger.InvoiceLedgerEntry, 0, len(chain))
	for _, e := range chain {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryLedger) SavePaymentState(_ context.Context, _ *ledger.InvoiceLedgerEntry) error {
	return nil
}

func (m *memoryLedger) SaveExportState(_ context.Context, _ *ledger.InvoiceLedgerEntry) error {
	return nil
}

func (m *memoryLedger) IsHalted(_ context.Context, series string, fiscalYear int) (bool, error) {
	_, halted := m.halts[chainKey{series, fiscalYear}]
	return halted, nil
}

func (m *memoryLedger) RecordHalt(_ context.Context, series string, fiscalYear int, reason string) error {
	m.halts[chainKey{series, fiscalYear}] = reason
	return nil
}

func newTestService(repo ledger.InvoiceLedgerRepository) *LedgerService {
	return NewLedgerService(repo, decimal.NewFromInt(21), zap.NewNop())
}

func appendInvoice(t *testing.T, repo *memoryLedger, taxBase string) *ledger.InvoiceLedgerEntry {
	t.Helper()
	base, err := decimal.NewFromString(taxBase)
	require.NoError(t, err)
	orderID := uuid.New()
	entry, err := repo.Append(context.Background(), ledger.EntryCandidate{
		DocumentType: ledger.DocumentTypeInvoice,
		Series:       "001",
		FiscalYear:   2026,
		OrderID:      &orderID,
		CustomerID:   uuid.New(),
		IssueDate:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		TaxBase:      base,
		TaxRate:      decimal.NewFromInt(21),
	})
	require.NoError(t, err)
	return entry
}

func TestLedgerService_VerifyChain_Intact(t *testing.T) {
	repo := newMemoryLedger()
	appendInvoice(t, repo, "100.00")
	appendInvoice(t, repo, "250.50")

	svc := newTestService(repo)
	report, err := svc.VerifyChain(context.Background(), "001", 2026)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Entries)
	assert.Empty(t, report.BrokenAt)

	halted, err := repo.IsHalted(context.Background(), "001", 2026)
	require.NoError(t, err)
	assert.False(t, halted)
}

func TestLedgerService_VerifyChain_TamperHaltsAppends(t *testing.T) {
	repo := newMemoryLedger()
	appendInvoice(t, repo, "100.00")
	appendInvoice(t, repo, "250.50")

	// tamper with the first entry's stored amount
	repo.chains[chainKey{"001", 2026}][0].TotalAmount = decimal.NewFromInt(999)

	svc := newTestService(repo)
	report, err := svc.VerifyChain(context.Background(), "001", 2026)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []int64{1}, report.BrokenAt)

	// further appends to the halted chain are refused
	_, err = repo.Append(context.Background(), ledger.EntryCandidate{
		DocumentType: ledger.DocumentTypeInvoice,
		Series:       "001",
		FiscalYear:   2026,
		CustomerID:   uuid.New(),
		IssueDate:    time.Now(),
		TaxBase:      decimal.NewFromInt(10),
		TaxRate:      decimal.NewFromInt(21),
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CHAIN_HALTED", domainErr.Code)
}

func TestLedgerService_VerifyChain_EmptyChainIsValid(t *testing.T) {
	svc := newTestService(newMemoryLedger())

	report, err := svc.VerifyChain(context.Background(), "001", 2026)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Entries)
}

func TestLedgerService_IssueCreditNote(t *testing.T) {
	repo := newMemoryLedger()
	original := appendInvoice(t, repo, "200.00")

	svc := newTestService(repo)
	note, err := svc.IssueCreditNote(context.Background(), original.ID, decimal.NewFromInt(50), "defective cassette returned")
	require.NoError(t, err)

	assert.Equal(t, ledger.DocumentTypeCreditNote, note.DocumentType)
	assert.Equal(t, "R001", note.Series)
	assert.Equal(t, int64(1), note.SequenceNumber)
	assert.Equal(t, ledger.GenesisHash, note.PreviousHash)
	require.NotNil(t, note.RectifiesEntryID)
	assert.Equal(t, original.ID, *note.RectifiesEntryID)

	// the original entry is untouched and its chain still verifies
	assert.True(t, original.VerifyHash())
	report, err := svc.VerifyChain(context.Background(), "001", 2026)
	require.NoError(t, err)
	assert.True(t, report.OK())

	// the rectificative chain verifies on its own
	report, err = svc.VerifyChain(context.Background(), "R001", 2026)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Entries)
}

func TestLedgerService_IssueCreditNote_ExceedsOriginal(t *testing.T) {
	repo := newMemoryLedger()
	original := appendInvoice(t, repo, "200.00")

	svc := newTestService(repo)
	_, err := svc.IssueCreditNote(context.Background(), original.ID, decimal.NewFromInt(300), "overshoot")

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_TAX_BASE", domainErr.Code)
}

func TestLedgerService_TransitionPaymentState(t *testing.T) {
	repo := newMemoryLedger()
	entry := appendInvoice(t, repo, "120.00")
	svc := newTestService(repo)

	hashBefore := entry.CurrentHash

	updated, err := svc.TransitionPaymentState(context.Background(), entry.ID, ledger.PaymentStatePartial)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatePartial, updated.PaymentState)

	updated, err = svc.TransitionPaymentState(context.Background(), entry.ID, ledger.PaymentStatePaid)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatePaid, updated.PaymentState)
	assert.Equal(t, hashBefore, updated.CurrentHash)
	assert.True(t, updated.VerifyHash())

	// PAID is terminal
	_, err = svc.TransitionPaymentState(context.Background(), entry.ID, ledger.PaymentStateCancelled)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PAYMENT_TRANSITION", domainErr.Code)
}
