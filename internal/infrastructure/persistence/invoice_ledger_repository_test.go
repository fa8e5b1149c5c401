package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockLedgerRepository creates a GormInvoiceLedgerRepository with a mocked
// SQL connection
func newMockLedgerRepository(t *testing.T) (*GormInvoiceLedgerRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormInvoiceLedgerRepository(gormDB), mock, mockDB
}

func validCandidate() ledger.EntryCandidate {
	return ledger.EntryCandidate{
		DocumentType: ledger.DocumentTypeInvoice,
		Series:       "001",
		FiscalYear:   2026,
		CustomerID:   uuid.New(),
		IssueDate:    time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TaxBase:      decimal.NewFromInt(100),
		TaxRate:      decimal.NewFromInt(21),
	}
}

func TestGormInvoiceLedgerRepository_Append_RejectsInvalidCandidate(t *testing.T) {
	repo, _, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	candidate := validCandidate()
	candidate.Series = ""

	_, err := repo.Append(context.Background(), candidate)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SERIES", domainErr.Code)
}

func TestGormInvoiceLedgerRepository_Append_RefusesHaltedChain(t *testing.T) {
	repo, mock, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "chain_halts"`).
		WillReturnRows(sqlmock.NewRows([]string{"serie", "ejercicio_fiscal", "reason"}).
			AddRow("001", 2026, "broken at sequence 3"))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), validCandidate())

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CHAIN_HALTED", domainErr.Code)
	assert.Equal(t, shared.CategoryIntegrity, domainErr.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceLedgerRepository_Append_SeedsSequenceBeforeLocking(t *testing.T) {
	// the first append of a (series, fiscal year) must insert the sequence
	// row with ON CONFLICT DO NOTHING before taking the row lock, so a
	// concurrent first append cannot abort the open transaction
	repo, mock, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "chain_halts"`).
		WillReturnRows(sqlmock.NewRows([]string{"serie"}))
	mock.ExpectExec(`INSERT INTO "invoice_sequences" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "invoice_sequences" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"serie", "ejercicio_fiscal", "last_number"}))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), validCandidate())

	// the seed lost the insert race and the winner rolled back, leaving no
	// row behind; the caller retries
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceLedgerRepository_FindByID(t *testing.T) {
	repo, mock, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	entryID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "invoice_ledger_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "serie", "ejercicio_fiscal", "numero_factura",
			"hash_anterior", "hash_actual", "estado_pago",
		}).AddRow(entryID, "001", 2026, 7,
			ledger.GenesisHash, "abc", string(ledger.PaymentStatePending)))

	entry, err := repo.FindByID(context.Background(), entryID)
	require.NoError(t, err)

	assert.Equal(t, entryID, entry.ID)
	assert.Equal(t, "001", entry.Series)
	assert.Equal(t, int64(7), entry.SequenceNumber)
	assert.Equal(t, ledger.PaymentStatePending, entry.PaymentState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceLedgerRepository_FindByID_NotFound(t *testing.T) {
	repo, mock, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT .* FROM "invoice_ledger_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceLedgerRepository_FindChain_OrdersBySequence(t *testing.T) {
	repo, mock, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT .* FROM "invoice_ledger_entries" WHERE serie = .* ORDER BY numero_factura`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "serie", "ejercicio_fiscal", "numero_factura"}).
			AddRow(uuid.New(), "001", 2026, 1).
			AddRow(uuid.New(), "001", 2026, 2))

	entries, err := repo.FindChain(context.Background(), "001", 2026)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].SequenceNumber)
	assert.Equal(t, int64(2), entries[1].SequenceNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceLedgerRepository_SavePaymentState(t *testing.T) {
	t.Run("updates only payment columns", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		entry := &ledger.InvoiceLedgerEntry{}
		entry.ID = uuid.New()
		entry.Version = 2
		entry.PaymentState = ledger.PaymentStatePaid
		entry.UpdatedAt = time.Now()

		mock.ExpectExec(`UPDATE "invoice_ledger_entries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SavePaymentState(context.Background(), entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict when version check fails", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		entry := &ledger.InvoiceLedgerEntry{}
		entry.ID = uuid.New()
		entry.Version = 2
		entry.PaymentState = ledger.PaymentStatePaid

		mock.ExpectExec(`UPDATE "invoice_ledger_entries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SavePaymentState(context.Background(), entry)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormInvoiceLedgerRepository_SaveExportState(t *testing.T) {
	t.Run("updates only artifact columns", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		valid := true
		now := time.Now()
		entry := &ledger.InvoiceLedgerEntry{}
		entry.ID = uuid.New()
		entry.XMLContent = "<xml/>"
		entry.SignedXMLContent = "<signed/>"
		entry.SchemaValid = &valid
		entry.SignedAt = &now
		entry.UpdatedAt = now

		mock.ExpectExec(`UPDATE "invoice_ledger_entries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveExportState(context.Background(), entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports unknown entry", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		entry := &ledger.InvoiceLedgerEntry{}
		entry.ID = uuid.New()

		mock.ExpectExec(`UPDATE "invoice_ledger_entries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveExportState(context.Background(), entry)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInvoiceLedgerRepository_IsHalted(t *testing.T) {
	repo, mock, mockDB := newMockLedgerRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "chain_halts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	halted, err := repo.IsHalted(context.Background(), "001", 2026)
	require.NoError(t, err)
	assert.True(t, halted)
}
