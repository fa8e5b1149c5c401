package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceSequence is the per-(series, fiscal year) numbering row. Appends
// lock this row FOR UPDATE, which serializes sequence assignment for the
// chain without blocking appends to other chains.
type InvoiceSequence struct {
	Series     string    `gorm:"column:serie;primaryKey;size:10"`
	FiscalYear int       `gorm:"column:ejercicio_fiscal;primaryKey"`
	LastNumber int64     `gorm:"not null"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (InvoiceSequence) TableName() string {
	return "invoice_sequences"
}

// ChainHalt blocks appends to a chain after a failed integrity verification.
// Rows are inserted by the verifier and removed manually after investigation.
type ChainHalt struct {
	Series     string    `gorm:"column:serie;primaryKey;size:10"`
	FiscalYear int       `gorm:"column:ejercicio_fiscal;primaryKey"`
	Reason     string    `gorm:"size:1000;not null"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (ChainHalt) TableName() string {
	return "chain_halts"
}

// GormInvoiceLedgerRepository implements InvoiceLedgerRepository using GORM.
// Committed entries are never deleted; the only UPDATEs this repository
// issues against the entries table touch the payment state and the export
// artifact columns, never a hashed field.
type GormInvoiceLedgerRepository struct {
	db *gorm.DB
}

// NewGormInvoiceLedgerRepository creates a new GormInvoiceLedgerRepository
func NewGormInvoiceLedgerRepository(db *gorm.DB) *GormInvoiceLedgerRepository {
	return &GormInvoiceLedgerRepository{db: db}
}

// Append implements the atomic reserve-and-append. Inside one transaction it
// locks the sequence row for the candidate's (series, fiscal year), reads the
// previous entry's hash, builds the chained entry and inserts it together
// with the advanced sequence. Any failure rolls the reservation back, so the
// numbering stays gapless.
func (r *GormInvoiceLedgerRepository) Append(ctx context.Context, candidate ledger.EntryCandidate) (*ledger.InvoiceLedgerEntry, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	var entry *ledger.InvoiceLedgerEntry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var halt ChainHalt
		err := tx.First(&halt, "serie = ? AND ejercicio_fiscal = ?", candidate.Series, candidate.FiscalYear).Error
		if err == nil {
			return shared.NewDomainErrorWithCategory("CHAIN_HALTED",
				"Appends to chain "+candidate.Series+" are halted pending integrity investigation",
				shared.CategoryIntegrity)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		seq, err := r.lockSequence(tx, candidate.Series, candidate.FiscalYear)
		if err != nil {
			return err
		}

		previousHash := ledger.GenesisHash
		if seq.LastNumber > 0 {
			var last ledger.InvoiceLedgerEntry
			if err := tx.
				Where("serie = ? AND ejercicio_fiscal = ? AND numero_factura = ?",
					candidate.Series, candidate.FiscalYear, seq.LastNumber).
				First(&last).Error; err != nil {
				return err
			}
			previousHash = last.CurrentHash
		}

		entry, err = ledger.NewLedgerEntry(candidate, seq.LastNumber+1, previousHash)
		if err != nil {
			return err
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		seq.LastNumber = entry.SequenceNumber
		seq.UpdatedAt = time.Now()
		return tx.Save(seq).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// lockSequence loads the sequence row FOR UPDATE, seeding it on the first
// append of a (series, fiscal year). The seed goes through ON CONFLICT DO
// NOTHING so a concurrent first append cannot abort the open transaction.
func (r *GormInvoiceLedgerRepository) lockSequence(tx *gorm.DB, series string, fiscalYear int) (*InvoiceSequence, error) {
	seed := InvoiceSequence{Series: series, FiscalYear: fiscalYear, LastNumber: 0, UpdatedAt: time.Now()}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var seq InvoiceSequence
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "serie = ? AND ejercicio_fiscal = ?", series, fiscalYear).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the competing transaction rolled back after winning the insert
			return nil, shared.ErrConcurrencyConflict
		}
		return nil, err
	}
	return &seq, nil
}

// FindByID finds a ledger entry by its ID
func (r *GormInvoiceLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	var entry ledger.InvoiceLedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByOrderID finds the invoice minted for an order
func (r *GormInvoiceLedgerRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	var entry ledger.InvoiceLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND document_type = ?", orderID, ledger.DocumentTypeInvoice).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindChain returns every entry of a (series, fiscal year) ordered by
// sequence number
func (r *GormInvoiceLedgerRepository) FindChain(ctx context.Context, series string, fiscalYear int) ([]ledger.InvoiceLedgerEntry, error) {
	var entries []ledger.InvoiceLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("serie = ? AND ejercicio_fiscal = ?", series, fiscalYear).
		Order("numero_factura").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SavePaymentState persists a payment-state transition with an optimistic
// version check. No hashed column appears in the update list.
func (r *GormInvoiceLedgerRepository) SavePaymentState(ctx context.Context, entry *ledger.InvoiceLedgerEntry) error {
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(map[string]interface{}{
			"estado_pago": entry.PaymentState,
			"version":     entry.Version,
			"updated_at":  entry.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SaveExportState persists the export artifact columns. Export and signing
// are idempotent re-runnable pipelines, so this is a plain last-writer-wins
// update without a version check.
func (r *GormInvoiceLedgerRepository) SaveExportState(ctx context.Context, entry *ledger.InvoiceLedgerEntry) error {
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"xml_content":        entry.XMLContent,
			"signed_xml_content": entry.SignedXMLContent,
			"schema_valid":       entry.SchemaValid,
			"validation_errors":  entry.ValidationErrors,
			"signed_at":          entry.SignedAt,
			"updated_at":         entry.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IsHalted reports whether appends to the chain are blocked
func (r *GormInvoiceLedgerRepository) IsHalted(ctx context.Context, series string, fiscalYear int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ChainHalt{}).
		Where("serie = ? AND ejercicio_fiscal = ?", series, fiscalYear).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordHalt blocks further appends to the chain. Idempotent; the first
// recorded reason wins.
func (r *GormInvoiceLedgerRepository) RecordHalt(ctx context.Context, series string, fiscalYear int, reason string) error {
	halt := ChainHalt{Series: series, FiscalYear: fiscalYear, Reason: reason, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&halt).Error
}
