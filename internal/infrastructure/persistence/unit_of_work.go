package persistence

import (
	"context"

	appworkshop "github.com/bikeshop/backend/internal/application/workshop"
	"gorm.io/gorm"
)

// GormUnitOfWork implements the application's UnitOfWork on a GORM
// transaction: fn gets repositories bound to one tx, and the tx commits only
// if fn returns nil.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute implements workshop.UnitOfWork
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos appworkshop.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, appworkshop.Repositories{
			Orders:         NewGormRepairOrderRepository(tx),
			StockItems:     NewGormStockItemRepository(tx),
			StockMovements: NewGormStockMovementRepository(tx),
			Ledger:         NewGormInvoiceLedgerRepository(tx),
		})
	})
}
