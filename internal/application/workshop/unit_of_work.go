package workshop

import (
	"context"

	"github.com/bikeshop/backend/internal/domain/inventory"
	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/workshop"
)

// Repositories bundles the repositories bound to a single transactional
// scope. Inside a UnitOfWork callback every repository operates on the
// same database transaction.
type Repositories struct {
	Orders         workshop.RepairOrderRepository
	StockItems     inventory.StockItemRepository
	StockMovements inventory.StockMovementRepository
	Ledger         ledger.InvoiceLedgerRepository
}

// UnitOfWork runs fn atomically: either every write performed through the
// supplied repositories commits, or none do.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
