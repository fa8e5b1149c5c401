package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockItemRepository provides persistence for stock items
type StockItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockItem, error)
	FindBySKU(ctx context.Context, sku string) (*StockItem, error)
	FindBelowThreshold(ctx context.Context) ([]StockItem, error)
	// FindByIDsForUpdate loads the items row-locked for the duration of the
	// surrounding transaction, so grouped decrements cannot race.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*StockItem, error)
	Save(ctx context.Context, item *StockItem) error
	SaveAll(ctx context.Context, items []*StockItem) error
}

// StockMovementRepository records the stock audit trail
type StockMovementRepository interface {
	Save(ctx context.Context, movement *StockMovement) error
	SaveAll(ctx context.Context, movements []*StockMovement) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]StockMovement, error)
}
