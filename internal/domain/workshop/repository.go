package workshop

import (
	"context"

	"github.com/google/uuid"
)

// RepairOrderRepository provides persistence for repair orders
type RepairOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RepairOrder, error)
	// FindByIDForUpdate loads the order row-locked for the duration of the
	// surrounding transaction. Finalization uses this so a concurrent call for
	// the same order blocks behind the first and then sees FINALIZED.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*RepairOrder, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*RepairOrder, error)
	Save(ctx context.Context, order *RepairOrder) error
	// SaveWithLock saves with an optimistic version check
	SaveWithLock(ctx context.Context, order *RepairOrder) error
}
