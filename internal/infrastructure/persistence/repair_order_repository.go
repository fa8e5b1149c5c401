package persistence

import (
	"context"
	"errors"

	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/domain/workshop"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepairOrderRepository implements RepairOrderRepository using GORM
type GormRepairOrderRepository struct {
	db *gorm.DB
}

// NewGormRepairOrderRepository creates a new GormRepairOrderRepository
func NewGormRepairOrderRepository(db *gorm.DB) *GormRepairOrderRepository {
	return &GormRepairOrderRepository{db: db}
}

// FindByID finds a repair order with its line items
func (r *GormRepairOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*workshop.RepairOrder, error) {
	var order workshop.RepairOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate loads the order row-locked for the duration of the
// surrounding transaction. A concurrent finalization for the same order
// blocks here and then observes FINALIZED.
func (r *GormRepairOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*workshop.RepairOrder, error) {
	var order workshop.RepairOrder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	// Items are loaded separately; FOR UPDATE cannot be combined with the
	// preload join and the lines themselves are frozen by the order lock.
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOrderNumber finds a repair order by its human-facing number
func (r *GormRepairOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*workshop.RepairOrder, error) {
	var order workshop.RepairOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Save creates or updates a repair order together with its line items
func (r *GormRepairOrderRepository) Save(ctx context.Context, order *workshop.RepairOrder) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(order).Error
}

// SaveWithLock saves the order with an optimistic version check. The version
// is incremented here; zero affected rows means another transaction won.
func (r *GormRepairOrderRepository) SaveWithLock(ctx context.Context, order *workshop.RepairOrder) error {
	previousVersion := order.Version
	order.IncrementVersion()

	result := r.db.WithContext(ctx).
		Model(order).
		Where("id = ? AND version = ?", order.ID, previousVersion).
		Updates(map[string]interface{}{
			"status":       order.Status,
			"invoice_id":   order.InvoiceID,
			"finalized_at": order.FinalizedAt,
			"delivered_at": order.DeliveredAt,
			"version":      order.Version,
			"updated_at":   order.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}
