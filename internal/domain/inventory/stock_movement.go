package inventory

import (
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MovementType classifies a stock movement for the audit trail
type MovementType string

const (
	MovementTypeDecrement   MovementType = "DECREMENT"   // consumed by an order finalization
	MovementTypeIncrement   MovementType = "INCREMENT"   // restock or compensation
	MovementTypeUnfulfilled MovementType = "UNFULFILLED" // forced finalization skipped the decrement
)

// StockMovement is an immutable audit record of a stock mutation.
// One row is written per item per operation; compensations write their own rows.
type StockMovement struct {
	shared.BaseEntity
	StockItemID uuid.UUID    `gorm:"type:uuid;not null;index"`
	OrderID     *uuid.UUID   `gorm:"type:uuid;index"`
	Type        MovementType `gorm:"size:20;not null"`
	Quantity    int64        `gorm:"not null"`
	Reason      string       `gorm:"size:200"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a stock movement record
func NewStockMovement(stockItemID uuid.UUID, orderID *uuid.UUID, movementType MovementType, quantity int64, reason string) *StockMovement {
	return &StockMovement{
		BaseEntity:  shared.NewBaseEntity(),
		StockItemID: stockItemID,
		OrderID:     orderID,
		Type:        movementType,
		Quantity:    quantity,
		Reason:      reason,
	}
}
