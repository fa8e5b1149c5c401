package inventory

import (
	"github.com/bikeshop/backend/internal/domain/shared"
)

// Event types for the inventory aggregate
const (
	EventTypeStockDecremented     = "inventory.stock_decremented"
	EventTypeStockIncremented     = "inventory.stock_incremented"
	EventTypeStockBelowThreshold  = "inventory.stock_below_threshold"
)

// StockDecrementedEvent is emitted when stock is consumed
type StockDecrementedEvent struct {
	shared.BaseDomainEvent
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	Remaining int64  `json:"remaining"`
}

// NewStockDecrementedEvent creates a StockDecrementedEvent
func NewStockDecrementedEvent(item *StockItem, quantity int64) *StockDecrementedEvent {
	return &StockDecrementedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDecremented, item.ID, "StockItem"),
		SKU:             item.SKU,
		Quantity:        quantity,
		Remaining:       item.QuantityOnHand,
	}
}

// StockIncrementedEvent is emitted when stock is restocked or compensated
type StockIncrementedEvent struct {
	shared.BaseDomainEvent
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	Remaining int64  `json:"remaining"`
}

// NewStockIncrementedEvent creates a StockIncrementedEvent
func NewStockIncrementedEvent(item *StockItem, quantity int64) *StockIncrementedEvent {
	return &StockIncrementedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockIncremented, item.ID, "StockItem"),
		SKU:             item.SKU,
		Quantity:        quantity,
		Remaining:       item.QuantityOnHand,
	}
}

// StockBelowThresholdEvent is emitted when stock falls to or below the reorder threshold
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	SKU       string `json:"sku"`
	Remaining int64  `json:"remaining"`
	Threshold int64  `json:"threshold"`
}

// NewStockBelowThresholdEvent creates a StockBelowThresholdEvent
func NewStockBelowThresholdEvent(item *StockItem) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, item.ID, "StockItem"),
		SKU:             item.SKU,
		Remaining:       item.QuantityOnHand,
		Threshold:       item.ReorderThreshold,
	}
}
