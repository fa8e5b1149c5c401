package workshop

import (
	"github.com/bikeshop/backend/internal/domain/shared"
)

// Event types for the repair order aggregate
const (
	EventTypeRepairOrderCreated       = "workshop.repair_order_created"
	EventTypeRepairOrderStatusChanged = "workshop.repair_order_status_changed"
)

// RepairOrderCreatedEvent is emitted when a repair order is registered
type RepairOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewRepairOrderCreatedEvent creates a RepairOrderCreatedEvent
func NewRepairOrderCreatedEvent(order *RepairOrder) *RepairOrderCreatedEvent {
	return &RepairOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRepairOrderCreated, order.ID, "RepairOrder"),
		OrderNumber:     order.OrderNumber,
	}
}

// RepairOrderStatusChangedEvent is emitted on every legal state transition
type RepairOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string      `json:"order_number"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
}

// NewRepairOrderStatusChangedEvent creates a RepairOrderStatusChangedEvent
func NewRepairOrderStatusChangedEvent(order *RepairOrder, from, to OrderStatus) *RepairOrderStatusChangedEvent {
	return &RepairOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRepairOrderStatusChanged, order.ID, "RepairOrder"),
		OrderNumber:     order.OrderNumber,
		From:            from,
		To:              to,
	}
}
