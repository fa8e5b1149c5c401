package workshop

import (
	"time"

	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a repair order
type OrderStatus string

const (
	OrderStatusReceived       OrderStatus = "RECEIVED"
	OrderStatusDiagnosis      OrderStatus = "DIAGNOSIS"
	OrderStatusInRepair       OrderStatus = "IN_REPAIR"
	OrderStatusAwaitingParts  OrderStatus = "AWAITING_PARTS"
	OrderStatusFinalized      OrderStatus = "FINALIZED"
	OrderStatusNotifyCustomer OrderStatus = "NOTIFY_CUSTOMER"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusReceived, OrderStatusDiagnosis, OrderStatusInRepair,
		OrderStatusAwaitingParts, OrderStatusFinalized, OrderStatusNotifyCustomer,
		OrderStatusDelivered:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// FINALIZED is reachable only from IN_REPAIR or AWAITING_PARTS, and only the
// finalization flow performs that transition.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusReceived:
		return target == OrderStatusDiagnosis
	case OrderStatusDiagnosis:
		return target == OrderStatusInRepair
	case OrderStatusInRepair:
		return target == OrderStatusAwaitingParts || target == OrderStatusFinalized
	case OrderStatusAwaitingParts:
		return target == OrderStatusInRepair || target == OrderStatusFinalized
	case OrderStatusFinalized:
		return target == OrderStatusNotifyCustomer
	case OrderStatusNotifyCustomer:
		return target == OrderStatusDelivered
	case OrderStatusDelivered:
		return false // Terminal state
	}
	return false
}

// InvalidStateTransitionError reports a rejected order state transition.
// The order is left unmodified when this error is returned.
type InvalidStateTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

// Error implements the error interface
func (e *InvalidStateTransitionError) Error() string {
	return "invalid state transition from " + string(e.From) + " to " + string(e.To)
}

// OrderLineItem is a product or service line on a repair order.
// A nil StockItemID marks a non-tracked service line. Lines are frozen once
// the order reaches FINALIZED.
type OrderLineItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	StockItemID *uuid.UUID
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (OrderLineItem) TableName() string {
	return "order_line_items"
}

// NewOrderLineItem creates a new order line item
func NewOrderLineItem(orderID uuid.UUID, stockItemID *uuid.UUID, description string, quantity int64, unitPrice valueobject.Money) (*OrderLineItem, error) {
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line item description cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &OrderLineItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		StockItemID: stockItemID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		LineTotal:   unitPrice.Amount().Mul(decimal.NewFromInt(quantity)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsStockTracked returns true if this line consumes inventory
func (i *OrderLineItem) IsStockTracked() bool {
	return i.StockItemID != nil
}

// UpdateQuantity updates the quantity and recalculates the line total
func (i *OrderLineItem) UpdateQuantity(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	i.Quantity = quantity
	i.LineTotal = i.UnitPrice.Mul(decimal.NewFromInt(quantity))
	i.UpdatedAt = time.Now()
	return nil
}

// RepairOrder is the aggregate root for a workshop repair.
// It owns its line items and produces at most one invoice, minted by the
// finalization flow when the order transitions to FINALIZED.
type RepairOrder struct {
	shared.BaseAggregateRoot
	OrderNumber           string `gorm:"size:50;uniqueIndex;not null"`
	CustomerID            uuid.UUID
	BicycleID             uuid.UUID
	Status                OrderStatus `gorm:"size:20;not null"`
	EntryDate             time.Time
	EstimatedDeliveryDate *time.Time
	EstimatedCost         *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Items                 []OrderLineItem  `gorm:"foreignKey:OrderID;references:ID"`
	InvoiceID             *uuid.UUID       `gorm:"type:uuid;index"`
	FinalizedAt           *time.Time
	DeliveredAt           *time.Time
}

// TableName returns the table name for GORM
func (RepairOrder) TableName() string {
	return "repair_orders"
}

// NewRepairOrder creates a new repair order in RECEIVED status
func NewRepairOrder(orderNumber string, customerID, bicycleID uuid.UUID) (*RepairOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if bicycleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BICYCLE", "Bicycle ID cannot be empty")
	}

	order := &RepairOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		BicycleID:         bicycleID,
		Status:            OrderStatusReceived,
		EntryDate:         time.Now(),
		Items:             make([]OrderLineItem, 0),
	}

	order.AddDomainEvent(NewRepairOrderCreatedEvent(order))

	return order, nil
}

// CanModify returns true if line items may still be added or edited
func (o *RepairOrder) CanModify() bool {
	switch o.Status {
	case OrderStatusFinalized, OrderStatusNotifyCustomer, OrderStatusDelivered:
		return false
	}
	return true
}

// AddItem adds a line item to the order. Not allowed once finalized.
func (o *RepairOrder) AddItem(stockItemID *uuid.UUID, description string, quantity int64, unitPrice valueobject.Money) (*OrderLineItem, error) {
	if !o.CanModify() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a finalized order")
	}

	item, err := NewOrderLineItem(o.ID, stockItemID, description, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.UpdatedAt = time.Now()

	return item, nil
}

// RemoveItem removes a line item from the order. Not allowed once finalized.
func (o *RepairOrder) RemoveItem(itemID uuid.UUID) error {
	if !o.CanModify() {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove items from a finalized order")
	}

	for idx, item := range o.Items {
		if item.ID == itemID {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Order line item not found")
}

// Total sums the line totals of all items. Recomputed from the current lines
// every time; nothing is cached.
func (o *RepairOrder) Total() decimal.Decimal {
	return TotalOf(o.Items)
}

// TotalOf sums the line totals of a set of line items. Pure function.
func TotalOf(items []OrderLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// StockTrackedItems returns the line items that consume inventory
func (o *RepairOrder) StockTrackedItems() []OrderLineItem {
	tracked := make([]OrderLineItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.IsStockTracked() {
			tracked = append(tracked, item)
		}
	}
	return tracked
}

// TransitionTo moves the order to the target status if the transition is
// legal. The order is left untouched on rejection.
func (o *RepairOrder) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(target))
	}
	if !o.Status.CanTransitionTo(target) {
		return &InvalidStateTransitionError{From: o.Status, To: target}
	}

	from := o.Status
	now := time.Now()
	o.Status = target
	o.UpdatedAt = now

	switch target {
	case OrderStatusFinalized:
		o.FinalizedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	}

	o.AddDomainEvent(NewRepairOrderStatusChangedEvent(o, from, target))

	return nil
}

// Finalize transitions the order to FINALIZED and records the minted invoice.
// Called exclusively by the finalization flow after stock has been decremented
// and the ledger entry appended.
func (o *RepairOrder) Finalize(invoiceID uuid.UUID) error {
	if o.IsFinalized() {
		return shared.NewDomainError("ALREADY_FINALIZED", "Order has already been finalized")
	}
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if err := o.TransitionTo(OrderStatusFinalized); err != nil {
		return err
	}

	o.InvoiceID = &invoiceID
	return nil
}

// IsFinalized returns true if the order has been finalized or moved beyond
func (o *RepairOrder) IsFinalized() bool {
	switch o.Status {
	case OrderStatusFinalized, OrderStatusNotifyCustomer, OrderStatusDelivered:
		return true
	}
	return false
}

// CanFinalize returns true if FINALIZED is reachable from the current status
func (o *RepairOrder) CanFinalize() bool {
	return o.Status.CanTransitionTo(OrderStatusFinalized)
}

// SetEstimate records the estimated delivery date and cost
func (o *RepairOrder) SetEstimate(deliveryDate *time.Time, cost *valueobject.Money) {
	o.EstimatedDeliveryDate = deliveryDate
	if cost != nil {
		amount := cost.Amount()
		o.EstimatedCost = &amount
	}
	o.UpdatedAt = time.Now()
}
