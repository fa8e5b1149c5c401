package inventory

import (
	"time"

	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// StockItem represents a tracked inventory product.
// It is the aggregate root for stock operations; QuantityOnHand is mutated
// only through Decrement/Increment so it can never go negative.
type StockItem struct {
	shared.BaseAggregateRoot
	Name             string          `gorm:"size:200;not null"`
	SKU              string          `gorm:"size:50;uniqueIndex;not null"`
	QuantityOnHand   int64           `gorm:"not null;default:0"`
	ReorderThreshold int64           `gorm:"not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MarginPercent    decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// NewStockItem creates a new stock item
func NewStockItem(name, sku string, quantityOnHand int64, unitCost valueobject.Money) (*StockItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Stock item name cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Stock item SKU cannot be empty")
	}
	if quantityOnHand < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity on hand cannot be negative")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	return &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		SKU:               sku,
		QuantityOnHand:    quantityOnHand,
		UnitCost:          unitCost.Amount(),
	}, nil
}

// CanFulfill returns true if the item has enough stock for the requested quantity
func (i *StockItem) CanFulfill(quantity int64) bool {
	return i.QuantityOnHand >= quantity
}

// Decrement reduces the quantity on hand.
// The availability check happens here, at mutation time, not on an earlier read.
func (i *StockItem) Decrement(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Decrement quantity must be positive")
	}
	if !i.CanFulfill(quantity) {
		return &InsufficientStockError{Items: []StockShortfall{{
			StockItemID: i.ID,
			SKU:         i.SKU,
			Required:    quantity,
			Available:   i.QuantityOnHand,
		}}}
	}

	i.QuantityOnHand -= quantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockDecrementedEvent(i, quantity))
	if i.ReorderThreshold > 0 && i.QuantityOnHand <= i.ReorderThreshold {
		i.AddDomainEvent(NewStockBelowThresholdEvent(i))
	}

	return nil
}

// Increment raises the quantity on hand. Used for restocking and for
// compensating a finalization that failed after a partial decrement.
func (i *StockItem) Increment(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Increment quantity must be positive")
	}

	i.QuantityOnHand += quantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockIncrementedEvent(i, quantity))

	return nil
}

// SetReorderThreshold sets the reorder alert threshold
func (i *StockItem) SetReorderThreshold(threshold int64) error {
	if threshold < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Reorder threshold cannot be negative")
	}
	i.ReorderThreshold = threshold
	i.UpdatedAt = time.Now()
	return nil
}

// SetMargin sets the sales margin percentage
func (i *StockItem) SetMargin(marginPercent decimal.Decimal) error {
	if marginPercent.IsNegative() {
		return shared.NewDomainError("INVALID_MARGIN", "Margin cannot be negative")
	}
	i.MarginPercent = marginPercent
	i.UpdatedAt = time.Now()
	return nil
}

// SalePrice returns the unit cost plus the configured margin
func (i *StockItem) SalePrice() valueobject.Money {
	factor := decimal.NewFromInt(1).Add(i.MarginPercent.Div(decimal.NewFromInt(100)))
	return valueobject.NewMoneyEUR(i.UnitCost.Mul(factor).Round(2))
}

// GetUnitCostMoney returns the unit cost as Money
func (i *StockItem) GetUnitCostMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(i.UnitCost)
}

// IsBelowThreshold returns true if stock has fallen to or below the reorder threshold
func (i *StockItem) IsBelowThreshold() bool {
	return i.ReorderThreshold > 0 && i.QuantityOnHand <= i.ReorderThreshold
}
