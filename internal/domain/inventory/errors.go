package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StockShortfall reports the exact shortfall for a single stock item
type StockShortfall struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	SKU         string    `json:"sku"`
	Required    int64     `json:"required"`
	Available   int64     `json:"available"`
}

// InsufficientStockError is a recoverable validation failure reporting the
// per-item shortfall for a requested stock group. Nothing is decremented when
// this error is returned.
type InsufficientStockError struct {
	Items []StockShortfall
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Items))
	for i, s := range e.Items {
		parts[i] = fmt.Sprintf("%s (required %d, available %d)", s.SKU, s.Required, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}
