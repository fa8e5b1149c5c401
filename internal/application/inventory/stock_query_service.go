package inventory

import (
	"context"

	"github.com/bikeshop/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockQueryService serves read models of the stock catalogue for the UI.
// Writes go through the finalization flow only
type StockQueryService struct {
	items inventory.StockItemRepository
}

// NewStockQueryService creates a new StockQueryService
func NewStockQueryService(items inventory.StockItemRepository) *StockQueryService {
	return &StockQueryService{items: items}
}

// StockItemResponse is the API view of a stock item
type StockItemResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	SKU              string    `json:"sku"`
	QuantityOnHand   int64     `json:"quantity_on_hand"`
	ReorderThreshold int64     `json:"reorder_threshold"`
	UnitCost         string    `json:"unit_cost"`
	SalePrice        string    `json:"sale_price"`
	BelowThreshold   bool      `json:"below_threshold"`
}

// GetItem returns one stock item by ID
func (s *StockQueryService) GetItem(ctx context.Context, id uuid.UUID) (*StockItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toStockItemResponse(item)
	return &resp, nil
}

// ListBelowThreshold returns the items that need reordering
func (s *StockQueryService) ListBelowThreshold(ctx context.Context) ([]StockItemResponse, error) {
	items, err := s.items.FindBelowThreshold(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]StockItemResponse, len(items))
	for i := range items {
		responses[i] = toStockItemResponse(&items[i])
	}
	return responses, nil
}

func toStockItemResponse(item *inventory.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:               item.ID,
		Name:             item.Name,
		SKU:              item.SKU,
		QuantityOnHand:   item.QuantityOnHand,
		ReorderThreshold: item.ReorderThreshold,
		UnitCost:         item.UnitCost.StringFixed(2),
		SalePrice:        item.SalePrice().StringFixed(2),
		BelowThreshold:   item.IsBelowThreshold(),
	}
}
