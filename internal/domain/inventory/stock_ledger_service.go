package inventory

import (
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StockRequest asks for a quantity of a single stock item
type StockRequest struct {
	StockItemID uuid.UUID
	Quantity    int64
}

// StockLedgerService applies grouped stock operations with all-or-nothing
// semantics. The whole group is validated before any item is mutated, so a
// shortfall on one item leaves every item untouched. Callers load the items
// inside the transaction that will persist them; availability is therefore
// re-checked against current state at apply time.
type StockLedgerService struct{}

// NewStockLedgerService creates a new StockLedgerService
func NewStockLedgerService() *StockLedgerService {
	return &StockLedgerService{}
}

// CheckAvailability verifies the full request group against the given items.
// Pure read; reports every shortfall, not just the first.
func (s *StockLedgerService) CheckAvailability(items map[uuid.UUID]*StockItem, requests []StockRequest) error {
	var shortfalls []StockShortfall

	for _, req := range requests {
		if req.Quantity <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
		}
		item, ok := items[req.StockItemID]
		if !ok {
			return shared.NewDomainError("STOCK_ITEM_NOT_FOUND", "Stock item not found: "+req.StockItemID.String())
		}
		if !item.CanFulfill(req.Quantity) {
			shortfalls = append(shortfalls, StockShortfall{
				StockItemID: item.ID,
				SKU:         item.SKU,
				Required:    req.Quantity,
				Available:   item.QuantityOnHand,
			})
		}
	}

	if len(shortfalls) > 0 {
		return &InsufficientStockError{Items: shortfalls}
	}
	return nil
}

// Decrement applies the full request group. Availability is re-checked here
// before any mutation; on shortfall no item is changed.
func (s *StockLedgerService) Decrement(items map[uuid.UUID]*StockItem, requests []StockRequest) error {
	if err := s.CheckAvailability(items, requests); err != nil {
		return err
	}

	for _, req := range requests {
		if err := items[req.StockItemID].Decrement(req.Quantity); err != nil {
			// CheckAvailability already vetted the group; a failure here means
			// the items changed underneath us within the same transaction.
			return err
		}
	}
	return nil
}

// Increment applies the full request group in reverse. Used for restocking
// and for compensating a failed finalization.
func (s *StockLedgerService) Increment(items map[uuid.UUID]*StockItem, requests []StockRequest) error {
	for _, req := range requests {
		if req.Quantity <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
		}
		if _, ok := items[req.StockItemID]; !ok {
			return shared.NewDomainError("STOCK_ITEM_NOT_FOUND", "Stock item not found: "+req.StockItemID.String())
		}
	}

	for _, req := range requests {
		if err := items[req.StockItemID].Increment(req.Quantity); err != nil {
			return err
		}
	}
	return nil
}
