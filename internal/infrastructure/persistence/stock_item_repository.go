package persistence

import (
	"context"
	"errors"

	"github.com/bikeshop/backend/internal/domain/inventory"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindByID finds a stock item by its ID
func (r *GormStockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockItem, error) {
	var item inventory.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindBySKU finds a stock item by its SKU
func (r *GormStockItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.StockItem, error) {
	var item inventory.StockItem
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindBelowThreshold finds items whose on-hand quantity fell to or below
// their reorder threshold
func (r *GormStockItemRepository) FindBelowThreshold(ctx context.Context) ([]inventory.StockItem, error) {
	var items []inventory.StockItem
	if err := r.db.WithContext(ctx).
		Where("reorder_threshold > 0 AND quantity_on_hand <= reorder_threshold").
		Order("sku").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByIDsForUpdate loads the items with row locks held until the
// surrounding transaction ends. Rows are locked in id order so concurrent
// finalizations touching overlapping groups cannot deadlock.
func (r *GormStockItemRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*inventory.StockItem, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*inventory.StockItem{}, nil
	}

	var items []inventory.StockItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]*inventory.StockItem, len(items))
	for i := range items {
		result[items[i].ID] = &items[i]
	}

	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, shared.NewDomainError("STOCK_ITEM_NOT_FOUND", "Stock item not found: "+id.String())
		}
	}
	return result, nil
}

// Save creates or updates a stock item
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveAll persists a group of stock items in one statement batch
func (r *GormStockItemRepository) SaveAll(ctx context.Context, items []*inventory.StockItem) error {
	for _, item := range items {
		if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
			return err
		}
	}
	return nil
}
