package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appworkshop "github.com/bikeshop/backend/internal/application/workshop"
	"github.com/bikeshop/backend/internal/domain/inventory"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/domain/workshop"
	"github.com/bikeshop/backend/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, shared.DomainEvent) error { return nil }

// emptyOrders is a repository with no orders; every finalize attempt ends in
// ORDER_NOT_FOUND, which is all the transport-level tests need
type emptyOrders struct{}

func (emptyOrders) FindByID(context.Context, uuid.UUID) (*workshop.RepairOrder, error) {
	return nil, shared.ErrNotFound
}

func (emptyOrders) FindByIDForUpdate(context.Context, uuid.UUID) (*workshop.RepairOrder, error) {
	return nil, shared.ErrNotFound
}

func (emptyOrders) FindByOrderNumber(context.Context, string) (*workshop.RepairOrder, error) {
	return nil, shared.ErrNotFound
}

func (emptyOrders) Save(context.Context, *workshop.RepairOrder) error         { return nil }
func (emptyOrders) SaveWithLock(context.Context, *workshop.RepairOrder) error { return nil }

type passthroughUow struct{}

func (passthroughUow) Execute(ctx context.Context, fn func(context.Context, appworkshop.Repositories) error) error {
	return fn(ctx, appworkshop.Repositories{Orders: emptyOrders{}})
}

func newFinalizeTestRouter(store cache.IdempotencyStore) *gin.Engine {
	service := appworkshop.NewFinalizationService(
		passthroughUow{},
		inventory.NewStockLedgerService(),
		nopPublisher{},
		"001",
		decimal.NewFromInt(21),
		zap.NewNop(),
	)
	handler := NewRepairOrderHandler(service, store, 5*time.Second, zap.NewNop())

	engine := gin.New()
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api)
	return engine
}

func TestRepairOrderHandler_Finalize_InvalidID(t *testing.T) {
	router := newFinalizeTestRouter(cache.NewInMemoryIdempotencyStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/repair-orders/not-a-uuid/finalize", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRepairOrderHandler_Finalize_OrderNotFound(t *testing.T) {
	router := newFinalizeTestRouter(cache.NewInMemoryIdempotencyStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/repair-orders/"+uuid.NewString()+"/finalize", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRepairOrderHandler_Finalize_DuplicateIdempotencyKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	router := newFinalizeTestRouter(store)

	orderID := uuid.NewString()

	first := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/repair-orders/"+orderID+"/finalize", nil)
	req.Header.Set("Idempotency-Key", "retry-123")
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusNotFound, first.Code)

	second := httptest.NewRecorder()
	retry := httptest.NewRequest("POST", "/api/v1/repair-orders/"+orderID+"/finalize", nil)
	retry.Header.Set("Idempotency-Key", "retry-123")
	router.ServeHTTP(second, retry)
	assert.Equal(t, http.StatusConflict, second.Code)
}
