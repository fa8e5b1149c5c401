package handler

import (
	"context"
	"net/http"
	"time"

	appworkshop "github.com/bikeshop/backend/internal/application/workshop"
	"github.com/bikeshop/backend/internal/infrastructure/cache"
	"github.com/bikeshop/backend/internal/interfaces/http/dto"
	"github.com/bikeshop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// idempotencyTTL is how long a finalize request key is remembered.
// Long enough to absorb client retries, short enough not to pin Redis.
const idempotencyTTL = 24 * time.Hour

// RepairOrderHandler handles repair order finalization endpoints
type RepairOrderHandler struct {
	BaseHandler
	finalization    *appworkshop.FinalizationService
	idempotency     cache.IdempotencyStore
	finalizeTimeout time.Duration
	logger          *zap.Logger
}

// NewRepairOrderHandler creates a new RepairOrderHandler
func NewRepairOrderHandler(
	finalization *appworkshop.FinalizationService,
	idempotency cache.IdempotencyStore,
	finalizeTimeout time.Duration,
	logger *zap.Logger,
) *RepairOrderHandler {
	return &RepairOrderHandler{
		finalization:    finalization,
		idempotency:     idempotency,
		finalizeTimeout: finalizeTimeout,
		logger:          logger,
	}
}

// RegisterRoutes registers repair order routes
func (h *RepairOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/repair-orders")
	orders.POST("/:id/finalize", h.Finalize)
}

// FinalizeRequest represents a request to finalize a repair order
type FinalizeRequest struct {
	ForceItemIDs []string `json:"force_item_ids" binding:"omitempty,dive,uuid"`
}

// Finalize closes a repair order: decrements stock, mints the invoice ledger
// entry and transitions the order, all in one transaction.
// An Idempotency-Key header dedupes client retries; the transactional state
// check on the order is what actually prevents double invoicing.
func (h *RepairOrderHandler) Finalize(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req FinalizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	if key := c.GetHeader("Idempotency-Key"); key != "" {
		first, err := h.idempotency.MarkProcessed(c.Request.Context(), key, idempotencyTTL)
		if err != nil {
			// Dedupe is best effort; the order state check still holds
			h.logger.Warn("idempotency store unavailable", zap.Error(err))
		} else if !first {
			h.Error(c, http.StatusConflict, dto.ErrCodeConflict,
				"Request with this Idempotency-Key was already processed")
			return
		}
	}

	appReq := appworkshop.FinalizeOrderRequest{}
	for _, raw := range req.ForceItemIDs {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid force item ID: "+raw)
			return
		}
		appReq.ForceItemIDs = append(appReq.ForceItemIDs, itemID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.finalizeTimeout)
	defer cancel()

	result, err := h.finalization.Finalize(ctx, orderID, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
