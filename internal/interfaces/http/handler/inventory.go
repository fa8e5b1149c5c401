package handler

import (
	appinventory "github.com/bikeshop/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockItemHandler handles stock item read endpoints
type StockItemHandler struct {
	BaseHandler
	query *appinventory.StockQueryService
}

// NewStockItemHandler creates a new StockItemHandler
func NewStockItemHandler(query *appinventory.StockQueryService) *StockItemHandler {
	return &StockItemHandler{query: query}
}

// RegisterRoutes registers stock item routes
func (h *StockItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/stock-items")
	items.GET("/low-stock", h.ListBelowThreshold)
	items.GET("/:id", h.GetByID)
}

// GetByID returns one stock item
func (h *StockItemHandler) GetByID(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock item ID format")
		return
	}

	item, err := h.query.GetItem(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// ListBelowThreshold returns items at or under their reorder threshold
func (h *StockItemHandler) ListBelowThreshold(c *gin.Context) {
	items, err := h.query.ListBelowThreshold(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}
