package handler

import (
	"strconv"

	appledger "github.com/bikeshop/backend/internal/application/ledger"
	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles invoice ledger endpoints
type LedgerHandler struct {
	BaseHandler
	service *appledger.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *appledger.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes registers ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.GET("/:id", h.GetEntry)
	invoices.POST("/:id/credit-note", h.IssueCreditNote)
	invoices.POST("/:id/payment-state", h.TransitionPaymentState)

	rg.GET("/repair-orders/:id/invoice", h.GetOrderInvoice)

	chains := rg.Group("/ledger")
	chains.GET("/:series/:year/verify", h.VerifyChain)
}

// GetEntry returns one ledger entry by ID
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	entry, err := h.service.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, appledger.ToLedgerEntryResponse(entry))
}

// GetOrderInvoice returns the invoice minted when an order was finalized
func (h *LedgerHandler) GetOrderInvoice(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	entry, err := h.service.GetEntryByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, appledger.ToLedgerEntryResponse(entry))
}

// VerifyChain recomputes every hash link of a (series, fiscal year) chain.
// A broken chain is reported with 200; the failure is in the payload, and the
// chain is halted against further appends as a side effect.
func (h *LedgerHandler) VerifyChain(c *gin.Context) {
	series := c.Param("series")
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.BadRequest(c, "Invalid fiscal year")
		return
	}

	report, err := h.service.VerifyChain(c.Request.Context(), series, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, appledger.ToVerifyChainResult(report))
}

// IssueCreditNote appends a rectificative entry against an invoice
func (h *LedgerHandler) IssueCreditNote(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req appledger.CreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	taxBase, err := decimal.NewFromString(req.TaxBase)
	if err != nil {
		h.BadRequest(c, "Invalid tax base: "+req.TaxBase)
		return
	}

	note, err := h.service.IssueCreditNote(c.Request.Context(), entryID, taxBase, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, appledger.ToLedgerEntryResponse(note))
}

// TransitionPaymentState moves an entry between payment states.
// Payment state sits outside the hashed fields, so this never touches the chain
func (h *LedgerHandler) TransitionPaymentState(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req appledger.PaymentStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entry, err := h.service.TransitionPaymentState(c.Request.Context(), entryID, ledger.PaymentState(req.State))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, appledger.ToLedgerEntryResponse(entry))
}
