package handler

import (
	"encoding/base64"
	"time"

	appfiscal "github.com/bikeshop/backend/internal/application/fiscal"
	"github.com/bikeshop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FiscalHandler handles Facturae export and signing endpoints
type FiscalHandler struct {
	BaseHandler
	service *appfiscal.ExportService
}

// NewFiscalHandler creates a new FiscalHandler
func NewFiscalHandler(service *appfiscal.ExportService) *FiscalHandler {
	return &FiscalHandler{service: service}
}

// RegisterRoutes registers fiscal document routes
func (h *FiscalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.GET("/:id/export", h.Export)
	invoices.POST("/:id/sign", h.Sign)
}

// SignRequest optionally carries a PKCS#12 certificate to sign with instead
// of the configured one. Certificate is base64 encoded.
type SignRequest struct {
	Certificate         string `json:"certificate"`
	CertificatePassword string `json:"certificate_password"`
}

// ValidationResponse reports the schema validation outcome of a document
type ValidationResponse struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// ExportResponse carries a generated fiscal document
type ExportResponse struct {
	InvoiceNumber string             `json:"invoice_number"`
	Key           string             `json:"key"`
	ContentType   string             `json:"content_type"`
	DemoSignature bool               `json:"demo_signature,omitempty"`
	SignedAt      *time.Time         `json:"signed_at,omitempty"`
	Validation    ValidationResponse `json:"validation"`
	XMLContent    string             `json:"xml_content"`
}

// Export renders and stores the Facturae XML for an invoice
func (h *FiscalHandler) Export(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.service.Export(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toExportResponse(result))
}

// Sign renders and signs the Facturae document for an invoice, stores it and
// reports the schema validation of the signed result. The request body is
// optional; without it the configured certificate signs.
func (h *FiscalHandler) Sign(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req SignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	opts := appfiscal.SignOptions{Password: req.CertificatePassword}
	if req.Certificate != "" {
		certificate, err := base64.StdEncoding.DecodeString(req.Certificate)
		if err != nil {
			h.BadRequest(c, "Certificate must be base64 encoded")
			return
		}
		opts.Certificate = certificate
	}

	result, err := h.service.Sign(c.Request.Context(), invoiceID, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toExportResponse(result))
}

func toExportResponse(result *appfiscal.ExportResult) ExportResponse {
	return ExportResponse{
		InvoiceNumber: result.InvoiceNumber,
		Key:           result.Key,
		ContentType:   result.ContentType,
		DemoSignature: result.DemoSignature,
		SignedAt:      result.SignedAt,
		Validation: ValidationResponse{
			IsValid: result.Validation.IsValid,
			Errors:  result.Validation.Errors,
		},
		XMLContent: string(result.Content),
	}
}
