package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appledger "github.com/bikeshop/backend/internal/application/ledger"
	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chainKey struct {
	series string
	year   int
}

// memoryLedger keeps one hash chain per (series, fiscal year) in memory,
// mirroring the append semantics of the real repository
type memoryLedger struct {
	chains map[chainKey][]*ledger.InvoiceLedgerEntry
	halts  map[chainKey]string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		chains: make(map[chainKey][]*ledger.InvoiceLedgerEntry),
		halts:  make(map[chainKey]string),
	}
}

func (m *memoryLedger) Append(_ context.Context, c ledger.EntryCandidate) (*ledger.InvoiceLedgerEntry, error) {
	key := chainKey{c.Series, c.FiscalYear}
	if _, halted := m.halts[key]; halted {
		return nil, shared.NewDomainErrorWithCategory("CHAIN_HALTED", "chain is halted", shared.CategoryIntegrity)
	}
	chain := m.chains[key]
	seq := int64(len(chain) + 1)
	prev := ledger.GenesisHash
	if seq > 1 {
		prev = chain[len(chain)-1].CurrentHash
	}
	entry, err := ledger.NewLedgerEntry(c, seq, prev)
	if err != nil {
		return nil, err
	}
	m.chains[key] = append(chain, entry)
	return entry, nil
}

func (m *memoryLedger) FindByID(_ context.Context, id uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	for _, chain := range m.chains {
		for _, e := range chain {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryLedger) FindByOrderID(_ context.Context, orderID uuid.UUID) (*ledger.InvoiceLedgerEntry, error) {
	for _, chain := range m.chains {
		for _, e := range chain {
			if e.OrderID != nil && *e.OrderID == orderID {
				return e, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryLedger) FindChain(_ context.Context, series string, fiscalYear int) ([]ledger.InvoiceLedgerEntry, error) {
	chain := m.chains[chainKey{series, fiscalYear}]
	out := make([]ledger.InvoiceLedgerEntry, 0, len(chain))
	for _, e := range chain {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryLedger) SavePaymentState(_ context.Context, _ *ledger.InvoiceLedgerEntry) error {
	return nil
}

func (m *memoryLedger) SaveExportState(_ context.Context, _ *ledger.InvoiceLedgerEntry) error {
	return nil
}

func (m *memoryLedger) IsHalted(_ context.Context, series string, fiscalYear int) (bool, error) {
	_, halted := m.halts[chainKey{series, fiscalYear}]
	return halted, nil
}

func (m *memoryLedger) RecordHalt(_ context.Context, series string, fiscalYear int, reason string) error {
	m.halts[chainKey{series, fiscalYear}] = reason
	return nil
}

func newLedgerTestRouter(repo *memoryLedger) *gin.Engine {
	service := appledger.NewLedgerService(repo, decimal.NewFromInt(21), zap.NewNop())
	handler := NewLedgerHandler(service)

	engine := gin.New()
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api)
	return engine
}

func appendInvoice(t *testing.T, repo *memoryLedger, taxBase string) *ledger.InvoiceLedgerEntry {
	t.Helper()
	base, err := decimal.NewFromString(taxBase)
	require.NoError(t, err)
	orderID := uuid.New()
	entry, err := repo.Append(context.Background(), ledger.EntryCandidate{
		DocumentType: ledger.DocumentTypeInvoice,
		Series:       "001",
		FiscalYear:   2026,
		OrderID:      &orderID,
		CustomerID:   uuid.New(),
		IssueDate:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		TaxBase:      base,
		TaxRate:      decimal.NewFromInt(21),
	})
	require.NoError(t, err)
	return entry
}

func TestLedgerHandler_GetEntry(t *testing.T) {
	repo := newMemoryLedger()
	entry := appendInvoice(t, repo, "100.00")
	router := newLedgerTestRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/invoices/"+entry.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"invoice_number":"001/2026-000001"`)
	assert.Contains(t, w.Body.String(), `"total_amount":"121.00"`)
}

func TestLedgerHandler_GetEntry_NotFound(t *testing.T) {
	router := newLedgerTestRouter(newMemoryLedger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/invoices/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerHandler_GetOrderInvoice(t *testing.T) {
	repo := newMemoryLedger()
	entry := appendInvoice(t, repo, "100.00")
	router := newLedgerTestRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/repair-orders/"+entry.OrderID.String()+"/invoice", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"invoice_number":"001/2026-000001"`)
}

func TestLedgerHandler_GetOrderInvoice_NotFound(t *testing.T) {
	router := newLedgerTestRouter(newMemoryLedger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/repair-orders/"+uuid.NewString()+"/invoice", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerHandler_VerifyChain(t *testing.T) {
	t.Run("intact chain", func(t *testing.T) {
		repo := newMemoryLedger()
		appendInvoice(t, repo, "100.00")
		appendInvoice(t, repo, "50.00")
		router := newLedgerTestRouter(repo)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/ledger/001/2026/verify", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok":true`)
		assert.Contains(t, w.Body.String(), `"entries":2`)
	})

	t.Run("tampered chain reports broken links", func(t *testing.T) {
		repo := newMemoryLedger()
		appendInvoice(t, repo, "100.00")
		appendInvoice(t, repo, "50.00")
		repo.chains[chainKey{"001", 2026}][0].TotalAmount = decimal.NewFromInt(999)
		router := newLedgerTestRouter(repo)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/ledger/001/2026/verify", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok":false`)
		assert.Contains(t, w.Body.String(), `"broken_at":[1]`)

		halted, err := repo.IsHalted(context.Background(), "001", 2026)
		require.NoError(t, err)
		assert.True(t, halted)
	})

	t.Run("invalid year", func(t *testing.T) {
		router := newLedgerTestRouter(newMemoryLedger())

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/ledger/001/banana/verify", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandler_IssueCreditNote(t *testing.T) {
	repo := newMemoryLedger()
	original := appendInvoice(t, repo, "100.00")
	router := newLedgerTestRouter(repo)

	body := `{"tax_base": "40.00", "reason": "Parts returned"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/invoices/"+original.ID.String()+"/credit-note",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"document_type":"CREDIT_NOTE"`)
	assert.Contains(t, w.Body.String(), `"series":"R001"`)
	assert.Contains(t, w.Body.String(), `"rectifies_entry_id":"`+original.ID.String()+`"`)
}

func TestLedgerHandler_IssueCreditNote_ExceedsOriginal(t *testing.T) {
	repo := newMemoryLedger()
	original := appendInvoice(t, repo, "100.00")
	router := newLedgerTestRouter(repo)

	body := `{"tax_base": "150.00", "reason": "Too much"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/invoices/"+original.ID.String()+"/credit-note",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_TransitionPaymentState(t *testing.T) {
	repo := newMemoryLedger()
	entry := appendInvoice(t, repo, "100.00")
	router := newLedgerTestRouter(repo)

	body := `{"state": "PAID"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/invoices/"+entry.ID.String()+"/payment-state",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_state":"PAID"`)
}

func TestLedgerHandler_TransitionPaymentState_RejectsUnknownState(t *testing.T) {
	repo := newMemoryLedger()
	entry := appendInvoice(t, repo, "100.00")
	router := newLedgerTestRouter(repo)

	body := `{"state": "REFUNDED"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/invoices/"+entry.ID.String()+"/payment-state",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
