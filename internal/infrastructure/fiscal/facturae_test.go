package fiscal

import (
	"strings"
	"testing"
	"time"

	appfiscal "github.com/bikeshop/backend/internal/application/fiscal"
	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeller() appfiscal.Party {
	return appfiscal.Party{
		TaxID:    "B12345678",
		Name:     "Talleres Ciclo Norte SL",
		Address:  "Calle Mayor 12",
		PostCode: "28001",
		Town:     "Madrid",
		Province: "Madrid",
	}
}

func testBuyer() appfiscal.Party {
	return appfiscal.Party{
		TaxID:    "12345678Z",
		Name:     "Cliente de Taller",
		Address:  "Avenida del Sol 3",
		PostCode: "28002",
		Town:     "Madrid",
		Province: "Madrid",
	}
}

func testEntry(t *testing.T, taxBase string) *ledger.InvoiceLedgerEntry {
	t.Helper()
	base, err := decimal.NewFromString(taxBase)
	require.NoError(t, err)
	orderID := uuid.New()
	entry, err := ledger.NewLedgerEntry(ledger.EntryCandidate{
		DocumentType: ledger.DocumentTypeInvoice,
		Series:       "001",
		FiscalYear:   2026,
		OrderID:      &orderID,
		CustomerID:   uuid.New(),
		IssueDate:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		TaxBase:      base,
		TaxRate:      decimal.NewFromInt(21),
	}, 1, ledger.GenesisHash)
	require.NoError(t, err)
	return entry
}

func TestFacturaeRenderer_Render(t *testing.T) {
	entry := testEntry(t, "100.00")
	renderer := NewFacturaeRenderer()

	out, err := renderer.Render(appfiscal.InvoiceDocument{
		Entry:  entry,
		Seller: testSeller(),
		Buyer:  testBuyer(),
	})
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, "<SchemaVersion>3.2.2</SchemaVersion>")
	assert.Contains(t, doc, "<InvoiceSeriesCode>001</InvoiceSeriesCode>")
	assert.Contains(t, doc, "<InvoiceNumber>000001</InvoiceNumber>")
	assert.Contains(t, doc, "<IssueDate>2026-03-14</IssueDate>")
	assert.Contains(t, doc, "<TaxRate>21.00</TaxRate>")
	assert.Contains(t, doc, "<InvoiceTotal>121.00</InvoiceTotal>")
	assert.Contains(t, doc, "<TaxIdentificationNumber>B12345678</TaxIdentificationNumber>")
	assert.True(t, strings.HasPrefix(doc, "<?xml"))
}

func TestFacturaeRenderer_Render_Deterministic(t *testing.T) {
	entry := testEntry(t, "250.50")
	renderer := NewFacturaeRenderer()
	doc := appfiscal.InvoiceDocument{Entry: entry, Seller: testSeller(), Buyer: testBuyer()}

	first, err := renderer.Render(doc)
	require.NoError(t, err)
	second, err := renderer.Render(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFacturaeRenderer_Render_CreditNote(t *testing.T) {
	original := testEntry(t, "200.00")
	candidate, err := ledger.NewCreditNoteCandidate(original, decimal.NewFromInt(50), "defective part returned")
	require.NoError(t, err)
	note, err := ledger.NewLedgerEntry(candidate, 1, ledger.GenesisHash)
	require.NoError(t, err)

	renderer := NewFacturaeRenderer()
	out, err := renderer.Render(appfiscal.InvoiceDocument{
		Entry:     note,
		Rectifies: original,
		Seller:    testSeller(),
		Buyer:     testBuyer(),
	})
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, "<InvoiceClass>OR</InvoiceClass>")
	assert.Contains(t, doc, "<InvoiceSeriesCode>R001</InvoiceSeriesCode>")
	// the corrective block references the original invoice
	assert.Contains(t, doc, "<Corrective>")
	assert.Contains(t, doc, "<ReasonDescription>defective part returned</ReasonDescription>")
}

func TestFacturaeRenderer_Render_CreditNoteWithoutOriginal(t *testing.T) {
	original := testEntry(t, "200.00")
	candidate, err := ledger.NewCreditNoteCandidate(original, decimal.NewFromInt(50), "missing link")
	require.NoError(t, err)
	note, err := ledger.NewLedgerEntry(candidate, 1, ledger.GenesisHash)
	require.NoError(t, err)

	_, err = NewFacturaeRenderer().Render(appfiscal.InvoiceDocument{
		Entry:  note,
		Seller: testSeller(),
		Buyer:  testBuyer(),
	})
	assert.Error(t, err)
}

func TestStructuralValidator_AcceptsRenderedDocument(t *testing.T) {
	entry := testEntry(t, "100.00")
	out, err := NewFacturaeRenderer().Render(appfiscal.InvoiceDocument{
		Entry: entry, Seller: testSeller(), Buyer: testBuyer(),
	})
	require.NoError(t, err)

	assert.NoError(t, NewStructuralValidator().Validate(out))
}

func TestStructuralValidator_RejectsTamperedTotals(t *testing.T) {
	entry := testEntry(t, "100.00")
	out, err := NewFacturaeRenderer().Render(appfiscal.InvoiceDocument{
		Entry: entry, Seller: testSeller(), Buyer: testBuyer(),
	})
	require.NoError(t, err)

	tampered := strings.Replace(string(out), "<InvoiceTotal>121.00</InvoiceTotal>", "<InvoiceTotal>999.00</InvoiceTotal>", 1)

	err = NewStructuralValidator().Validate([]byte(tampered))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.NotEmpty(t, valErr.Violations)
	assert.Contains(t, valErr.Error(), "totals do not reconcile")
}

func TestStructuralValidator_RejectsMissingSellerTaxID(t *testing.T) {
	seller := testSeller()
	seller.TaxID = ""
	entry := testEntry(t, "80.00")
	out, err := NewFacturaeRenderer().Render(appfiscal.InvoiceDocument{
		Entry: entry, Seller: seller, Buyer: testBuyer(),
	})
	require.NoError(t, err)

	err = NewStructuralValidator().Validate(out)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "seller tax identification")
}

func TestStructuralValidator_UnwrapsSignedEnvelope(t *testing.T) {
	entry := testEntry(t, "100.00")
	out, err := NewFacturaeRenderer().Render(appfiscal.InvoiceDocument{
		Entry: entry, Seller: testSeller(), Buyer: testBuyer(),
	})
	require.NoError(t, err)

	signer, err := NewSelfSignedSigner("Taller Demo")
	require.NoError(t, err)
	signed, err := signer.Sign(out)
	require.NoError(t, err)

	// validation runs against the document inside the signature envelope
	assert.NoError(t, NewStructuralValidator().Validate(signed))
}

func TestStructuralValidator_ReportsViolationsInSignedEnvelope(t *testing.T) {
	seller := testSeller()
	seller.TaxID = ""
	entry := testEntry(t, "80.00")
	out, err := NewFacturaeRenderer().Render(appfiscal.InvoiceDocument{
		Entry: entry, Seller: seller, Buyer: testBuyer(),
	})
	require.NoError(t, err)

	signer, err := NewSelfSignedSigner("Taller Demo")
	require.NoError(t, err)
	signed, err := signer.Sign(out)
	require.NoError(t, err)

	err = NewStructuralValidator().Validate(signed)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "seller tax identification")
	assert.Equal(t, valErr.Violations, valErr.List())
}

func TestStructuralValidator_RejectsMalformedXML(t *testing.T) {
	err := NewStructuralValidator().Validate([]byte("<Facturae><unclosed>"))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}
