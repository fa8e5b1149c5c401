package fiscal

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports every structural rule a document violates
type ValidationError struct {
	Violations []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msg := "facturae validation failed:"
	for _, v := range e.Violations {
		msg += "\n  - " + v
	}
	return msg
}

// List returns the individual violations
func (e *ValidationError) List() []string {
	return e.Violations
}

// StructuralValidator checks rendered documents against the structural rules
// of the Facturae layout: mandatory identification present, amounts parseable
// and the totals reconciling with the tax breakdown. It is not a full XSD
// validation; it catches the failures a broken renderer or tampered artifact
// would produce.
type StructuralValidator struct{}

// NewStructuralValidator creates a new StructuralValidator
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{}
}

// facturaeDoc mirrors the Facturae layout without the prefixed root element,
// so it unmarshals regardless of the namespace prefix used on the wire
type facturaeDoc struct {
	FileHeader FileHeader `xml:"FileHeader"`
	Parties    Parties    `xml:"Parties"`
	Invoices   Invoices   `xml:"Invoices"`
}

// Validate implements fiscal.Validator. Signed envelopes are unwrapped first,
// so the rules run against the Facturae document whether or not it has been
// signed yet.
func (v *StructuralValidator) Validate(data []byte) error {
	payload := data
	var envelope SignedDocument
	if err := xml.Unmarshal(data, &envelope); err == nil && envelope.Document != "" {
		inner, err := base64.StdEncoding.DecodeString(envelope.Document)
		if err != nil {
			return &ValidationError{Violations: []string{"signed envelope carries undecodable document: " + err.Error()}}
		}
		payload = inner
	}

	var doc facturaeDoc
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return &ValidationError{Violations: []string{"document is not well-formed XML: " + err.Error()}}
	}

	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if doc.FileHeader.SchemaVersion != schemaVersion {
		add("unsupported schema version %q", doc.FileHeader.SchemaVersion)
	}
	if doc.Parties.SellerParty.TaxIdentification.TaxIdentificationNumber == "" {
		add("seller tax identification number is missing")
	}
	if doc.Parties.BuyerParty.TaxIdentification.TaxIdentificationNumber == "" {
		add("buyer tax identification number is missing")
	}
	if len(doc.Invoices.Invoice) == 0 {
		add("document contains no invoices")
		return &ValidationError{Violations: violations}
	}

	for i, inv := range doc.Invoices.Invoice {
		v.validateInvoice(i, inv, add)
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (v *StructuralValidator) validateInvoice(i int, inv Invoice, add func(string, ...any)) {
	if inv.InvoiceHeader.InvoiceNumber == "" {
		add("invoice %d: number is missing", i)
	}
	if inv.InvoiceHeader.InvoiceSeriesCode == "" {
		add("invoice %d: series code is missing", i)
	}
	if inv.InvoiceIssueData.IssueDate == "" {
		add("invoice %d: issue date is missing", i)
	}
	if inv.InvoiceHeader.InvoiceClass == invoiceClassRectificativa && inv.InvoiceHeader.Corrective == nil {
		add("invoice %d: rectificative invoice without corrective block", i)
	}

	base, err := parseAmount(inv.InvoiceTotals.TotalGrossAmountBeforeTaxes)
	if err != nil {
		add("invoice %d: gross amount before taxes: %v", i, err)
		return
	}
	taxes, err := parseAmount(inv.InvoiceTotals.TotalTaxOutputs)
	if err != nil {
		add("invoice %d: total tax outputs: %v", i, err)
		return
	}
	total, err := parseAmount(inv.InvoiceTotals.InvoiceTotal)
	if err != nil {
		add("invoice %d: invoice total: %v", i, err)
		return
	}

	if !base.Add(taxes).Equal(total) {
		add("invoice %d: totals do not reconcile: %s + %s != %s",
			i, base.StringFixed(2), taxes.StringFixed(2), total.StringFixed(2))
	}

	var taxSum decimal.Decimal
	for j, tax := range inv.TaxesOutputs.Tax {
		amount, err := parseAmount(tax.TaxAmount.TotalAmount)
		if err != nil {
			add("invoice %d: tax %d amount: %v", i, j, err)
			return
		}
		taxSum = taxSum.Add(amount)
	}
	if !taxSum.Equal(taxes) {
		add("invoice %d: tax breakdown %s does not match total tax outputs %s",
			i, taxSum.StringFixed(2), taxes.StringFixed(2))
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is missing")
	}
	return decimal.NewFromString(s)
}
