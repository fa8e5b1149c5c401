package fiscal

import (
	"encoding/xml"
	"fmt"

	"github.com/bikeshop/backend/internal/application/fiscal"
	"github.com/bikeshop/backend/internal/domain/ledger"
)

// Facturae schema constants for the 3.2.2 layout
const (
	facturaeNamespace = "http://www.facturae.es/Facturae/2014/v3.2.1/Facturae"
	schemaVersion     = "3.2.2"

	invoiceClassOriginal      = "OO"
	invoiceClassRectificativa = "OR"
	documentTypeComplete      = "FC"
	taxTypeIVA                = "01"
	currencyEUR               = "EUR"
)

// Facturae is the root element of the exported document. Only the subset of
// the schema this system emits is modelled; element order follows the XSD.
type Facturae struct {
	XMLName    xml.Name   `xml:"fe:Facturae"`
	Namespace  string     `xml:"xmlns:fe,attr"`
	FileHeader FileHeader `xml:"FileHeader"`
	Parties    Parties    `xml:"Parties"`
	Invoices   Invoices   `xml:"Invoices"`
}

type FileHeader struct {
	SchemaVersion     string `xml:"SchemaVersion"`
	Modality          string `xml:"Modality"`
	InvoiceIssuerType string `xml:"InvoiceIssuerType"`
	Batch             Batch  `xml:"Batch"`
}

type Batch struct {
	BatchIdentifier        string      `xml:"BatchIdentifier"`
	InvoicesCount          int         `xml:"InvoicesCount"`
	TotalInvoicesAmount    TotalAmount `xml:"TotalInvoicesAmount"`
	TotalOutstandingAmount TotalAmount `xml:"TotalOutstandingAmount"`
	TotalExecutableAmount  TotalAmount `xml:"TotalExecutableAmount"`
	InvoiceCurrencyCode    string      `xml:"InvoiceCurrencyCode"`
}

type TotalAmount struct {
	TotalAmount string `xml:"TotalAmount"`
}

type Parties struct {
	SellerParty PartyElement `xml:"SellerParty"`
	BuyerParty  PartyElement `xml:"BuyerParty"`
}

type PartyElement struct {
	TaxIdentification TaxIdentification `xml:"TaxIdentification"`
	LegalEntity       LegalEntity       `xml:"LegalEntity"`
}

type TaxIdentification struct {
	PersonTypeCode          string `xml:"PersonTypeCode"`
	ResidenceTypeCode       string `xml:"ResidenceTypeCode"`
	TaxIdentificationNumber string `xml:"TaxIdentificationNumber"`
}

type LegalEntity struct {
	CorporateName  string         `xml:"CorporateName"`
	AddressInSpain AddressInSpain `xml:"AddressInSpain"`
}

type AddressInSpain struct {
	Address     string `xml:"Address"`
	PostCode    string `xml:"PostCode"`
	Town        string `xml:"Town"`
	Province    string `xml:"Province"`
	CountryCode string `xml:"CountryCode"`
}

type Invoices struct {
	Invoice []Invoice `xml:"Invoice"`
}

type Invoice struct {
	InvoiceHeader    InvoiceHeader    `xml:"InvoiceHeader"`
	InvoiceIssueData InvoiceIssueData `xml:"InvoiceIssueData"`
	TaxesOutputs     TaxesOutputs     `xml:"TaxesOutputs"`
	InvoiceTotals    InvoiceTotals    `xml:"InvoiceTotals"`
}

type InvoiceHeader struct {
	InvoiceNumber       string      `xml:"InvoiceNumber"`
	InvoiceSeriesCode   string      `xml:"InvoiceSeriesCode"`
	InvoiceDocumentType string      `xml:"InvoiceDocumentType"`
	InvoiceClass        string      `xml:"InvoiceClass"`
	Corrective          *Corrective `xml:"Corrective,omitempty"`
}

// Corrective links a rectificative invoice to the document it corrects
type Corrective struct {
	InvoiceNumber     string `xml:"InvoiceNumber"`
	InvoiceSeriesCode string `xml:"InvoiceSeriesCode"`
	ReasonCode        string `xml:"ReasonCode"`
	ReasonDescription string `xml:"ReasonDescription"`
}

type InvoiceIssueData struct {
	IssueDate           string `xml:"IssueDate"`
	InvoiceCurrencyCode string `xml:"InvoiceCurrencyCode"`
	TaxCurrencyCode     string `xml:"TaxCurrencyCode"`
	LanguageName        string `xml:"LanguageName"`
}

type TaxesOutputs struct {
	Tax []Tax `xml:"Tax"`
}

type Tax struct {
	TaxTypeCode string      `xml:"TaxTypeCode"`
	TaxRate     string      `xml:"TaxRate"`
	TaxableBase TotalAmount `xml:"TaxableBase"`
	TaxAmount   TotalAmount `xml:"TaxAmount"`
}

type InvoiceTotals struct {
	TotalGrossAmount            string `xml:"TotalGrossAmount"`
	TotalGrossAmountBeforeTaxes string `xml:"TotalGrossAmountBeforeTaxes"`
	TotalTaxOutputs             string `xml:"TotalTaxOutputs"`
	TotalTaxesWithheld          string `xml:"TotalTaxesWithheld"`
	InvoiceTotal                string `xml:"InvoiceTotal"`
	TotalOutstandingAmount      string `xml:"TotalOutstandingAmount"`
	TotalExecutableAmount       string `xml:"TotalExecutableAmount"`
}

// FacturaeRenderer renders ledger entries as Facturae 3.2.2 documents.
// Output is deterministic: the same entry always marshals to the same bytes.
type FacturaeRenderer struct{}

// NewFacturaeRenderer creates a new FacturaeRenderer
func NewFacturaeRenderer() *FacturaeRenderer {
	return &FacturaeRenderer{}
}

// Render implements fiscal.Renderer
func (r *FacturaeRenderer) Render(doc fiscal.InvoiceDocument) ([]byte, error) {
	entry := doc.Entry
	if entry == nil {
		return nil, fmt.Errorf("render facturae: nil ledger entry")
	}

	total := entry.TotalAmount.StringFixed(2)

	invoice := Invoice{
		InvoiceHeader: InvoiceHeader{
			InvoiceNumber:       fmt.Sprintf("%06d", entry.SequenceNumber),
			InvoiceSeriesCode:   entry.Series,
			InvoiceDocumentType: documentTypeComplete,
			InvoiceClass:        invoiceClassOriginal,
		},
		InvoiceIssueData: InvoiceIssueData{
			IssueDate:           entry.IssueDate.UTC().Format("2006-01-02"),
			InvoiceCurrencyCode: currencyEUR,
			TaxCurrencyCode:     currencyEUR,
			LanguageName:        "es",
		},
		TaxesOutputs: TaxesOutputs{
			Tax: []Tax{{
				TaxTypeCode: taxTypeIVA,
				TaxRate:     entry.TaxRate.StringFixed(2),
				TaxableBase: TotalAmount{entry.TaxBase.StringFixed(2)},
				TaxAmount:   TotalAmount{entry.TaxAmount.StringFixed(2)},
			}},
		},
		InvoiceTotals: InvoiceTotals{
			TotalGrossAmount:            entry.TaxBase.StringFixed(2),
			TotalGrossAmountBeforeTaxes: entry.TaxBase.StringFixed(2),
			TotalTaxOutputs:             entry.TaxAmount.StringFixed(2),
			TotalTaxesWithheld:          "0.00",
			InvoiceTotal:                total,
			TotalOutstandingAmount:      total,
			TotalExecutableAmount:       total,
		},
	}

	if entry.IsCreditNote() {
		if doc.Rectifies == nil {
			return nil, fmt.Errorf("render facturae: credit note %s without rectified entry", entry.InvoiceNumber())
		}
		invoice.InvoiceHeader.InvoiceClass = invoiceClassRectificativa
		invoice.InvoiceHeader.Corrective = correctiveOf(entry, doc.Rectifies)
	}

	root := Facturae{
		Namespace: facturaeNamespace,
		FileHeader: FileHeader{
			SchemaVersion:     schemaVersion,
			Modality:          "I",
			InvoiceIssuerType: "EM",
			Batch: Batch{
				BatchIdentifier:        entry.InvoiceNumber(),
				InvoicesCount:          1,
				TotalInvoicesAmount:    TotalAmount{total},
				TotalOutstandingAmount: TotalAmount{total},
				TotalExecutableAmount:  TotalAmount{total},
				InvoiceCurrencyCode:    currencyEUR,
			},
		},
		Parties: Parties{
			SellerParty: partyElement(doc.Seller),
			BuyerParty:  partyElement(doc.Buyer),
		},
		Invoices: Invoices{Invoice: []Invoice{invoice}},
	}

	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal facturae: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// correctiveOf fills the Corrective block pointing at the original invoice.
// ReasonCode 01 is the generic correction reason of the schema.
func correctiveOf(note, original *ledger.InvoiceLedgerEntry) *Corrective {
	return &Corrective{
		InvoiceNumber:     fmt.Sprintf("%06d", original.SequenceNumber),
		InvoiceSeriesCode: original.Series,
		ReasonCode:        "01",
		ReasonDescription: note.RectifyReason,
	}
}

func partyElement(p fiscal.Party) PartyElement {
	country := p.CountryCode
	if country == "" {
		country = "ESP"
	}
	return PartyElement{
		TaxIdentification: TaxIdentification{
			PersonTypeCode:          "J",
			ResidenceTypeCode:       "R",
			TaxIdentificationNumber: p.TaxID,
		},
		LegalEntity: LegalEntity{
			CorporateName: p.Name,
			AddressInSpain: AddressInSpain{
				Address:     p.Address,
				PostCode:    p.PostCode,
				Town:        p.Town,
				Province:    p.Province,
				CountryCode: country,
			},
		},
	}
}
