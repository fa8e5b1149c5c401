package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Party identifies one side of an invoice in the Facturae document
type Party struct {
	TaxID       string
	Name        string
	Address     string
	PostCode    string
	Town        string
	Province    string
	CountryCode string
}

// InvoiceDocument bundles everything the renderer needs for one invoice.
// Rectifies is set only for credit notes and points at the corrected invoice.
type InvoiceDocument struct {
	Entry     *ledger.InvoiceLedgerEntry
	Rectifies *ledger.InvoiceLedgerEntry
	Seller    Party
	Buyer     Party
}

// Renderer produces the Facturae XML for an invoice. Rendering is
// deterministic: the same entry always yields byte-identical XML.
type Renderer interface {
	Render(doc InvoiceDocument) ([]byte, error)
}

// Signer wraps the rendered XML in a detached electronic signature. Demo
// reports whether the signing certificate is a generated self-signed one, so
// the result can be flagged as not legally valid.
type Signer interface {
	Sign(xml []byte) ([]byte, error)
	Demo() bool
}

// SignerFactory builds a signer from an uploaded PKCS#12 certificate bundle.
// A nil factory disables per-request certificates.
type SignerFactory func(certificate []byte, password string) (Signer, error)

// Validator checks a document against the structural rules of the Facturae
// layout: mandatory nodes present, totals reconciling with the lines. It
// accepts both plain renders and signed envelopes.
type Validator interface {
	Validate(xml []byte) error
}

// ArtifactStore persists generated fiscal documents outside the database
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// BuyerResolver maps a customer id to the fiscal party data printed on the
// invoice
type BuyerResolver interface {
	Resolve(ctx context.Context, customerID uuid.UUID) (Party, error)
}

// ExportService runs the generate, sign, validate pipeline for committed
// ledger entries. The pipeline only reads the chain; exporting or signing an
// invoice never mutates any hashed field, so every step is safe to repeat.
type ExportService struct {
	repo      ledger.InvoiceLedgerRepository
	renderer  Renderer
	signer    Signer
	signers   SignerFactory
	validator Validator
	store     ArtifactStore
	buyers    BuyerResolver
	seller    Party
	logger    *zap.Logger
}

// NewExportService creates a new ExportService. seller is the shop's own
// fiscal identity, taken from configuration; signers may be nil when uploaded
// certificates are not supported.
func NewExportService(
	repo ledger.InvoiceLedgerRepository,
	renderer Renderer,
	signer Signer,
	signers SignerFactory,
	validator Validator,
	store ArtifactStore,
	buyers BuyerResolver,
	seller Party,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		repo:      repo,
		renderer:  renderer,
		signer:    signer,
		signers:   signers,
		validator: validator,
		store:     store,
		buyers:    buyers,
		seller:    seller,
		logger:    logger,
	}
}

// DocumentInvalidError wraps a validation failure of a rendered document so
// callers can tell a bad document from an infrastructure failure
type DocumentInvalidError struct {
	Err error
}

// Error implements the error interface
func (e *DocumentInvalidError) Error() string {
	return fmt.Sprintf("facturae document invalid: %v", e.Err)
}

// Unwrap exposes the underlying validation error
func (e *DocumentInvalidError) Unwrap() error {
	return e.Err
}

// ValidationReport is the schema validation outcome attached to a signing
// result. Errors is empty when IsValid is true.
type ValidationReport struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// schemaViolations is implemented by validator errors that carry the
// individual rule violations
type schemaViolations interface {
	List() []string
}

func newValidationReport(err error) ValidationReport {
	if err == nil {
		return ValidationReport{IsValid: true}
	}
	var sv schemaViolations
	if errors.As(err, &sv) {
		return ValidationReport{Errors: sv.List()}
	}
	return ValidationReport{Errors: []string{err.Error()}}
}

// SignOptions carries an optional per-request PKCS#12 certificate. When
// Certificate is empty the service signs with its configured signer.
type SignOptions struct {
	Certificate []byte
	Password    string
}

// ExportResult carries a generated artifact and the key it was stored under.
// DemoSignature is true when the document was signed with a self-signed
// certificate and therefore has no legal standing.
type ExportResult struct {
	InvoiceNumber string           `json:"invoice_number"`
	Key           string           `json:"key"`
	ContentType   string           `json:"content_type"`
	DemoSignature bool             `json:"demo_signature"`
	SignedAt      *time.Time       `json:"signed_at,omitempty"`
	Validation    ValidationReport `json:"validation"`
	Content       []byte           `json:"-"`
}

// Export renders the Facturae XML for an invoice, validates it and stores it.
// Idempotent: re-exporting overwrites the artifact with identical bytes.
func (s *ExportService) Export(ctx context.Context, invoiceID uuid.UUID) (*ExportResult, error) {
	doc, err := s.loadDocument(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	xml, err := s.renderer.Render(*doc)
	if err != nil {
		return nil, fmt.Errorf("render facturae: %w", err)
	}
	if err := s.validator.Validate(xml); err != nil {
		return nil, &DocumentInvalidError{Err: err}
	}

	key := artifactKey(doc.Entry, "xml")
	if err := s.store.Put(ctx, key, "application/xml", xml); err != nil {
		return nil, externalFailure("store artifact "+key, err)
	}

	doc.Entry.RecordExport(string(xml))
	if err := s.repo.SaveExportState(ctx, doc.Entry); err != nil {
		return nil, fmt.Errorf("save export state: %w", err)
	}

	s.logger.Info("invoice exported",
		zap.String("invoice_number", doc.Entry.InvoiceNumber()),
		zap.String("key", key))

	return &ExportResult{
		InvoiceNumber: doc.Entry.InvoiceNumber(),
		Key:           key,
		ContentType:   "application/xml",
		Validation:    ValidationReport{IsValid: true},
		Content:       xml,
	}, nil
}

// Sign renders and signs the invoice, validates the signed document and
// stores it alongside the plain export. A failing validation is reported in
// the result but the signed artifact is kept; it is evidence of a signing
// problem, not something to discard silently. Re-signing replaces the
// artifact.
func (s *ExportService) Sign(ctx context.Context, invoiceID uuid.UUID, opts SignOptions) (*ExportResult, error) {
	doc, err := s.loadDocument(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	xml, err := s.renderer.Render(*doc)
	if err != nil {
		return nil, fmt.Errorf("render facturae: %w", err)
	}

	signer, err := s.resolveSigner(opts)
	if err != nil {
		return nil, err
	}

	signed, err := signer.Sign(xml)
	if err != nil {
		return nil, externalFailure("sign facturae", err)
	}

	report := newValidationReport(s.validator.Validate(signed))

	key := artifactKey(doc.Entry, "xsig")
	if err := s.store.Put(ctx, key, "application/xml", signed); err != nil {
		return nil, externalFailure("store artifact "+key, err)
	}

	signedAt := time.Now().UTC()
	doc.Entry.RecordExport(string(xml))
	doc.Entry.RecordSignature(string(signed), report.IsValid, report.Errors, signedAt)
	if err := s.repo.SaveExportState(ctx, doc.Entry); err != nil {
		return nil, fmt.Errorf("save export state: %w", err)
	}

	s.logger.Info("invoice signed",
		zap.String("invoice_number", doc.Entry.InvoiceNumber()),
		zap.String("key", key),
		zap.Bool("schema_valid", report.IsValid))

	return &ExportResult{
		InvoiceNumber: doc.Entry.InvoiceNumber(),
		Key:           key,
		ContentType:   "application/xml",
		DemoSignature: signer.Demo(),
		SignedAt:      &signedAt,
		Validation:    report,
		Content:       signed,
	}, nil
}

// resolveSigner picks the configured signer or builds one from an uploaded
// certificate
func (s *ExportService) resolveSigner(opts SignOptions) (Signer, error) {
	if len(opts.Certificate) == 0 {
		return s.signer, nil
	}
	if s.signers == nil {
		return nil, shared.NewDomainError("CERTIFICATE_UNSUPPORTED",
			"Signing with an uploaded certificate is not enabled")
	}
	signer, err := s.signers(opts.Certificate, opts.Password)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CERTIFICATE",
			fmt.Sprintf("Cannot load signing certificate: %v", err))
	}
	return signer, nil
}

func (s *ExportService) loadDocument(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDocument, error) {
	entry, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.ErrNotFound
	}

	buyer, err := s.buyers.Resolve(ctx, entry.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("resolve buyer %s: %w", entry.CustomerID, err)
	}

	doc := &InvoiceDocument{Entry: entry, Seller: s.seller, Buyer: buyer}

	if entry.RectifiesEntryID != nil {
		rectified, err := s.repo.FindByID(ctx, *entry.RectifiesEntryID)
		if err != nil {
			return nil, fmt.Errorf("load rectified entry %s: %w", entry.RectifiesEntryID, err)
		}
		doc.Rectifies = rectified
	}

	return doc, nil
}

// externalFailure classifies a downstream signing or storage error as
// retryable
func externalFailure(op string, err error) error {
	return shared.NewDomainErrorWithCategory("EXTERNAL_SERVICE_FAILURE",
		fmt.Sprintf("%s: %v", op, err), shared.CategoryExternal)
}

// artifactKey lays artifacts out by series and year so a whole fiscal year can
// be archived in one prefix, e.g. facturae/001/2026/000042.xml
func artifactKey(entry *ledger.InvoiceLedgerEntry, ext string) string {
	return fmt.Sprintf("facturae/%s/%d/%06d.%s", entry.Series, entry.FiscalYear, entry.SequenceNumber, ext)
}
