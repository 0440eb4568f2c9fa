package signing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/internal/domain"
	"github.com/jhoicas/myinvois-signer/internal/domain/document"
	"github.com/jhoicas/myinvois-signer/internal/domain/entity"
	"github.com/jhoicas/myinvois-signer/internal/domain/repository"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	catalog "github.com/jhoicas/myinvois-signer/pkg/myinvois"
)

// SignDocumentUseCase firma documentos y deja registro de cada firma.
type SignDocumentUseCase struct {
	signer Signer
	repo   repository.SignedDocumentRepository
	tx     TxRunner
}

// NewSignDocumentUseCase construye el caso de uso.
func NewSignDocumentUseCase(s Signer, repo repository.SignedDocumentRepository, tx TxRunner) *SignDocumentUseCase {
	return &SignDocumentUseCase{signer: s, repo: repo, tx: tx}
}

// SignInvoice valida, firma y persiste un documento estructurado.
func (uc *SignDocumentUseCase) SignInvoice(ctx context.Context, companyID string, in dto.SignInvoiceRequest) (*dto.SignedDocumentResponse, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	if err := validateInvoice(in); err != nil {
		return nil, err
	}
	inv := toInvoice(in)
	signed, err := uc.signer.Sign(inv)
	if err != nil {
		return nil, err
	}
	content, err := signed.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("signing: serializar documento firmado: %w", err)
	}
	rec := newRecord(companyID, inv.ID, inv.TypeCode, entity.FormatJSON, signed.Envelope, content)
	rec.PayableAmount = decimal.NewNullDecimal(inv.Totals.Payable)
	rec.Currency = inv.Currency
	return uc.save(ctx, rec)
}

// SignRaw firma un documento JSON-UBL ya armado por el cliente.
func (uc *SignDocumentUseCase) SignRaw(ctx context.Context, companyID string, body []byte) (*dto.SignedDocumentResponse, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	raw, err := parseRaw(body)
	if err != nil {
		return nil, err
	}
	signed, err := uc.signer.Sign(raw)
	if err != nil {
		return nil, err
	}
	rec, err := rawRecord(companyID, raw, signed)
	if err != nil {
		return nil, err
	}
	return uc.save(ctx, rec)
}

// SignRawBatch firma un arreglo de documentos JSON-UBL y los registra en una sola transacción.
// Si un documento falla no se registra ninguno.
func (uc *SignDocumentUseCase) SignRawBatch(ctx context.Context, companyID string, body []byte) (*dto.BatchSignResponse, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: se esperaba un arreglo de documentos: %v", domain.ErrInvalidInput, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: el lote está vacío", domain.ErrInvalidInput)
	}
	if len(items) > catalog.MaxDocumentsPerSubmission {
		return nil, fmt.Errorf("%w: máximo %d documentos por lote, llegaron %d",
			domain.ErrInvalidInput, catalog.MaxDocumentsPerSubmission, len(items))
	}

	raws := make([]*document.Raw, len(items))
	docs := make([]document.Document, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		raw, err := parseRaw(item)
		if err != nil {
			return nil, fmt.Errorf("documento %d: %w", i, err)
		}
		if j, dup := seen[raw.Identifier()]; dup {
			return nil, fmt.Errorf("%w: documento %d repite el número %q del documento %d",
				domain.ErrInvalidInput, i, raw.Identifier(), j)
		}
		seen[raw.Identifier()] = i
		raws[i], docs[i] = raw, raw
	}

	signed, err := uc.signer.SignBatch(ctx, docs)
	if err != nil {
		return nil, err
	}
	recs := make([]*entity.SignedDocument, len(signed))
	for i, s := range signed {
		if recs[i], err = rawRecord(companyID, raws[i], s); err != nil {
			return nil, err
		}
	}

	err = uc.tx.Run(ctx, func(repo repository.SignedDocumentRepository) error {
		for _, rec := range recs {
			if err := repo.Create(ctx, rec); err != nil {
				return fmt.Errorf("signing: registrar documento %s: %w", rec.CodeNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &dto.BatchSignResponse{Documents: make([]dto.SignedDocumentResponse, len(recs))}
	subs := make([]myinvois.DocumentSubmission, len(recs))
	for i, rec := range recs {
		out.Documents[i] = *toResponse(rec)
		subs[i] = out.Documents[i].Submission
	}
	out.Submission = myinvois.NewSubmissionRequest(subs...)
	return out, nil
}

// SignXML firma un documento UBL en XML. codeNumber identifica el documento en el envío.
func (uc *SignDocumentUseCase) SignXML(ctx context.Context, companyID, codeNumber string, body []byte) (*dto.SignedDocumentResponse, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	codeNumber = strings.TrimSpace(codeNumber)
	if codeNumber == "" {
		return nil, fmt.Errorf("%w: falta el número del documento", domain.ErrInvalidInput)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: documento XML vacío", domain.ErrInvalidInput)
	}
	signedXML, env, err := uc.signer.SignXML(body)
	if err != nil {
		if errors.Is(err, signer.ErrParse) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return nil, err
	}
	return uc.save(ctx, newRecord(companyID, codeNumber, "", entity.FormatXML, *env, signedXML))
}

// Get devuelve un documento firmado de la empresa.
func (uc *SignDocumentUseCase) Get(ctx context.Context, companyID, id string) (*dto.SignedDocumentResponse, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}
	d, err := uc.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(d), nil
}

func (uc *SignDocumentUseCase) save(ctx context.Context, rec *entity.SignedDocument) (*dto.SignedDocumentResponse, error) {
	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("signing: registrar documento %s: %w", rec.CodeNumber, err)
	}
	return toResponse(rec), nil
}

// requireCompany todo registro pertenece a una empresa del token.
func requireCompany(companyID string) error {
	if strings.TrimSpace(companyID) == "" {
		return fmt.Errorf("%w: falta la empresa", domain.ErrUnauthorized)
	}
	return nil
}

func parseRaw(body []byte) (*document.Raw, error) {
	raw, err := document.ParseRaw(body)
	if err != nil {
		return nil, err
	}
	if raw.Identifier() == "" {
		return nil, fmt.Errorf("%w: el documento requiere ID", domain.ErrInvalidInput)
	}
	code := raw.TypeCode()
	if code != "" && !catalog.IsValidDocumentType(code) {
		return nil, fmt.Errorf("%w: tipo de documento desconocido %q", domain.ErrInvalidInput, code)
	}
	if catalog.RequiresBillingReference(code) && !raw.HasBillingReference() {
		return nil, fmt.Errorf("%w: %s requiere BillingReference", domain.ErrInvalidInput, catalog.Description(code))
	}
	return raw, nil
}

func rawRecord(companyID string, raw *document.Raw, signed *signer.SignedDocument) (*entity.SignedDocument, error) {
	content, err := signed.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("signing: serializar documento firmado: %w", err)
	}
	return newRecord(companyID, raw.Identifier(), raw.TypeCode(), entity.FormatJSON, signed.Envelope, content), nil
}

func validateInvoice(in dto.SignInvoiceRequest) error {
	var missing []string
	if strings.TrimSpace(in.ID) == "" {
		missing = append(missing, "id")
	}
	if in.IssuedAt.IsZero() {
		missing = append(missing, "issued_at")
	}
	if len(in.Currency) != 3 {
		missing = append(missing, "currency")
	}
	for role, p := range map[string]dto.PartyRequest{"supplier": in.Supplier, "customer": in.Customer} {
		if p.Name == "" || p.TIN == "" || p.RegistrationID == "" || p.RegistrationType == "" {
			missing = append(missing, role)
		}
	}
	if len(in.Lines) == 0 {
		missing = append(missing, "lines")
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: campos obligatorios: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if !catalog.IsValidDocumentType(in.TypeCode) {
		return fmt.Errorf("%w: tipo de documento desconocido %q", domain.ErrInvalidInput, in.TypeCode)
	}
	if catalog.RequiresBillingReference(in.TypeCode) && (in.Billing == nil || strings.TrimSpace(in.Billing.ID) == "") {
		return fmt.Errorf("%w: %s requiere billing_reference", domain.ErrInvalidInput, catalog.Description(in.TypeCode))
	}
	return nil
}

// CertificateUseCase expone la vigencia de la cadena cargada.
type CertificateUseCase struct {
	signer Signer
	now    func() time.Time
}

// NewCertificateUseCase construye el caso de uso.
func NewCertificateUseCase(s Signer) *CertificateUseCase {
	return &CertificateUseCase{signer: s, now: time.Now}
}

// Details resumen de firmante, intermedio y raíz.
func (uc *CertificateUseCase) Details(ctx context.Context) (*dto.CertificateDetailsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := uc.signer.CertificateDetails(uc.now())
	if err != nil {
		return nil, err
	}
	out := &dto.CertificateDetailsResponse{
		Length:  d.Length,
		Signing: toCertificateInfo(d.Signing),
		Root:    toCertificateInfo(d.Root),
	}
	if d.Intermediate != nil {
		info := toCertificateInfo(*d.Intermediate)
		out.Intermediate = &info
	}
	return out, nil
}
