package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/myinvois-signer/internal/domain"
	"github.com/jhoicas/myinvois-signer/internal/domain/entity"
	"github.com/jhoicas/myinvois-signer/internal/domain/repository"
)

var _ repository.SignedDocumentRepository = (*SignedDocumentRepo)(nil)

const signedDocumentsSchema = `
CREATE TABLE IF NOT EXISTS signed_documents (
	id                       UUID PRIMARY KEY,
	company_id               TEXT NOT NULL,
	code_number              TEXT NOT NULL,
	document_type            TEXT,
	format                   TEXT NOT NULL,
	document_digest          TEXT NOT NULL,
	signed_properties_digest TEXT NOT NULL,
	signing_time             TIMESTAMPTZ NOT NULL,
	certificate_serial       TEXT NOT NULL,
	payable_amount           NUMERIC(20, 2),
	currency                 TEXT,
	content                  TEXT NOT NULL,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_signed_documents_company_code
	ON signed_documents (company_id, code_number);`

// SignedDocumentRepo implementación de SignedDocumentRepository (usable con pool o tx).
type SignedDocumentRepo struct {
	q Querier
}

// NewSignedDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSignedDocumentRepository(q Querier) *SignedDocumentRepo {
	return &SignedDocumentRepo{q: q}
}

// EnsureSchema crea la tabla e índices si no existen.
func (r *SignedDocumentRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, signedDocumentsSchema); err != nil {
		return fmt.Errorf("postgres: crear esquema signed_documents: %w", err)
	}
	return nil
}

// Create persiste el documento firmado. Asigna ID y CreatedAt si vienen vacíos.
func (r *SignedDocumentRepo) Create(ctx context.Context, doc *entity.SignedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO signed_documents (id, company_id, code_number, document_type, format,
			document_digest, signed_properties_digest, signing_time, certificate_serial,
			payable_amount, currency, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.CodeNumber, nullIfEmpty(doc.DocumentType), doc.Format,
		doc.DocumentDigest, doc.SignedPropertiesDigest, doc.SigningTime, doc.CertificateSerial,
		doc.PayableAmount, nullIfEmpty(doc.Currency), doc.Content, doc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: documento firmado %s: %w", doc.ID, domain.ErrDuplicate)
		}
		return fmt.Errorf("postgres: insertar documento firmado: %w", err)
	}
	return nil
}

// GetByID obtiene un documento firmado de la empresa. nil, nil si no existe.
func (r *SignedDocumentRepo) GetByID(ctx context.Context, companyID, id string) (*entity.SignedDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `
		SELECT id::text, company_id, code_number, document_type, format,
		       document_digest, signed_properties_digest, signing_time, certificate_serial,
		       payable_amount, currency, content, created_at
		FROM signed_documents WHERE id = $1 AND company_id = $2`
	var d entity.SignedDocument
	var docType, currency *string
	err := r.q.QueryRow(ctx, query, id, companyID).Scan(
		&d.ID, &d.CompanyID, &d.CodeNumber, &docType, &d.Format,
		&d.DocumentDigest, &d.SignedPropertiesDigest, &d.SigningTime, &d.CertificateSerial,
		&d.PayableAmount, &currency, &d.Content, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: obtener documento firmado: %w", err)
	}
	d.DocumentType = derefStr(docType)
	d.Currency = derefStr(currency)
	return &d, nil
}
