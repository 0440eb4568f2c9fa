package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois"
)

// SignInvoiceRequest body para POST /api/documents/sign.
// Los totales e impuestos los calcula el emisor; aquí sólo se firman.
type SignInvoiceRequest struct {
	ID          string                     `json:"id"`
	IssuedAt    time.Time                  `json:"issued_at"`
	TypeCode    string                     `json:"type_code"` // 01..08
	Currency    string                     `json:"currency"`
	TaxCurrency string                     `json:"tax_currency,omitempty"`
	Period      *InvoicePeriodRequest      `json:"period,omitempty"`
	References  []DocumentReferenceRequest `json:"references,omitempty"`
	Billing     *BillingReferenceRequest   `json:"billing_reference,omitempty"` // obligatorio en notas
	Supplier    PartyRequest               `json:"supplier"`
	Customer    PartyRequest               `json:"customer"`
	TaxTotal    TaxTotalRequest            `json:"tax_total"`
	Totals      MonetaryTotalRequest       `json:"totals"`
	Lines       []InvoiceLineRequest       `json:"lines"`
}

// PartyRequest emisor o receptor.
type PartyRequest struct {
	Name             string         `json:"name"`
	TIN              string         `json:"tin"`
	RegistrationID   string         `json:"registration_id"`
	RegistrationType string         `json:"registration_type"` // BRN, NRIC, PASSPORT, ARMY
	SSTNumber        string         `json:"sst_number,omitempty"`
	MSICCode         string         `json:"msic_code,omitempty"`
	MSICDescription  string         `json:"msic_description,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	Email            string         `json:"email,omitempty"`
	Address          AddressRequest `json:"address"`
}

// AddressRequest dirección postal.
type AddressRequest struct {
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
}

// InvoicePeriodRequest período de facturación.
type InvoicePeriodRequest struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// DocumentReferenceRequest referencia adicional.
type DocumentReferenceRequest struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// BillingReferenceRequest documento original de una nota de crédito, débito o reembolso.
type BillingReferenceRequest struct {
	ID   string `json:"id"`
	UUID string `json:"uuid,omitempty"`
}

// TaxSubtotalRequest desglose de impuesto.
type TaxSubtotalRequest struct {
	TaxableAmount   decimal.Decimal `json:"taxable_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	Percent         decimal.Decimal `json:"percent"`
	TaxType         string          `json:"tax_type"`
	ExemptionReason string          `json:"exemption_reason,omitempty"`
}

// TaxTotalRequest total de impuestos.
type TaxTotalRequest struct {
	TaxAmount decimal.Decimal      `json:"tax_amount"`
	Subtotals []TaxSubtotalRequest `json:"subtotals"`
}

// MonetaryTotalRequest totales legales.
type MonetaryTotalRequest struct {
	LineExtension   decimal.Decimal `json:"line_extension"`
	TaxExclusive    decimal.Decimal `json:"tax_exclusive"`
	TaxInclusive    decimal.Decimal `json:"tax_inclusive"`
	AllowanceTotal  decimal.Decimal `json:"allowance_total"`
	ChargeTotal     decimal.Decimal `json:"charge_total"`
	PayableRounding decimal.Decimal `json:"payable_rounding"`
	Payable         decimal.Decimal `json:"payable"`
}

// InvoiceLineRequest línea del documento.
type InvoiceLineRequest struct {
	Quantity             decimal.Decimal    `json:"quantity"`
	UnitCode             string             `json:"unit_code"`
	UnitPrice            decimal.Decimal    `json:"unit_price"`
	LineExtension        decimal.Decimal    `json:"line_extension"`
	DiscountRate         decimal.Decimal    `json:"discount_rate"`
	DiscountAmount       decimal.Decimal    `json:"discount_amount"`
	Tax                  TaxSubtotalRequest `json:"tax"`
	Description          string             `json:"description"`
	ClassificationCode   string             `json:"classification_code"`
	ClassificationScheme string             `json:"classification_scheme,omitempty"`
	OriginCountry        string             `json:"origin_country,omitempty"`
}

// SignedDocumentResponse documento firmado y su payload de envío.
type SignedDocumentResponse struct {
	ID                     string                      `json:"id"`
	CodeNumber             string                      `json:"code_number"`
	DocumentType           string                      `json:"document_type,omitempty"`
	DocumentTypeName       string                      `json:"document_type_name,omitempty"`
	SelfBilled             bool                        `json:"self_billed"`
	Format                 string                      `json:"format"`
	DocumentDigest         string                      `json:"document_digest"`
	SignedPropertiesDigest string                      `json:"signed_properties_digest"`
	SigningTime            string                      `json:"signing_time"`
	CertificateSerial      string                      `json:"certificate_serial"`
	PayableAmount          *decimal.Decimal            `json:"payable_amount,omitempty"`
	Currency               string                      `json:"currency,omitempty"`
	Document               json.RawMessage             `json:"document,omitempty"` // formato JSON
	XML                    string                      `json:"xml,omitempty"`      // formato XML
	Submission             myinvois.DocumentSubmission `json:"submission"`
	CreatedAt              string                      `json:"created_at"`
}

// BatchSignResponse documentos firmados en lote y el cuerpo de envío que los agrupa.
type BatchSignResponse struct {
	Documents  []SignedDocumentResponse   `json:"documents"`
	Submission myinvois.SubmissionRequest `json:"submission"`
}

// CertificateInfoResponse vigencia de un certificado de la cadena.
type CertificateInfoResponse struct {
	Subject         string `json:"subject"`
	Issuer          string `json:"issuer"`
	SerialNumber    string `json:"serial_number"`
	ValidFrom       string `json:"valid_from"`
	ValidTo         string `json:"valid_to"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Valid           bool   `json:"valid"`
}

// CertificateDetailsResponse cuerpo de GET /api/certificates.
type CertificateDetailsResponse struct {
	Length       int                      `json:"length"`
	Signing      CertificateInfoResponse  `json:"signing"`
	Intermediate *CertificateInfoResponse `json:"intermediate,omitempty"`
	Root         CertificateInfoResponse  `json:"root"`
}
