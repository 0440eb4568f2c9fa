// Package myinvois arma el payload de envío a documentsubmissions. El cliente HTTP
// (token OAuth2, reintentos) vive fuera de este módulo detrás de Submitter.
package myinvois

import (
	"context"
	"encoding/base64"

	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
)

// DocumentSubmission un documento firmado tal como lo espera la API.
type DocumentSubmission struct {
	Format       string `json:"format"`
	Document     string `json:"document"`     // base64 del documento firmado
	DocumentHash string `json:"documentHash"` // SHA-256 hex del documento firmado
	CodeNumber   string `json:"codeNumber"`
}

// SubmissionRequest cuerpo de POST /api/v1.0/documentsubmissions/.
type SubmissionRequest struct {
	Documents []DocumentSubmission `json:"documents"`
}

// AcceptedDocument documento aceptado para validación.
type AcceptedDocument struct {
	UUID              string `json:"uuid"`
	InvoiceCodeNumber string `json:"invoiceCodeNumber"`
}

// RejectedDocument documento rechazado con su error.
type RejectedDocument struct {
	InvoiceCodeNumber string          `json:"invoiceCodeNumber"`
	Error             SubmissionError `json:"error"`
}

// SubmissionError detalle de rechazo devuelto por la API.
type SubmissionError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Target  string            `json:"target,omitempty"`
	Details []SubmissionError `json:"details,omitempty"`
}

// SubmissionResult respuesta de la API al envío.
type SubmissionResult struct {
	SubmissionUID     string             `json:"submissionUid"`
	AcceptedDocuments []AcceptedDocument `json:"acceptedDocuments"`
	RejectedDocuments []RejectedDocument `json:"rejectedDocuments"`
}

// Submitter envía documentos firmados a MyInvois.
type Submitter interface {
	Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)
}

// BuildSubmission arma la entrada de un documento firmado ya serializado (JSON o XML).
func BuildSubmission(signed []byte, codeNumber, format string) DocumentSubmission {
	return DocumentSubmission{
		Format:       format,
		Document:     base64.StdEncoding.EncodeToString(signed),
		DocumentHash: signer.HexDigest(signed),
		CodeNumber:   codeNumber,
	}
}

// NewSubmissionRequest agrupa documentos en un único envío.
func NewSubmissionRequest(docs ...DocumentSubmission) SubmissionRequest {
	return SubmissionRequest{Documents: docs}
}
