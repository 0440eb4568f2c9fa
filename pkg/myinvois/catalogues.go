// Package myinvois contiene catálogos y endpoints de la API MyInvois (LHDN, Malasia).
package myinvois

// =============================================================================
// Tipos de documento electrónico (e-Invoice Guideline, código InvoiceTypeCode)
// 01-04 los emite el proveedor; 05-08 son autofacturados por el comprador.
// =============================================================================

const (
	DocumentTypeInvoice    = "01" // Factura del proveedor al comprador
	DocumentTypeCreditNote = "02" // Nota de crédito (errores, descuentos, devoluciones)
	DocumentTypeDebitNote  = "03" // Nota de débito (cargos adicionales)
	DocumentTypeRefundNote = "04" // Nota de reembolso al comprador

	DocumentTypeSelfBilledInvoice    = "05"
	DocumentTypeSelfBilledCreditNote = "06"
	DocumentTypeSelfBilledDebitNote  = "07"
	DocumentTypeSelfBilledRefundNote = "08"
)

// documentTypeDescriptions descripción oficial por código.
var documentTypeDescriptions = map[string]string{
	DocumentTypeInvoice:              "Invoice",
	DocumentTypeCreditNote:           "Credit Note",
	DocumentTypeDebitNote:            "Debit Note",
	DocumentTypeRefundNote:           "Refund Note",
	DocumentTypeSelfBilledInvoice:    "Self-Billed Invoice",
	DocumentTypeSelfBilledCreditNote: "Self-Billed Credit Note",
	DocumentTypeSelfBilledDebitNote:  "Self-Billed Debit Note",
	DocumentTypeSelfBilledRefundNote: "Self-Billed Refund Note",
}

// Description devuelve la descripción del tipo de documento ("" si el código no existe).
func Description(code string) string {
	return documentTypeDescriptions[code]
}

// IsValidDocumentType indica si el código pertenece al catálogo.
func IsValidDocumentType(code string) bool {
	_, ok := documentTypeDescriptions[code]
	return ok
}

// IsSelfBilledDocument documentos autofacturados (05-08).
func IsSelfBilledDocument(code string) bool {
	switch code {
	case DocumentTypeSelfBilledInvoice, DocumentTypeSelfBilledCreditNote,
		DocumentTypeSelfBilledDebitNote, DocumentTypeSelfBilledRefundNote:
		return true
	}
	return false
}

func IsCreditNote(code string) bool {
	return code == DocumentTypeCreditNote || code == DocumentTypeSelfBilledCreditNote
}

func IsDebitNote(code string) bool {
	return code == DocumentTypeDebitNote || code == DocumentTypeSelfBilledDebitNote
}

func IsRefundNote(code string) bool {
	return code == DocumentTypeRefundNote || code == DocumentTypeSelfBilledRefundNote
}

// RequiresBillingReference las notas (crédito, débito, reembolso) citan el documento original.
func RequiresBillingReference(code string) bool {
	return IsCreditNote(code) || IsDebitNote(code) || IsRefundNote(code)
}

// =============================================================================
// Formatos de envío aceptados por documentsubmissions
// =============================================================================

const (
	FormatJSON = "JSON"
	FormatXML  = "XML"
)

// IsValidFormat indica si el formato de envío es aceptado.
func IsValidFormat(format string) bool {
	return format == FormatJSON || format == FormatXML
}

// MaxDocumentsPerSubmission documentos admitidos en un mismo envío.
const MaxDocumentsPerSubmission = 100
