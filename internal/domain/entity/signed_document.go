package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Formatos del contenido firmado.
const (
	FormatJSON = "JSON"
	FormatXML  = "XML"
)

// SignedDocument registro de auditoría de un documento firmado.
type SignedDocument struct {
	ID                     string
	CompanyID              string
	CodeNumber             string // ID del documento (Invoice.ID)
	DocumentType           string // InvoiceTypeCode (01-08); vacío si no viene en el documento
	Format                 string // JSON | XML
	DocumentDigest         string
	SignedPropertiesDigest string
	SigningTime            time.Time
	CertificateSerial      string
	PayableAmount          decimal.NullDecimal // sólo cuando el documento es una factura estructurada
	Currency               string
	Content                string // documento firmado completo
	CreatedAt              time.Time
}
