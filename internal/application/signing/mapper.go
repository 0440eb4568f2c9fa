package signing

import (
	"time"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/internal/domain/document"
	"github.com/jhoicas/myinvois-signer/internal/domain/entity"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	catalog "github.com/jhoicas/myinvois-signer/pkg/myinvois"
)

func toInvoice(in dto.SignInvoiceRequest) document.Invoice {
	inv := document.Invoice{
		ID:          in.ID,
		IssuedAt:    in.IssuedAt,
		TypeCode:    in.TypeCode,
		Currency:    in.Currency,
		TaxCurrency: in.TaxCurrency,
		Supplier:    toParty(in.Supplier),
		Customer:    toParty(in.Customer),
		TaxTotal: document.TaxTotal{
			TaxAmount: in.TaxTotal.TaxAmount,
			Subtotals: make([]document.TaxSubtotal, 0, len(in.TaxTotal.Subtotals)),
		},
		Totals: document.MonetaryTotal{
			LineExtension:   in.Totals.LineExtension,
			TaxExclusive:    in.Totals.TaxExclusive,
			TaxInclusive:    in.Totals.TaxInclusive,
			AllowanceTotal:  in.Totals.AllowanceTotal,
			ChargeTotal:     in.Totals.ChargeTotal,
			PayableRounding: in.Totals.PayableRounding,
			Payable:         in.Totals.Payable,
		},
		Lines: make([]document.InvoiceLine, 0, len(in.Lines)),
	}
	if in.Period != nil {
		inv.Period = &document.InvoicePeriod{Start: in.Period.Start, End: in.Period.End, Description: in.Period.Description}
	}
	if in.Billing != nil {
		inv.Billing = &document.BillingReference{ID: in.Billing.ID, UUID: in.Billing.UUID}
	}
	for _, r := range in.References {
		inv.References = append(inv.References, document.DocumentReference{ID: r.ID, Type: r.Type, Description: r.Description})
	}
	for _, s := range in.TaxTotal.Subtotals {
		inv.TaxTotal.Subtotals = append(inv.TaxTotal.Subtotals, toTaxSubtotal(s))
	}
	for i, l := range in.Lines {
		inv.Lines = append(inv.Lines, document.InvoiceLine{
			ID:             i + 1,
			Quantity:       l.Quantity,
			UnitCode:       l.UnitCode,
			UnitPrice:      l.UnitPrice,
			LineExtension:  l.LineExtension,
			DiscountRate:   l.DiscountRate,
			DiscountAmount: l.DiscountAmount,
			Tax:            toTaxSubtotal(l.Tax),
			Item: document.Item{
				Description:          l.Description,
				ClassificationCode:   l.ClassificationCode,
				ClassificationScheme: l.ClassificationScheme,
				OriginCountry:        l.OriginCountry,
			},
		})
	}
	return inv
}

func toParty(p dto.PartyRequest) document.Party {
	return document.Party{
		Name:             p.Name,
		TIN:              p.TIN,
		RegistrationID:   p.RegistrationID,
		RegistrationType: p.RegistrationType,
		SSTNumber:        p.SSTNumber,
		MSICCode:         p.MSICCode,
		MSICDescription:  p.MSICDescription,
		Phone:            p.Phone,
		Email:            p.Email,
		Address: document.Address{
			Line1:       p.Address.Line1,
			Line2:       p.Address.Line2,
			City:        p.Address.City,
			PostalCode:  p.Address.PostalCode,
			StateCode:   p.Address.StateCode,
			CountryCode: p.Address.CountryCode,
		},
	}
}

func toTaxSubtotal(s dto.TaxSubtotalRequest) document.TaxSubtotal {
	return document.TaxSubtotal{
		TaxableAmount:   s.TaxableAmount,
		TaxAmount:       s.TaxAmount,
		Percent:         s.Percent,
		TaxType:         s.TaxType,
		ExemptionReason: s.ExemptionReason,
	}
}

// newRecord arma el registro de auditoría a partir del bloque de firma.
func newRecord(companyID, codeNumber, docType, format string, env signer.SignatureEnvelope, content []byte) *entity.SignedDocument {
	return &entity.SignedDocument{
		CompanyID:              companyID,
		CodeNumber:             codeNumber,
		DocumentType:           docType,
		Format:                 format,
		DocumentDigest:         env.DocumentDigest,
		SignedPropertiesDigest: env.SignedPropertiesDigest,
		SigningTime:            env.SignedProperties.SigningTime,
		CertificateSerial:      env.SignedProperties.SerialNumber,
		Content:                string(content),
	}
}

func toResponse(d *entity.SignedDocument) *dto.SignedDocumentResponse {
	content := []byte(d.Content)
	out := &dto.SignedDocumentResponse{
		ID:                     d.ID,
		CodeNumber:             d.CodeNumber,
		DocumentType:           d.DocumentType,
		DocumentTypeName:       catalog.Description(d.DocumentType),
		SelfBilled:             catalog.IsSelfBilledDocument(d.DocumentType),
		Format:                 d.Format,
		DocumentDigest:         d.DocumentDigest,
		SignedPropertiesDigest: d.SignedPropertiesDigest,
		SigningTime:            d.SigningTime.UTC().Format(signer.SigningTimeLayout),
		CertificateSerial:      d.CertificateSerial,
		Currency:               d.Currency,
		Submission:             myinvois.BuildSubmission(content, d.CodeNumber, d.Format),
		CreatedAt:              d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.PayableAmount.Valid {
		amount := d.PayableAmount.Decimal
		out.PayableAmount = &amount
	}
	if d.Format == entity.FormatXML {
		out.XML = d.Content
	} else {
		out.Document = content
	}
	return out
}

func toCertificateInfo(c signer.CertificateInfo) dto.CertificateInfoResponse {
	return dto.CertificateInfoResponse{
		Subject:         c.Subject,
		Issuer:          c.Issuer,
		SerialNumber:    c.SerialNumber,
		ValidFrom:       c.ValidFrom.UTC().Format(time.RFC3339),
		ValidTo:         c.ValidTo.UTC().Format(time.RFC3339),
		DaysUntilExpiry: c.DaysUntilExpiry,
		Valid:           c.Valid,
	}
}
