package document

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/myinvois-signer/internal/domain"
)

// Versión de la lista de tipos de documento que acompaña a InvoiceTypeCode.
const TypeCodeListVersion = "1.1"

// Address dirección postal de una parte.
type Address struct {
	Line1       string
	Line2       string
	City        string
	PostalCode  string
	StateCode   string // código de estado LHDN, p. ej. "14"
	CountryCode string // ISO 3166-1 alfa-3, p. ej. "MYS"
}

// Party emisor o receptor del documento.
type Party struct {
	Name             string
	TIN              string
	RegistrationID   string // obligatorio (BRN, NRIC, PASSPORT, ARMY)
	RegistrationType string // schemeID del RegistrationID
	SSTNumber        string
	MSICCode         string // sólo emisor
	MSICDescription  string
	Phone            string
	Email            string
	Address          Address
}

// InvoicePeriod período de facturación opcional.
type InvoicePeriod struct {
	Start       time.Time
	End         time.Time
	Description string
}

// DocumentReference referencia adicional (p. ej. formulario aduanero).
type DocumentReference struct {
	ID          string
	Type        string
	Description string
}

// BillingReference documento original que corrige una nota (crédito, débito, reembolso).
type BillingReference struct {
	ID   string // número interno del documento original
	UUID string // identificador asignado por LHDN al original
}

// TaxSubtotal desglose de impuesto por categoría.
type TaxSubtotal struct {
	TaxableAmount   decimal.Decimal
	TaxAmount       decimal.Decimal
	Percent         decimal.Decimal
	TaxType         string // código de tipo de impuesto LHDN; "E" = exento
	ExemptionReason string
}

// TaxTotal total de impuestos con sus subtotales, ya calculados por el emisor.
type TaxTotal struct {
	TaxAmount decimal.Decimal
	Subtotals []TaxSubtotal
}

// MonetaryTotal totales legales del documento. No se recalculan aquí.
type MonetaryTotal struct {
	LineExtension   decimal.Decimal
	TaxExclusive    decimal.Decimal
	TaxInclusive    decimal.Decimal
	AllowanceTotal  decimal.Decimal
	ChargeTotal     decimal.Decimal
	PayableRounding decimal.Decimal
	Payable         decimal.Decimal
}

// Item descripción y clasificación del producto o servicio.
type Item struct {
	Description          string
	ClassificationCode   string
	ClassificationScheme string // p. ej. "CLASS"
	OriginCountry        string
}

// InvoiceLine línea del documento.
type InvoiceLine struct {
	ID             int
	Quantity       decimal.Decimal
	UnitCode       string
	UnitPrice      decimal.Decimal
	LineExtension  decimal.Decimal
	DiscountRate   decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            TaxSubtotal
	Item           Item
}

// Invoice documento UBL de tipo Invoice (factura, notas y autofacturas comparten estructura).
// Es un valor: se construye completo y no se modifica.
type Invoice struct {
	ID          string
	IssuedAt    time.Time
	TypeCode    string // 01..08
	Currency    string
	TaxCurrency string
	Period      *InvoicePeriod
	References  []DocumentReference
	Billing     *BillingReference
	Supplier    Party
	Customer    Party
	TaxTotal    TaxTotal
	Totals      MonetaryTotal
	Lines       []InvoiceLine
}

var _ Document = Invoice{}

// Identifier devuelve el número del documento.
func (inv Invoice) Identifier() string { return inv.ID }

// Tree arma el árbol JSON-UBL. Cada llamada devuelve un árbol nuevo.
func (inv Invoice) Tree() (Tree, error) {
	if inv.ID == "" {
		return nil, fmt.Errorf("%w: el documento requiere ID", domain.ErrInvalidInput)
	}
	supplier, err := inv.Supplier.tree("AccountingSupplierParty")
	if err != nil {
		return nil, err
	}
	customer, err := inv.Customer.tree("AccountingCustomerParty")
	if err != nil {
		return nil, err
	}

	issued := inv.IssuedAt.UTC()
	taxCurrency := inv.TaxCurrency
	if taxCurrency == "" {
		taxCurrency = inv.Currency
	}

	refs := make([]any, 0, len(inv.References))
	for _, r := range inv.References {
		refs = append(refs, r.tree())
	}
	lines := make([]any, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, l.tree(inv.Currency))
	}

	body := map[string]any{
		"ID":                          Value(inv.ID),
		"IssueDate":                   Value(issued.Format(DateLayout)),
		"IssueTime":                   Value(issued.Format(TimeLayout)),
		"InvoiceTypeCode":             ValueAttrs(inv.TypeCode, map[string]any{"listVersionID": TypeCodeListVersion}),
		"DocumentCurrencyCode":        Value(inv.Currency),
		"TaxCurrencyCode":             Value(taxCurrency),
		"InvoicePeriod":               inv.Period.tree(),
		"AdditionalDocumentReference": refs,
		"AccountingSupplierParty":     Object(map[string]any{"Party": Object(supplier)}),
		"AccountingCustomerParty":     Object(map[string]any{"Party": Object(customer)}),
		"TaxTotal":                    Object(inv.TaxTotal.tree(inv.Currency)),
		"LegalMonetaryTotal":          Object(inv.Totals.tree(inv.Currency)),
		"InvoiceLine":                 lines,
	}

	if inv.Billing != nil {
		body["BillingReference"] = inv.Billing.tree()
	}

	return Tree{
		"_D":      NamespaceInvoice,
		"_A":      NamespaceAggregate,
		"_B":      NamespaceBasic,
		"Invoice": []any{body},
	}, nil
}

func (a Address) tree() map[string]any {
	return map[string]any{
		"CityName":             Value(a.City),
		"PostalZone":           Value(a.PostalCode),
		"CountrySubentityCode": Value(a.StateCode),
		"AddressLine": []any{
			map[string]any{"Line": Value(a.Line1)},
			map[string]any{"Line": Value(a.Line2)},
		},
		"Country": Object(map[string]any{
			"IdentificationCode": ValueAttrs(a.CountryCode, map[string]any{"listID": "ISO3166-1", "listAgencyID": "6"}),
		}),
	}
}

func (p Party) tree(role string) (map[string]any, error) {
	if p.RegistrationID == "" || p.RegistrationType == "" {
		return nil, fmt.Errorf("%w: %s requiere RegistrationID y RegistrationType", domain.ErrInvalidInput, role)
	}
	ids := make([]any, 0, 3)
	if p.TIN != "" {
		ids = append(ids, map[string]any{"ID": ValueAttrs(p.TIN, map[string]any{"schemeID": "TIN"})})
	}
	ids = append(ids, map[string]any{"ID": ValueAttrs(p.RegistrationID, map[string]any{"schemeID": p.RegistrationType})})
	if p.SSTNumber != "" {
		ids = append(ids, map[string]any{"ID": ValueAttrs(p.SSTNumber, map[string]any{"schemeID": "SST"})})
	}

	out := map[string]any{
		"PostalAddress":       Object(p.Address.tree()),
		"PartyLegalEntity":    Object(map[string]any{"RegistrationName": Value(p.Name)}),
		"PartyIdentification": ids,
		"Contact": Object(map[string]any{
			"Telephone":      Value(p.Phone),
			"ElectronicMail": Value(p.Email),
		}),
	}
	if p.MSICCode != "" {
		out["IndustryClassificationCode"] = ValueAttrs(p.MSICCode, map[string]any{"name": p.MSICDescription})
	}
	return out, nil
}

func (p *InvoicePeriod) tree() []any {
	if p == nil || (p.Start.IsZero() && p.End.IsZero() && p.Description == "") {
		return []any{}
	}
	out := map[string]any{
		"StartDate":   []any{},
		"EndDate":     []any{},
		"Description": []any{},
	}
	if !p.Start.IsZero() {
		out["StartDate"] = Value(p.Start.UTC().Format(DateLayout))
	}
	if !p.End.IsZero() {
		out["EndDate"] = Value(p.End.UTC().Format(DateLayout))
	}
	if p.Description != "" {
		out["Description"] = Value(p.Description)
	}
	return Object(out)
}

func (b *BillingReference) tree() []any {
	ref := map[string]any{"ID": Value(b.ID)}
	if b.UUID != "" {
		ref["UUID"] = Value(b.UUID)
	}
	return Object(map[string]any{"InvoiceDocumentReference": Object(ref)})
}

func (r DocumentReference) tree() map[string]any {
	out := map[string]any{"ID": Value(r.ID)}
	if r.Type != "" {
		out["DocumentType"] = Value(r.Type)
	}
	if r.Description != "" {
		out["DocumentDescription"] = Value(r.Description)
	}
	return out
}

func taxScheme() []any {
	return Object(map[string]any{
		"ID": ValueAttrs("OTH", map[string]any{"schemeID": "UN/ECE 5153", "schemeAgencyID": "6"}),
	})
}

func (s TaxSubtotal) category(withPercent bool) map[string]any {
	cat := map[string]any{
		"ID":        Value(s.TaxType),
		"TaxScheme": taxScheme(),
	}
	if withPercent {
		cat["Percent"] = Value(Number(s.Percent))
	}
	if s.TaxType == "E" && s.ExemptionReason != "" {
		cat["TaxExemptionReason"] = Value(s.ExemptionReason)
	}
	return cat
}

// tree subtotal a nivel documento: Percent dentro de TaxCategory.
func (s TaxSubtotal) tree(currency string) map[string]any {
	return map[string]any{
		"TaxableAmount": Amount(s.TaxableAmount, currency),
		"TaxAmount":     Amount(s.TaxAmount, currency),
		"TaxCategory":   Object(s.category(true)),
	}
}

// lineTree subtotal a nivel línea: Percent junto a los montos.
func (s TaxSubtotal) lineTree(currency string) map[string]any {
	return map[string]any{
		"TaxableAmount": Amount(s.TaxableAmount, currency),
		"TaxAmount":     Amount(s.TaxAmount, currency),
		"Percent":       Value(Number(s.Percent)),
		"TaxCategory":   Object(s.category(false)),
	}
}

func (t TaxTotal) tree(currency string) map[string]any {
	subs := make([]any, 0, len(t.Subtotals))
	for _, s := range t.Subtotals {
		subs = append(subs, s.tree(currency))
	}
	return map[string]any{
		"TaxAmount":   Amount(t.TaxAmount, currency),
		"TaxSubtotal": subs,
	}
}

func (m MonetaryTotal) tree(currency string) map[string]any {
	return map[string]any{
		"LineExtensionAmount":   Amount(m.LineExtension, currency),
		"TaxExclusiveAmount":    Amount(m.TaxExclusive, currency),
		"TaxInclusiveAmount":    Amount(m.TaxInclusive, currency),
		"AllowanceTotalAmount":  Amount(m.AllowanceTotal, currency),
		"ChargeTotalAmount":     Amount(m.ChargeTotal, currency),
		"PayableRoundingAmount": Amount(m.PayableRounding, currency),
		"PayableAmount":         Amount(m.Payable, currency),
	}
}

func (l InvoiceLine) tree(currency string) map[string]any {
	allowance := map[string]any{
		"ChargeIndicator":       Value(false),
		"AllowanceChargeReason": Value("Discount"),
		"Amount":                Amount(l.DiscountAmount, currency),
	}
	if l.DiscountRate.IsPositive() {
		allowance["MultiplierFactorNumeric"] = Value(Number(l.DiscountRate))
	}
	return map[string]any{
		"ID":                  Value(strconv.Itoa(l.ID)),
		"InvoicedQuantity":    ValueAttrs(Number(l.Quantity), map[string]any{"unitCode": l.UnitCode}),
		"LineExtensionAmount": Amount(l.LineExtension, currency),
		"AllowanceCharge":     Object(allowance),
		"TaxTotal": Object(map[string]any{
			"TaxAmount":   Amount(l.Tax.TaxAmount, currency),
			"TaxSubtotal": Object(l.Tax.lineTree(currency)),
		}),
		"Item": Object(map[string]any{
			"CommodityClassification": Object(map[string]any{
				"ItemClassificationCode": ValueAttrs(l.Item.ClassificationCode, map[string]any{"listID": l.Item.ClassificationScheme}),
			}),
			"Description":   Value(l.Item.Description),
			"OriginCountry": Object(map[string]any{"IdentificationCode": Value(l.Item.OriginCountry)}),
		}),
		"Price":              Object(map[string]any{"PriceAmount": Amount(l.UnitPrice, currency)}),
		"ItemPriceExtension": Object(map[string]any{"Amount": Amount(l.LineExtension, currency)}),
	}
}
