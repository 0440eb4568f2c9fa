// Bloque de firma UBL (SignatureInformation) en su forma JSON. El orden de los campos
// lo fijan los structs; el verificador de LHDN rechaza cualquier variación.

package signer

import (
	"fmt"
	"time"

	"github.com/jhoicas/myinvois-signer/internal/domain/document"
)

// SignedProperties propiedades XAdES firmadas. Se crea una por firma.
type SignedProperties struct {
	ID                string
	SigningTime       time.Time
	CertificateDigest string // SHA-256 base64 del DER del firmante
	IssuerName        string // DN del emisor formateado
	SerialNumber      string // decimal
}

// NewSignedProperties arma las propiedades firmadas del certificado firmante en el instante at.
func NewSignedProperties(at time.Time, cert Certificate) SignedProperties {
	return SignedProperties{
		ID:                SignedPropertiesID,
		SigningTime:       at.UTC().Truncate(time.Second),
		CertificateDigest: CertificateDigest(cert),
		IssuerName:        FormatDistinguishedName(cert.Issuer),
		SerialNumber:      cert.SerialNumber,
	}
}

// FormattedSigningTime instante de firma en formato ISO-8601 UTC a segundos.
func (sp SignedProperties) FormattedSigningTime() string {
	return sp.SigningTime.UTC().Format(SigningTimeLayout)
}

// MarshalJSON emite el arreglo [{"Id", "SignedSignatureProperties"}].
func (sp SignedProperties) MarshalJSON() ([]byte, error) {
	return marshalJSON([]signedPropertiesJSON{{
		ID: sp.ID,
		SignedSignatureProperties: []signedSignaturePropertiesJSON{{
			SigningTime: text(sp.FormattedSigningTime()),
			SigningCertificate: []signingCertificateJSON{{
				Cert: []certJSON{{
					CertDigest: []digestJSON{{
						DigestMethod: algorithm(AlgSHA256),
						DigestValue:  text(sp.CertificateDigest),
					}},
					IssuerSerial: []issuerSerialJSON{{
						X509IssuerName:   text(sp.IssuerName),
						X509SerialNumber: text(sp.SerialNumber),
					}},
				}},
			}},
		}},
	}})
}

// QualifyingProperties estructura sobre la que se calcula el digest de SignedProperties.
type QualifyingProperties struct {
	Target           string           `json:"Target"`
	SignedProperties SignedProperties `json:"SignedProperties"`
}

// qualifying envuelve las propiedades con el Target de la firma.
func qualifying(sp SignedProperties) QualifyingProperties {
	return QualifyingProperties{Target: QualifyingTarget, SignedProperties: sp}
}

// SignatureEnvelope firma ensamblada. Inmutable.
type SignatureEnvelope struct {
	SignatureValue         string
	DocumentDigest         string
	SignedPropertiesDigest string
	SignedProperties       SignedProperties
	Certificate            CertificateMetadata
}

// Assemble combina firma, digests y datos del certificado en el bloque de firma.
func Assemble(signatureValue, documentDigest string, sp SignedProperties, spDigest string, meta CertificateMetadata) SignatureEnvelope {
	return SignatureEnvelope{
		SignatureValue:         signatureValue,
		DocumentDigest:         documentDigest,
		SignedPropertiesDigest: spDigest,
		SignedProperties:       sp,
		Certificate:            meta,
	}
}

// MarshalJSON emite {"SignatureInformation": [...]}.
func (e SignatureEnvelope) MarshalJSON() ([]byte, error) {
	return marshalJSON(signatureDocumentJSON{
		SignatureInformation: []signatureInformationJSON{{
			ID:                    text(SignatureInformationID),
			ReferencedSignatureID: text(ReferencedSignatureID),
			Signature: []signatureJSON{{
				ID:     SignatureID,
				Object: []objectJSON{{QualifyingProperties: []QualifyingProperties{qualifying(e.SignedProperties)}}},
				KeyInfo: []keyInfoJSON{{
					X509Data: []x509DataJSON{{
						X509Certificate: text(e.Certificate.Certificate),
						X509SubjectName: text(e.Certificate.SubjectName),
						X509IssuerSerial: []issuerSerialJSON{{
							X509IssuerName:   text(e.Certificate.IssuerName),
							X509SerialNumber: text(e.Certificate.SerialNumber),
						}},
					}},
				}},
				SignatureValue: text(e.SignatureValue),
				SignedInfo: []signedInfoJSON{{
					SignatureMethod: algorithm(AlgRSASHA256),
					Reference: []referenceJSON{
						{
							Type:         TypeSignedProps,
							URI:          "#" + e.SignedProperties.ID,
							DigestMethod: algorithm(AlgSHA256),
							DigestValue:  text(e.SignedPropertiesDigest),
						},
						{
							DigestMethod: algorithm(AlgSHA256),
							DigestValue:  text(e.DocumentDigest),
						},
					},
				}},
			}},
		}},
	})
}

// SignedDocument documento original más la firma inyectada en su zona de extensiones.
type SignedDocument struct {
	Document document.Document
	Envelope SignatureEnvelope
}

// Tree árbol del documento con UBLExtensions y Signature en cada objeto raíz.
// Los campos propios del documento no cambian.
func (s SignedDocument) Tree() (document.Tree, error) {
	tree, err := s.Document.Tree()
	if err != nil {
		return nil, fmt.Errorf("signer: armar documento: %w", err)
	}
	for _, obj := range document.RootObjects(tree) {
		obj[keyExtensions] = []ublExtensionsJSON{{
			UBLExtension: []ublExtensionJSON{{
				ExtensionURI: text(ExtensionURI),
				ExtensionContent: []extensionContentJSON{{
					UBLDocumentSignatures: []SignatureEnvelope{s.Envelope},
				}},
			}},
		}}
		obj[keySignature] = []signaturePlaceholderJSON{{
			ID:              text(ReferencedSignatureID),
			SignatureMethod: text(ExtensionURI),
		}}
	}
	return tree, nil
}

// MarshalJSON documento firmado listo para enviar (sin escapar HTML).
func (s SignedDocument) MarshalJSON() ([]byte, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}
	return marshalJSON(tree)
}

// Identifier identificador del documento firmado.
func (s SignedDocument) Identifier() string { return s.Document.Identifier() }

// ─── Forma JSON ──────────────────────────────────────────────────────────────

type textJSON struct {
	Value string `json:"_"`
}

type algorithmJSON struct {
	Value     string `json:"_"`
	Algorithm string `json:"Algorithm"`
}

func text(v string) []textJSON { return []textJSON{{Value: v}} }

func algorithm(alg string) []algorithmJSON { return []algorithmJSON{{Algorithm: alg}} }

type signedPropertiesJSON struct {
	ID                        string                          `json:"Id"`
	SignedSignatureProperties []signedSignaturePropertiesJSON `json:"SignedSignatureProperties"`
}

type signedSignaturePropertiesJSON struct {
	SigningTime        []textJSON               `json:"SigningTime"`
	SigningCertificate []signingCertificateJSON `json:"SigningCertificate"`
}

type signingCertificateJSON struct {
	Cert []certJSON `json:"Cert"`
}

type certJSON struct {
	CertDigest   []digestJSON       `json:"CertDigest"`
	IssuerSerial []issuerSerialJSON `json:"IssuerSerial"`
}

type digestJSON struct {
	DigestMethod []algorithmJSON `json:"DigestMethod"`
	DigestValue  []textJSON      `json:"DigestValue"`
}

type issuerSerialJSON struct {
	X509IssuerName   []textJSON `json:"X509IssuerName"`
	X509SerialNumber []textJSON `json:"X509SerialNumber"`
}

type signatureDocumentJSON struct {
	SignatureInformation []signatureInformationJSON `json:"SignatureInformation"`
}

type signatureInformationJSON struct {
	ID                    []textJSON      `json:"ID"`
	ReferencedSignatureID []textJSON      `json:"ReferencedSignatureID"`
	Signature             []signatureJSON `json:"Signature"`
}

type signatureJSON struct {
	ID             string           `json:"Id"`
	Object         []objectJSON     `json:"Object"`
	KeyInfo        []keyInfoJSON    `json:"KeyInfo"`
	SignatureValue []textJSON       `json:"SignatureValue"`
	SignedInfo     []signedInfoJSON `json:"SignedInfo"`
}

type objectJSON struct {
	QualifyingProperties []QualifyingProperties `json:"QualifyingProperties"`
}

type keyInfoJSON struct {
	X509Data []x509DataJSON `json:"X509Data"`
}

type x509DataJSON struct {
	X509Certificate  []textJSON         `json:"X509Certificate"`
	X509SubjectName  []textJSON         `json:"X509SubjectName"`
	X509IssuerSerial []issuerSerialJSON `json:"X509IssuerSerial"`
}

type signedInfoJSON struct {
	SignatureMethod []algorithmJSON `json:"SignatureMethod"`
	Reference       []referenceJSON `json:"Reference"`
}

type referenceJSON struct {
	Type         string          `json:"Type"`
	URI          string          `json:"URI"`
	DigestMethod []algorithmJSON `json:"DigestMethod"`
	DigestValue  []textJSON      `json:"DigestValue"`
}

type ublExtensionsJSON struct {
	UBLExtension []ublExtensionJSON `json:"UBLExtension"`
}

type ublExtensionJSON struct {
	ExtensionURI     []textJSON             `json:"ExtensionURI"`
	ExtensionContent []extensionContentJSON `json:"ExtensionContent"`
}

type extensionContentJSON struct {
	UBLDocumentSignatures []SignatureEnvelope `json:"UBLDocumentSignatures"`
}

type signaturePlaceholderJSON struct {
	ID              []textJSON `json:"ID"`
	SignatureMethod []textJSON `json:"SignatureMethod"`
}
