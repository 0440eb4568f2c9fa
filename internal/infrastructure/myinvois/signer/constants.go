// Constantes de la firma XAdES enveloped exigida por MyInvois (LHDN) para documentos UBL 2.1.

package signer

// Identificadores fijos del bloque de firma UBL.
const (
	SignatureInformationID = "urn:oasis:names:specification:ubl:signature:1"
	ReferencedSignatureID  = "urn:oasis:names:specification:ubl:signature:Invoice"
	ExtensionURI           = "urn:oasis:names:specification:ubl:dsig:enveloped:xades"
	SignatureID            = "signature"
	SignedPropertiesID     = "id-xades-signed-props"
	QualifyingTarget       = "signature"
)

// Algoritmos (no configurables).
const (
	AlgSHA256       = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgRSASHA256    = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgExcC14N      = "http://www.w3.org/2001/10/xml-exc-c14n#"
	TransformXPath  = "http://www.w3.org/TR/1999/REC-xpath-19991116"
	TypeSignedProps = "http://uri.etsi.org/01903/v1.3.2#SignedProperties"
)

// Filtros XPath de la referencia al documento: excluyen la firma del contenido firmado.
const (
	XPathExcludeExtensions = "not(ancestor-or-self::ext:UBLExtensions)"
	XPathExcludeSignature  = "not(ancestor-or-self::cac:Signature)"
)

// Namespaces XML usados al inyectar la firma en UBL XML.
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"
	NamespaceExt   = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NamespaceSig   = "urn:oasis:names:specification:ubl:schema:xsd:CommonSignatureComponents-2"
	NamespaceSAC   = "urn:oasis:names:specification:ubl:schema:xsd:SignatureAggregateComponents-2"
	NamespaceSBC   = "urn:oasis:names:specification:ubl:schema:xsd:SignatureBasicComponents-2"
	NamespaceCAC   = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC   = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// SigningTimeLayout ISO-8601 a segundos con sufijo Z (siempre UTC).
const SigningTimeLayout = "2006-01-02T15:04:05Z"

// Claves del documento que se eliminan antes de canonicalizar.
const (
	keyExtensions = "UBLExtensions"
	keySignature  = "Signature"
)
