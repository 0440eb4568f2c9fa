// Firma de documentos UBL en XML: el mismo bloque de firma como ds:Signature dentro de
// ext:UBLExtensions, más cac:Signature antes de AccountingSupplierParty.
//
// Referencias de SignedInfo:
//   - #id-xades-signed-props: C14N exclusivo del nodo tal como queda en el documento.
//   - URI="": filtros XPath que quitan ext:UBLExtensions y cac:Signature, luego C14N exclusivo.

package signer

import (
	"fmt"

	"github.com/beevik/etree"
)

// xmlSignature documento con la firma inyectada y los nodos que se completan al final.
type xmlSignature struct {
	doc            *etree.Document
	props          *etree.Element
	propsDigest    *etree.Element
	docDigest      *etree.Element
	signatureValue *etree.Element
}

// signedPropertiesElement arma xades:SignedProperties.
func signedPropertiesElement(sp SignedProperties) *etree.Element {
	el := etree.NewElement("xades:SignedProperties")
	el.CreateAttr("Id", sp.ID)
	ssp := el.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(sp.FormattedSigningTime())
	cert := ssp.CreateElement("xades:SigningCertificate").CreateElement("xades:Cert")
	digest := cert.CreateElement("xades:CertDigest")
	digest.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	digest.CreateElement("ds:DigestValue").SetText(sp.CertificateDigest)
	serial := cert.CreateElement("xades:IssuerSerial")
	serial.CreateElement("ds:X509IssuerName").SetText(sp.IssuerName)
	serial.CreateElement("ds:X509SerialNumber").SetText(sp.SerialNumber)
	return el
}

// signatureElement arma ds:Signature con SignedInfo, SignatureValue, KeyInfo y Object y
// registra en s los nodos que dependen de digests y firma.
func (s *xmlSignature) signatureElement(env SignatureEnvelope) *etree.Element {
	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	// sin namespace por defecto dentro de la firma: el C14N de SignedProperties no
	// depende del namespace por defecto del documento
	sig.CreateAttr("xmlns", "")
	sig.CreateAttr("Id", SignatureID)

	info := sig.CreateElement("ds:SignedInfo")
	info.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgExcC14N)
	info.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)

	props := reference(info, TypeSignedProps, "#"+env.SignedProperties.ID)
	transform(props, AlgExcC14N)
	s.propsDigest = digestValue(props, env.SignedPropertiesDigest)

	doc := reference(info, "", "")
	transform(doc, TransformXPath).CreateElement("ds:XPath").SetText(XPathExcludeExtensions)
	transform(doc, TransformXPath).CreateElement("ds:XPath").SetText(XPathExcludeSignature)
	transform(doc, AlgExcC14N)
	s.docDigest = digestValue(doc, env.DocumentDigest)

	s.signatureValue = sig.CreateElement("ds:SignatureValue")
	s.signatureValue.SetText(env.SignatureValue)

	data := sig.CreateElement("ds:KeyInfo").CreateElement("ds:X509Data")
	data.CreateElement("ds:X509Certificate").SetText(env.Certificate.Certificate)
	data.CreateElement("ds:X509SubjectName").SetText(env.Certificate.SubjectName)
	serial := data.CreateElement("ds:X509IssuerSerial")
	serial.CreateElement("ds:X509IssuerName").SetText(env.Certificate.IssuerName)
	serial.CreateElement("ds:X509SerialNumber").SetText(env.Certificate.SerialNumber)

	qp := sig.CreateElement("ds:Object").CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("xmlns:xades", NamespaceXAdES)
	qp.CreateAttr("Target", QualifyingTarget)
	s.props = signedPropertiesElement(env.SignedProperties)
	qp.AddChild(s.props)
	return sig
}

func reference(parent *etree.Element, typ, uri string) *etree.Element {
	ref := parent.CreateElement("ds:Reference")
	ref.CreateAttr("Type", typ)
	ref.CreateAttr("URI", uri)
	return ref
}

// transform agrega ds:Transform a ds:Transforms de ref, creándolo si falta.
func transform(ref *etree.Element, algorithm string) *etree.Element {
	transforms := ref.SelectElement("Transforms")
	if transforms == nil {
		transforms = ref.CreateElement("ds:Transforms")
	}
	t := transforms.CreateElement("ds:Transform")
	t.CreateAttr("Algorithm", algorithm)
	if algorithm == TransformXPath {
		// prefijos de las expresiones XPath
		t.CreateAttr("xmlns:ext", NamespaceExt)
		t.CreateAttr("xmlns:cac", NamespaceCAC)
	}
	return t
}

func digestValue(ref *etree.Element, digest string) *etree.Element {
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	v := ref.CreateElement("ds:DigestValue")
	v.SetText(digest)
	return v
}

// declare agrega xmlns:prefix al elemento si la raíz no lo declara.
func declare(root, el *etree.Element, prefix, uri string) {
	if root.SelectAttr("xmlns:"+prefix) == nil {
		el.CreateAttr("xmlns:"+prefix, uri)
	}
}

// injectXMLSignature parsea data, quita firmas previas e inserta ext:UBLExtensions (primer hijo
// de la raíz) con la firma de env, y cac:Signature.
func injectXMLSignature(data []byte, env SignatureEnvelope) (*xmlSignature, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: parsear XML: %v", ErrParse, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: XML sin elemento raíz", ErrParse)
	}
	stripSignatureElements(root)
	s := &xmlSignature{doc: doc}

	exts := etree.NewElement("ext:UBLExtensions")
	declare(root, exts, "ext", NamespaceExt)
	ext := exts.CreateElement("ext:UBLExtension")
	ext.CreateElement("ext:ExtensionURI").SetText(ExtensionURI)
	sigs := ext.CreateElement("ext:ExtensionContent").CreateElement("sig:UBLDocumentSignatures")
	sigs.CreateAttr("xmlns:sig", NamespaceSig)
	sigs.CreateAttr("xmlns:sac", NamespaceSAC)
	sigs.CreateAttr("xmlns:sbc", NamespaceSBC)
	info := sigs.CreateElement("sac:SignatureInformation")
	declare(root, info, "cbc", NamespaceCBC)
	info.CreateElement("cbc:ID").SetText(SignatureInformationID)
	info.CreateElement("sbc:ReferencedSignatureID").SetText(ReferencedSignatureID)
	info.AddChild(s.signatureElement(env))
	root.InsertChildAt(0, exts)

	placeholder := etree.NewElement("cac:Signature")
	declare(root, placeholder, "cac", NamespaceCAC)
	declare(root, placeholder, "cbc", NamespaceCBC)
	placeholder.CreateElement("cbc:ID").SetText(ReferencedSignatureID)
	placeholder.CreateElement("cbc:SignatureMethod").SetText(ExtensionURI)
	if supplier := root.SelectElement("AccountingSupplierParty"); supplier != nil {
		root.InsertChildAt(supplier.Index(), placeholder)
	} else {
		root.AddChild(placeholder)
	}
	return s, nil
}

// signedPropertiesDigest digest de xades:SignedProperties en su posición final.
func (s *xmlSignature) signedPropertiesDigest() (string, error) {
	canonical, err := canonicalizeInContext(s.props)
	if err != nil {
		return "", err
	}
	return Digest(canonical), nil
}

// complete escribe digests y firma en los nodos reservados.
func (s *xmlSignature) complete(env SignatureEnvelope) {
	s.propsDigest.SetText(env.SignedPropertiesDigest)
	s.docDigest.SetText(env.DocumentDigest)
	s.signatureValue.SetText(env.SignatureValue)
}

func (s *xmlSignature) bytes() ([]byte, error) {
	out, err := s.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("signer: serializar XML firmado: %w", err)
	}
	return out, nil
}

// DigestSignedPropertiesXML recalcula, a partir de un XML ya firmado, el digest de la
// referencia #id-xades-signed-props.
func DigestSignedPropertiesXML(signed []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return "", fmt.Errorf("%w: parsear XML: %v", ErrParse, err)
	}
	props := doc.FindElement(fmt.Sprintf("//SignedProperties[@Id='%s']", SignedPropertiesID))
	if props == nil {
		return "", fmt.Errorf("%w: XML sin xades:SignedProperties", ErrParse)
	}
	canonical, err := canonicalizeInContext(props)
	if err != nil {
		return "", err
	}
	return Digest(canonical), nil
}
