// Forma canónica de los documentos antes de calcular digest y firma.
// JSON: RFC 8785 (JCS). XML: C14N exclusivo.

package signer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/myinvois-signer/internal/domain/document"
)

// Canonicalize devuelve los bytes canónicos del documento sin UBLExtensions ni Signature
// en sus objetos raíz. No modifica el documento.
func Canonicalize(doc document.Document) ([]byte, error) {
	tree, err := doc.Tree()
	if err != nil {
		return nil, fmt.Errorf("signer: armar documento: %w", err)
	}
	stripped := document.DeepCopy(tree)
	for _, obj := range document.RootObjects(stripped) {
		delete(obj, keyExtensions)
		delete(obj, keySignature)
	}
	return CanonicalizeValue(stripped)
}

// CanonicalizeValue aplica JCS a cualquier valor serializable, sin quitar campos.
func CanonicalizeValue(v any) ([]byte, error) {
	raw, err := marshalJSON(v)
	if err != nil {
		return nil, fmt.Errorf("%w: serializar: %w", ErrDigest, err)
	}
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar: %w", ErrDigest, err)
	}
	return out, nil
}

// marshalJSON serializa sin escapar <, > y &.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CanonicalizeXML quita ext:UBLExtensions y cac:Signature (los mismos nodos que excluyen los
// filtros XPath de la referencia) y aplica C14N exclusivo.
func CanonicalizeXML(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: parsear XML: %v", ErrParse, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: XML sin elemento raíz", ErrParse)
	}
	stripped := etree.NewDocument()
	stripped.SetRoot(stripSignatureElements(root.Copy()))
	return canonicalizeElement(stripped)
}

func stripSignatureElements(el *etree.Element) *etree.Element {
	for _, child := range el.ChildElements() {
		if isSignatureElement(child) {
			el.RemoveChild(child)
			continue
		}
		stripSignatureElements(child)
	}
	return el
}

func isSignatureElement(el *etree.Element) bool {
	switch el.Tag {
	case keyExtensions:
		return el.NamespaceURI() == NamespaceExt
	case keySignature:
		return el.NamespaceURI() == NamespaceCAC
	}
	return false
}

// canonicalizeInContext canonicaliza el subárbol de el tal como lo ve un verificador que
// resuelve una referencia por Id: con los namespaces declarados en sus ancestros.
func canonicalizeInContext(el *etree.Element) ([]byte, error) {
	cp := el.Copy()
	declared := map[string]bool{}
	for _, a := range cp.Attr {
		if isNamespaceAttr(a) {
			declared[a.FullKey()] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if !isNamespaceAttr(a) || declared[a.FullKey()] {
				continue
			}
			declared[a.FullKey()] = true
			cp.CreateAttr(a.FullKey(), a.Value)
		}
	}
	doc := etree.NewDocument()
	doc.SetRoot(cp)
	return canonicalizeElement(doc)
}

func isNamespaceAttr(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

func canonicalizeElement(doc *etree.Document) ([]byte, error) {
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: serializar XML: %w", ErrDigest, err)
	}
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: C14N: %w", ErrDigest, err)
	}
	return out, nil
}
