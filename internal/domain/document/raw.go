package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jhoicas/myinvois-signer/internal/domain"
)

// Raw documento JSON-UBL ya armado por el cliente (factura, nota de crédito, autofactura...).
// Se guarda parseado; los números conservan su texto original.
type Raw struct {
	tree    Tree
	rootKey string
	id      string
}

var _ Document = (*Raw)(nil)

// ParseRaw valida y parsea un documento JSON-UBL. Debe tener exactamente una clave raíz
// (aparte de los namespaces "_D", "_A", "_B") cuyo valor sea un arreglo no vacío de objetos.
func ParseRaw(data []byte) (*Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree Tree
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: documento JSON inválido: %v", domain.ErrInvalidInput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: contenido extra después del documento", domain.ErrInvalidInput)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: documento vacío", domain.ErrInvalidInput)
	}

	keys := RootKeys(tree)
	if len(keys) != 1 {
		return nil, fmt.Errorf("%w: se esperaba una sola raíz de documento, hay %d", domain.ErrInvalidInput, len(keys))
	}
	root, ok := tree[keys[0]].([]any)
	if !ok || len(root) == 0 {
		return nil, fmt.Errorf("%w: %s debe ser un arreglo no vacío", domain.ErrInvalidInput, keys[0])
	}
	for i, e := range root {
		if _, ok := e.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: %s[%d] no es un objeto", domain.ErrInvalidInput, keys[0], i)
		}
	}

	return &Raw{tree: tree, rootKey: keys[0], id: scalar(root[0].(map[string]any), "ID")}, nil
}

// Tree devuelve una copia del árbol.
func (r *Raw) Tree() (Tree, error) {
	return DeepCopy(r.tree), nil
}

// Identifier devuelve ID[0]._ del primer objeto raíz (vacío si no existe).
func (r *Raw) Identifier() string { return r.id }

// RootKey nombre del tipo de documento raíz, p. ej. "Invoice".
func (r *Raw) RootKey() string { return r.rootKey }

// TypeCode devuelve InvoiceTypeCode[0]._ si existe.
func (r *Raw) TypeCode() string {
	root := r.tree[r.rootKey].([]any)
	return scalar(root[0].(map[string]any), "InvoiceTypeCode")
}

// HasBillingReference indica si el primer objeto raíz trae BillingReference.
func (r *Raw) HasBillingReference() bool {
	root := r.tree[r.rootKey].([]any)
	refs, ok := root[0].(map[string]any)["BillingReference"].([]any)
	return ok && len(refs) > 0
}

// scalar lee obj[key][0]["_"] como texto.
func scalar(obj map[string]any, key string) string {
	arr, ok := obj[key].([]any)
	if !ok || len(arr) == 0 {
		return ""
	}
	inner, ok := arr[0].(map[string]any)
	if !ok {
		return ""
	}
	switch v := inner["_"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
