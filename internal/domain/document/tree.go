// Representación JSON-UBL de documentos MyInvois: cada valor va envuelto como [{"_": v, atributos...}].

package document

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Namespaces UBL de la representación JSON.
const (
	NamespaceInvoice   = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceAggregate = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceBasic     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// Layouts de fecha/hora UBL (siempre UTC).
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05Z"
)

// Tree árbol JSON genérico de un documento: objetos map[string]any, arreglos []any,
// strings, bool y números como json.Number.
type Tree = map[string]any

// Document es lo que sabe firmar el servicio: un árbol JSON-UBL con un identificador.
// Tree debe devolver una copia nueva en cada llamada; quien la recibe puede mutarla.
type Document interface {
	Tree() (Tree, error)
	Identifier() string
}

// Value envuelve un valor simple en la forma [{"_": v}].
func Value(v any) []any {
	return []any{map[string]any{"_": v}}
}

// ValueAttrs envuelve un valor con atributos, p. ej. currencyID o schemeID.
func ValueAttrs(v any, attrs map[string]any) []any {
	m := make(map[string]any, len(attrs)+1)
	for k, a := range attrs {
		m[k] = a
	}
	m["_"] = v
	return []any{m}
}

// Amount envuelve un monto con su moneda. El decimal se emite como número JSON.
func Amount(d decimal.Decimal, currency string) []any {
	return ValueAttrs(Number(d), map[string]any{"currencyID": currency})
}

// Number representa un decimal como número JSON sin pasar por float64.
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Object envuelve un único objeto agregado: [obj].
func Object(obj map[string]any) []any {
	return []any{obj}
}

// DeepCopy copia recursivamente objetos y arreglos del árbol; los escalares se comparten.
func DeepCopy(t Tree) Tree {
	if t == nil {
		return nil
	}
	return deepCopy(t).(map[string]any)
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

// RootKeys devuelve, ordenadas, las claves raíz que no son namespaces (no empiezan por "_").
func RootKeys(t Tree) []string {
	var keys []string
	for k := range t {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RootObjects devuelve los objetos de nivel documento (p. ej. Invoice[0]) de un árbol.
func RootObjects(t Tree) []map[string]any {
	var out []map[string]any
	for _, k := range RootKeys(t) {
		switch arr := t[k].(type) {
		case []any:
			for _, e := range arr {
				if obj, ok := e.(map[string]any); ok {
					out = append(out, obj)
				}
			}
		case []map[string]any:
			out = append(out, arr...)
		}
	}
	return out
}
