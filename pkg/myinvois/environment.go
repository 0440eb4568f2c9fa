package myinvois

import (
	"fmt"
	"strings"
)

// Ambientes de la API.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// URLs endpoints de identidad y de transacciones de un ambiente.
type URLs struct {
	Auth        string
	Transaction string
}

// DefaultURLs endpoints por defecto según ambiente.
var DefaultURLs = map[string]URLs{
	EnvironmentProduction: {
		Auth:        "https://identity.myinvois.hasil.gov.my/connect/token",
		Transaction: "https://api.myinvois.hasil.gov.my",
	},
	EnvironmentSandbox: {
		Auth:        "https://preprod-api.myinvois.hasil.gov.my/connect/token",
		Transaction: "https://preprod-api.myinvois.hasil.gov.my",
	},
}

// URLsFor devuelve los endpoints del ambiente (sin distinguir mayúsculas).
func URLsFor(environment string) (URLs, error) {
	u, ok := DefaultURLs[strings.ToLower(strings.TrimSpace(environment))]
	if !ok {
		return URLs{}, fmt.Errorf("myinvois: ambiente desconocido: %q (usar sandbox|production)", environment)
	}
	return u, nil
}

// SubmissionURL endpoint de envío de documentos sobre la URL de transacciones.
func SubmissionURL(transactionURL string) string {
	return strings.TrimRight(transactionURL, "/") + "/api/v1.0/documentsubmissions/"
}
