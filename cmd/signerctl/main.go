// Command signerctl herramientas de operación del firmador MyInvois: diagnóstico del
// material de firma, emisión de tokens para integradores y firma local de documentos.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/myinvois-signer/pkg/config"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "signerctl",
		Short: "Herramientas del firmador MyInvois",
		Long: `signerctl opera el material de firma del servicio sin levantar la API.

La configuración se lee igual que en el servidor (.env, config.env y variables
de entorno: SIGNING_CERT_PATH, SIGNING_KEY_PATH, SIGNING_KEY_PASSPHRASE,
SIGNING_P12_PATH, JWT_SECRET, ...).

Ejemplos:
  # Verificar cadena y llave
  signerctl certcheck

  # Token para un ERP integrador
  signerctl token --client erp-01 --company 7b6f... --tin C1234567890

  # Firmar un documento JSON-UBL y mostrar el payload de envío
  signerctl sign factura.json --submission`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCertCheckCmd(), newTokenCmd(), newSignCmd())
	return root
}

// loadConfig punto único de lectura de configuración de los subcomandos.
var loadConfig = config.Load
