package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/myinvois-signer/internal/domain/document"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	catalog "github.com/jhoicas/myinvois-signer/pkg/myinvois"
)

func newSignCmd() *cobra.Command {
	var asXML, submission bool
	var code, outPath string
	cmd := &cobra.Command{
		Use:   "sign <archivo>",
		Short: "Firma un documento JSON-UBL o XML localmente",
		Long: `Firma el documento con el material configurado y escribe el resultado en
stdout (o en --out). Con --submission escribe el cuerpo listo para
POST /api/v1.0/documentsubmissions/.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			o := signer.NewOrchestrator(signer.FileCredentials{
				CertificatePath: cfg.Signing.CertPath,
				KeyPath:         cfg.Signing.KeyPath,
				PKCS12Path:      cfg.Signing.P12Path,
				Passphrase:      cfg.Signing.KeyPassphrase,
			})
			if err := o.Initialize(cmd.Context()); err != nil {
				return err
			}

			signed, codeNumber, format, err := signFile(o, data, asXML, code)
			if err != nil {
				return err
			}
			out := signed
			if submission {
				req := myinvois.NewSubmissionRequest(myinvois.BuildSubmission(signed, codeNumber, format))
				if out, err = json.MarshalIndent(req, "", "  "); err != nil {
					return err
				}
			}
			if outPath != "" {
				return os.WriteFile(outPath, out, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		},
	}
	cmd.Flags().BoolVar(&asXML, "xml", false, "el archivo es UBL en XML")
	cmd.Flags().StringVar(&code, "code", "", "número del documento (obligatorio con --xml)")
	cmd.Flags().BoolVar(&submission, "submission", false, "escribir el payload de envío en vez del documento")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "archivo de salida")
	return cmd
}

// signFile devuelve el documento firmado, su número y el formato de envío.
func signFile(o *signer.Orchestrator, data []byte, asXML bool, code string) ([]byte, string, string, error) {
	if asXML {
		if code == "" {
			return nil, "", "", fmt.Errorf("--code es obligatorio con --xml")
		}
		signed, _, err := o.SignXML(data)
		return signed, code, catalog.FormatXML, err
	}
	raw, err := document.ParseRaw(data)
	if err != nil {
		return nil, "", "", err
	}
	signed, err := o.Sign(raw)
	if err != nil {
		return nil, "", "", err
	}
	out, err := signed.MarshalJSON()
	if err != nil {
		return nil, "", "", err
	}
	if code == "" {
		code = raw.Identifier()
	}
	return out, code, catalog.FormatJSON, nil
}
