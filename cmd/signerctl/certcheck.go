package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/myinvois-signer/internal/domain/document"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
)

func newCertCheckCmd() *cobra.Command {
	var certPath, keyPath, p12Path string
	cmd := &cobra.Command{
		Use:   "certcheck",
		Short: "Verifica cadena de certificados y llave privada",
		Long: `Carga la cadena y la llave paso a paso e imprime la vigencia de cada
certificado, o el paso que falla.

Las rutas salen de la configuración; los flags las reemplazan.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			src := signer.FileCredentials{
				CertificatePath: orDefault(certPath, cfg.Signing.CertPath),
				KeyPath:         orDefault(keyPath, cfg.Signing.KeyPath),
				PKCS12Path:      orDefault(p12Path, cfg.Signing.P12Path),
				Passphrase:      cfg.Signing.KeyPassphrase,
			}
			return runCertCheck(cmd, src, time.Now())
		},
	}
	cmd.Flags().StringVar(&certPath, "cert", "", "PEM con la cadena (firmante primero)")
	cmd.Flags().StringVar(&keyPath, "key", "", "llave privada PEM cifrada")
	cmd.Flags().StringVar(&p12Path, "p12", "", "archivo PKCS#12")
	return cmd
}

func runCertCheck(cmd *cobra.Command, src signer.FileCredentials, now time.Time) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔍 DIAGNÓSTICO DE CERTIFICADO MYINVOIS")
	fmt.Fprintln(out, "--------------------------------------")

	creds, err := src.Credentials(cmd.Context())
	if err != nil {
		return fmt.Errorf("lectura de archivos: %w", err)
	}
	fmt.Fprintf(out, "✅ Archivos leídos (cadena: %d bytes, llave: %d bytes, p12: %d bytes)\n",
		len(creds.CertificatePEM), len(creds.KeyPEM), len(creds.PKCS12))

	if len(creds.CertificatePEM) > 0 {
		chain, err := signer.ParseCertificateChain(creds.CertificatePEM, now)
		if err != nil {
			return fmt.Errorf("cadena de certificados: %w", err)
		}
		fmt.Fprintf(out, "✅ Cadena válida: %d certificados\n", chain.Len())
	}

	o := signer.NewOrchestrator(signer.StaticCredentials(creds), signer.WithClock(func() time.Time { return now }))
	if err := o.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("llave privada: %w", err)
	}
	fmt.Fprintln(out, "✅ Llave descifrada y corresponde al certificado firmante")

	if err := probeSignature(o); err != nil {
		return fmt.Errorf("firma de prueba: %w", err)
	}
	fmt.Fprintln(out, "✅ Firma de prueba verificada con el certificado firmante")

	details, err := o.CertificateDetails(now)
	if err != nil {
		return fmt.Errorf("detalle de la cadena: %w", err)
	}
	printInfo(out, "Firmante", details.Signing)
	if details.Intermediate != nil {
		printInfo(out, "Intermedio", *details.Intermediate)
	}
	printInfo(out, "Raíz", details.Root)

	fmt.Fprintln(out, "\n✨ El material de firma está listo.")
	return nil
}

// probeSignature firma un documento mínimo y verifica la firma con la cadena cargada.
func probeSignature(o *signer.Orchestrator) error {
	probe, err := document.ParseRaw([]byte(`{"Invoice":[{"ID":[{"_":"CERTCHECK"}]}]}`))
	if err != nil {
		return err
	}
	signed, err := o.Sign(probe)
	if err != nil {
		return err
	}
	canonical, err := signer.Canonicalize(probe)
	if err != nil {
		return err
	}
	chain, err := o.Chain()
	if err != nil {
		return err
	}
	return signer.Verify(chain.X509(), canonical, signed.Envelope)
}

func printInfo(w io.Writer, role string, c signer.CertificateInfo) {
	fmt.Fprintf(w, "\n%s\n", role)
	fmt.Fprintf(w, "   Sujeto:   %s\n", c.Subject)
	fmt.Fprintf(w, "   Emisor:   %s\n", c.Issuer)
	fmt.Fprintf(w, "   Serial:   %s\n", c.SerialNumber)
	fmt.Fprintf(w, "   Vigencia: %s → %s (%d días)\n",
		c.ValidFrom.Format(time.DateOnly), c.ValidTo.Format(time.DateOnly), c.DaysUntilExpiry)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
