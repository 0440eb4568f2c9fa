package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer/signertest"
	"github.com/jhoicas/myinvois-signer/pkg/jwt"
	catalog "github.com/jhoicas/myinvois-signer/pkg/myinvois"
)

func setupEnv(t *testing.T) {
	t.Helper()
	files := signertest.New(t).WriteFiles(t)
	t.Setenv("SIGNING_CERT_PATH", files.CertificatePath)
	t.Setenv("SIGNING_KEY_PATH", files.KeyPath)
	t.Setenv("SIGNING_KEY_PASSPHRASE", files.Passphrase)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MYINVOIS_TIN", "C1234567890")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToken_EmiteTokenValido(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "--client", "erp-01", "--company", "empresa-1")
	require.NoError(t, err)

	claims, err := jwt.Parse("test-secret", string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "erp-01", claims.ClientID)
	assert.Equal(t, "empresa-1", claims.CompanyID)
	assert.Equal(t, "C1234567890", claims.TIN, "TIN por defecto desde la configuración")
}

func TestToken_FlagsObligatorios(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "token", "--client", "erp-01")
	assert.Error(t, err)
}

func TestCertCheck_MaterialValido(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "certcheck")
	require.NoError(t, err)
	assert.Contains(t, out, "Cadena válida: 3 certificados")
	assert.Contains(t, out, "corresponde al certificado firmante")
	assert.Contains(t, out, "Firma de prueba verificada")
	assert.Contains(t, out, "Intermedio")
	assert.NotContains(t, out, signertest.Passphrase)
}

func TestCertCheck_PassphraseIncorrecta(t *testing.T) {
	setupEnv(t)
	t.Setenv("SIGNING_KEY_PASSPHRASE", "otra")

	_, err := run(t, "certcheck")
	require.Error(t, err)
	assert.ErrorIs(t, err, signer.ErrPassphrase)
}

func TestSign_JSONConSubmission(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "factura.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_D":"urn:oasis:names:specification:ubl:schema:xsd:Invoice-2","Invoice":[{"ID":[{"_":"INV-0001"}],"InvoiceTypeCode":[{"_":"01","listVersionID":"1.1"}]}]}`), 0o600))

	out, err := run(t, "sign", path, "--submission")
	require.NoError(t, err)

	var req myinvois.SubmissionRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	require.Len(t, req.Documents, 1)
	doc := req.Documents[0]
	assert.Equal(t, "INV-0001", doc.CodeNumber)
	assert.Equal(t, catalog.FormatJSON, doc.Format)

	signed, err := base64.StdEncoding.DecodeString(doc.Document)
	require.NoError(t, err)
	assert.Equal(t, signer.HexDigest(signed), doc.DocumentHash)
	assert.Contains(t, string(signed), "UBLExtensions")
}

func TestSign_XMLSinCodigo(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "factura.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"/>`), 0o600))

	_, err := run(t, "sign", path, "--xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--code")
}

func TestSign_EscribeArchivo(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "factura.json")
	out := filepath.Join(dir, "firmada.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"Invoice":[{"ID":[{"_":"INV-2"}]}]}`), 0o600))

	_, err := run(t, "sign", in, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), "UBLDocumentSignatures")
}
