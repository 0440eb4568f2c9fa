// Package signertest genera material PKI de prueba: cadena raíz -> intermedio -> firmante
// y la llave del firmante cifrada en los formatos que acepta el firmador.
package signertest

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"

	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
)

// Passphrase de las llaves cifradas generadas.
const Passphrase = "s3cret-lhdn"

// LeafSerial serial del certificado firmante (no cabe en un int64).
var LeafSerial, _ = new(big.Int).SetString("1A2B3C4D5E6F708192A3B4C5D6E7F8", 16)

// PKI material generado.
type PKI struct {
	Root, Intermediate, Leaf *x509.Certificate
	LeafKey                  *rsa.PrivateKey
	OtherKey                 *rsa.PrivateKey // llave que no corresponde a ningún certificado

	ChainPEM  []byte // firmante, intermedio, raíz
	LegacyPEM []byte // llave del firmante, PEM con Proc-Type 4,ENCRYPTED (AES-256)
	PKCS8PEM  []byte // llave del firmante, ENCRYPTED PRIVATE KEY
	NotBefore time.Time
	NotAfter  time.Time // del firmante
}

var (
	keysOnce sync.Once
	keys     [4]*rsa.PrivateKey
	keysErr  error
)

// las llaves RSA se generan una sola vez por binario de test
func rsaKeys() ([4]*rsa.PrivateKey, error) {
	keysOnce.Do(func() {
		for i := range keys {
			if keys[i], keysErr = rsa.GenerateKey(rand.Reader, 2048); keysErr != nil {
				return
			}
		}
	})
	return keys, keysErr
}

// Option ajusta la vigencia de un eslabón de la cadena.
type Option func(*validity)

type validity struct {
	rootNotAfter, interNotAfter time.Time
}

// WithRootNotAfter vencimiento de la raíz; el resto de la cadena conserva el suyo.
func WithRootNotAfter(at time.Time) Option {
	return func(v *validity) { v.rootNotAfter = at.Truncate(time.Second) }
}

// WithIntermediateNotAfter vencimiento del intermedio; el resto de la cadena conserva el suyo.
func WithIntermediateNotAfter(at time.Time) Option {
	return func(v *validity) { v.interNotAfter = at.Truncate(time.Second) }
}

// New genera la cadena vigente desde hace una hora y por un año.
func New(t testing.TB, opts ...Option) *PKI {
	t.Helper()
	ks, err := rsaKeys()
	require.NoError(t, err)
	rootKey, interKey, leafKey, otherKey := ks[0], ks[1], ks[2], ks[3]

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(365 * 24 * time.Hour)
	v := validity{rootNotAfter: notAfter, interNotAfter: notAfter}
	for _, opt := range opts {
		opt(&v)
	}

	rootTpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA", Organization: []string{"LHDN Test"}, Country: []string{"MY"}},
		NotBefore:             notBefore,
		NotAfter:              v.rootNotAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	root := issue(t, rootTpl, rootTpl, &rootKey.PublicKey, rootKey)

	interTpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:         "Test Intermediate CA",
			OrganizationalUnit: []string{"Signing"},
			Organization:       []string{"LHDN Test"},
			Country:            []string{"MY"},
		},
		NotBefore:             notBefore,
		NotAfter:              v.interNotAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	inter := issue(t, interTpl, root, &interKey.PublicKey, rootKey)

	leafTpl := &x509.Certificate{
		SerialNumber: LeafSerial,
		Subject: pkix.Name{
			CommonName:   "Proveedor Sdn Bhd",
			Organization: []string{"Proveedor Sdn Bhd"},
			Country:      []string{"MY"},
			SerialNumber: "C1234567890",
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,
		KeyUsage:  x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
	}
	leaf := issue(t, leafTpl, inter, &leafKey.PublicKey, interKey)

	var chain []byte
	for _, c := range []*x509.Certificate{leaf, inter, root} {
		chain = append(chain, CertificatePEM(c)...)
	}

	return &PKI{
		Root:         root,
		Intermediate: inter,
		Leaf:         leaf,
		LeafKey:      leafKey,
		OtherKey:     otherKey,
		ChainPEM:     chain,
		LegacyPEM:    LegacyEncryptedKey(t, leafKey, Passphrase),
		PKCS8PEM:     PKCS8EncryptedKey(t, leafKey, Passphrase),
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
}

func issue(t testing.TB, tpl, parent *x509.Certificate, pub *rsa.PublicKey, signer *rsa.PrivateKey) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tpl, parent, pub, signer)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

// CertificatePEM codifica un certificado en PEM.
func CertificatePEM(c *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
}

// LegacyEncryptedKey PKCS#1 cifrado con el esquema PEM legacy (Proc-Type 4,ENCRYPTED).
func LegacyEncryptedKey(t testing.TB, k *rsa.PrivateKey, pass string) []byte {
	t.Helper()
	//nolint:staticcheck // formato en que LHDN suele entregar las llaves
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(k), []byte(pass), x509.PEMCipherAES256)
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

// PKCS8EncryptedKey PKCS#8 PBES2 (ENCRYPTED PRIVATE KEY).
func PKCS8EncryptedKey(t testing.TB, k *rsa.PrivateKey, pass string) []byte {
	t.Helper()
	der, err := pkcs8.ConvertPrivateKeyToPKCS8(k, []byte(pass))
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
}

// Credentials credenciales en memoria con la llave legacy.
func (p *PKI) Credentials() signer.StaticCredentials {
	return signer.StaticCredentials{CertificatePEM: p.ChainPEM, KeyPEM: p.LegacyPEM, Passphrase: Passphrase}
}

// WriteFiles escribe cadena y llave en un directorio temporal y devuelve las credenciales de archivo.
func (p *PKI) WriteFiles(t testing.TB) signer.FileCredentials {
	t.Helper()
	dir := t.TempDir()
	certPath := filepath.Join(dir, "chain.pem")
	keyPath := filepath.Join(dir, "signing.key")
	require.NoError(t, os.WriteFile(certPath, p.ChainPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, p.LegacyPEM, 0o600))
	return signer.FileCredentials{CertificatePath: certPath, KeyPath: keyPath, Passphrase: Passphrase}
}

// Orchestrator orquestador inicializado con esta PKI.
func (p *PKI) Orchestrator(t testing.TB, opts ...signer.Option) *signer.Orchestrator {
	t.Helper()
	o := signer.NewOrchestrator(p.Credentials(), opts...)
	require.NoError(t, o.Initialize(context.Background()))
	return o
}
