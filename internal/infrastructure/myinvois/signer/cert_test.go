package signer_test

import (
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer/signertest"
)

// ─── ParseCertificateChain ──────────────────────────────────────────────────

func TestParseCertificateChain_CadenaValida(t *testing.T) {
	pki := signertest.New(t)

	chain, err := signer.ParseCertificateChain(pki.ChainPEM, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, chain.Len())

	assert.Equal(t, pki.Leaf.Raw, chain.SigningCertificate().Raw())
	inter, err := chain.IntermediateCertificate()
	require.NoError(t, err)
	assert.Equal(t, pki.Intermediate.Raw, inter.Raw())
	assert.Equal(t, pki.Root.Raw, chain.RootCertificate().Raw())
	assert.Equal(t, pki.Leaf.Raw, chain.X509().Raw)
}

func TestParseCertificateChain_IgnoraBloquesNoCertificado(t *testing.T) {
	pki := signertest.New(t)
	bundle := append([]byte("texto libre\n"), pki.LegacyPEM...)
	bundle = append(bundle, pki.ChainPEM...)

	chain, err := signer.ParseCertificateChain(bundle, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, chain.Len())
}

func TestParseCertificateChain_SinCertificados(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("no es PEM"), signertest.New(t).LegacyPEM} {
		_, err := signer.ParseCertificateChain(in, time.Now())
		assert.True(t, errors.Is(err, signer.ErrParse), "entrada %q", in)
	}
}

func TestParseCertificateChain_DERInvalido(t *testing.T) {
	bad := []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n")
	_, err := signer.ParseCertificateChain(bad, time.Now())
	assert.True(t, errors.Is(err, signer.ErrParse))
}

func TestParseCertificateChain_CadenaRota(t *testing.T) {
	pki := signertest.New(t)
	bundle := append(signertest.CertificatePEM(pki.Leaf), signertest.CertificatePEM(pki.Root)...)

	_, err := signer.ParseCertificateChain(bundle, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, signer.ErrChainBroken))

	var broken *signer.ChainBrokenError
	require.True(t, errors.As(err, &broken))
	assert.Equal(t, 0, broken.Index)
	assert.Equal(t, 1, broken.Next)
}

func TestParseCertificateChain_FueraDeVigencia(t *testing.T) {
	pki := signertest.New(t)

	for _, at := range []time.Time{pki.NotAfter.Add(time.Second), pki.NotBefore.Add(-time.Second)} {
		_, err := signer.ParseCertificateChain(pki.ChainPEM, at)
		require.Error(t, err)
		assert.True(t, errors.Is(err, signer.ErrExpiredCertificate))

		var expired *signer.ExpiredCertificateError
		require.True(t, errors.As(err, &expired))
		assert.Equal(t, 0, expired.Index)
		assert.Equal(t, at, expired.At)
	}
}

func TestParseCertificateChain_VigenciaPorEslabon(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		opt   signertest.Option
		index int
	}{
		{"intermedio vencido", signertest.WithIntermediateNotAfter(now.Add(-time.Minute)), 1},
		{"raíz vencida", signertest.WithRootNotAfter(now.Add(-time.Minute)), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pki := signertest.New(t, tc.opt)
			require.True(t, pki.Leaf.NotAfter.After(now), "el firmante sigue vigente")

			_, err := signer.ParseCertificateChain(pki.ChainPEM, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, signer.ErrExpiredCertificate))

			var expired *signer.ExpiredCertificateError
			require.True(t, errors.As(err, &expired))
			assert.Equal(t, tc.index, expired.Index)
			parsed := []*x509.Certificate{pki.Leaf, pki.Intermediate, pki.Root}
			assert.Equal(t, parsed[tc.index].Subject.String(), expired.Subject)
		})
	}
}

func TestParseCertificateChain_UnSoloCertificado(t *testing.T) {
	pki := signertest.New(t)

	chain, err := signer.ParseCertificateChain(signertest.CertificatePEM(pki.Leaf), time.Now())
	require.NoError(t, err)
	assert.Equal(t, chain.SigningCertificate(), chain.RootCertificate())

	_, err = chain.IntermediateCertificate()
	assert.True(t, errors.Is(err, signer.ErrMissingCertificate))
	assert.Nil(t, chain.Details(time.Now()).Intermediate)
}

func TestCertificate_RawEsCopia(t *testing.T) {
	pki := signertest.New(t)
	chain, err := signer.ParseCertificateChain(pki.ChainPEM, time.Now())
	require.NoError(t, err)

	raw := chain.SigningCertificate().Raw()
	raw[0] ^= 0xFF
	assert.Equal(t, pki.Leaf.Raw, chain.SigningCertificate().Raw())

	certs := chain.Certificates()
	certs[0] = certs[2]
	assert.Equal(t, pki.Leaf.Raw, chain.SigningCertificate().Raw())
}

func TestCertificateChain_Metadata(t *testing.T) {
	pki := signertest.New(t)
	chain, err := signer.ParseCertificateChain(pki.ChainPEM, time.Now())
	require.NoError(t, err)

	meta := chain.Metadata()
	assert.Equal(t, "CN=Proveedor Sdn Bhd, O=Proveedor Sdn Bhd, C=MY", meta.SubjectName)
	assert.Equal(t, "CN=Test Intermediate CA, OU=Signing, O=LHDN Test, C=MY", meta.IssuerName)
	assert.Equal(t, signertest.LeafSerial.String(), meta.SerialNumber)

	fromHex, err := signer.FormatSerialNumber(chain.SigningCertificate().SerialHex)
	require.NoError(t, err)
	assert.Equal(t, meta.SerialNumber, fromHex)
}

func TestCertificate_SerialDecimalDesdeHex(t *testing.T) {
	pki := signertest.New(t)
	chain, err := signer.ParseCertificateChain(pki.ChainPEM, time.Now())
	require.NoError(t, err)

	parsed := []*x509.Certificate{pki.Leaf, pki.Intermediate, pki.Root}
	for i, c := range chain.Certificates() {
		fromHex, err := signer.FormatSerialNumber(c.SerialHex)
		require.NoError(t, err)
		assert.Equal(t, fromHex, c.SerialNumber, "certificado %d", i)
		assert.Equal(t, parsed[i].SerialNumber.String(), c.SerialNumber, "certificado %d", i)
	}
	assert.Equal(t, "1A2B3C4D5E6F708192A3B4C5D6E7F8", chain.SigningCertificate().SerialHex)
}

func TestCertificateChain_Details(t *testing.T) {
	pki := signertest.New(t)
	chain, err := signer.ParseCertificateChain(pki.ChainPEM, time.Now())
	require.NoError(t, err)

	now := pki.NotAfter.Add(-36 * time.Hour)
	d := chain.Details(now)
	assert.Equal(t, 3, d.Length)
	assert.Equal(t, 2, d.Signing.DaysUntilExpiry, "se redondea hacia arriba")
	assert.True(t, d.Signing.Valid)
	require.NotNil(t, d.Intermediate)
	assert.Equal(t, pki.Intermediate.Subject.String(), d.Intermediate.Subject)

	d = chain.Details(pki.NotAfter.Add(48 * time.Hour))
	assert.False(t, d.Root.Valid)
	assert.Equal(t, -2, d.Root.DaysUntilExpiry)
}

// ─── Nombres distinguidos y seriales ─────────────────────────────────────────

func TestNormalizeDN_IndependienteDelOrden(t *testing.T) {
	a := signer.NormalizeDN("OU=X, CN=Y")
	b := signer.NormalizeDN("CN=Y, OU=X")
	assert.Equal(t, a, b)
	assert.Equal(t, "CN=Y,OU=X", a)
}

func TestNormalizeDN_Idempotente(t *testing.T) {
	dn := " cn = Mixed Case ,o=Org,  C=MY"
	once := signer.NormalizeDN(dn)
	assert.Equal(t, once, signer.NormalizeDN(once))
	assert.Equal(t, "C=MY,CN=Mixed Case,O=Org", once, "claves en mayúsculas, valores intactos")
}

func TestNormalizeDN_ComaEscapada(t *testing.T) {
	assert.Equal(t, `C=MY,O=Acme\, Sdn Bhd`, signer.NormalizeDN(`O=Acme\, Sdn Bhd,C=MY`))
}

func TestFormatDistinguishedName_OrdenLHDN(t *testing.T) {
	assert.Equal(t, "CN=Y, OU=U, O=Org, C=MY", signer.FormatDistinguishedName("C=MY,O=Org,OU=U,CN=Y,L=KL"))
	assert.Equal(t, "CN=Y, C=MY", signer.FormatDistinguishedName("C=MY\nCN=Y"))
	assert.Equal(t, "", signer.FormatDistinguishedName("L=KL"))
}

func TestFormatSerialNumber(t *testing.T) {
	casos := map[string]string{
		"1A":                             "26",
		"1A:2B":                          "6699",
		"1a 2b":                          "6699",
		"00":                             "0",
		"1A2B3C4D5E6F708192A3B4C5D6E7F8": signertest.LeafSerial.String(),
	}
	for in, want := range casos {
		got, err := signer.FormatSerialNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestFormatSerialNumber_Invalido(t *testing.T) {
	for _, in := range []string{"", " : ", "XYZ", "-1A", "0x1A"} {
		_, err := signer.FormatSerialNumber(in)
		assert.True(t, errors.Is(err, signer.ErrParse), in)
	}
}

func TestCertificateDigest(t *testing.T) {
	pki := signertest.New(t)
	chain, err := signer.ParseCertificateChain(pki.ChainPEM, time.Now())
	require.NoError(t, err)

	assert.Equal(t, signer.Digest(pki.Leaf.Raw), signer.CertificateDigest(chain.SigningCertificate()))
}
