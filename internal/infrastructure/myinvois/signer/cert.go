// Carga y validación de la cadena de certificados (firmante primero, raíz al final).

package signer

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Certificate datos de un certificado de la cadena. Inmutable una vez parseado.
type Certificate struct {
	Subject      string // DN RFC 2253
	Issuer       string // DN RFC 2253
	SerialNumber string // decimal
	SerialHex    string // hexadecimal en mayúsculas
	NotBefore    time.Time
	NotAfter     time.Time
	raw          []byte
}

// Raw devuelve una copia del DER.
func (c Certificate) Raw() []byte {
	out := make([]byte, len(c.raw))
	copy(out, c.raw)
	return out
}

// ValidAt indica si at cae dentro de [NotBefore, NotAfter].
func (c Certificate) ValidAt(at time.Time) bool {
	return !at.Before(c.NotBefore) && !at.After(c.NotAfter)
}

// CertificateDigest devuelve el SHA-256 del DER en base64.
func CertificateDigest(c Certificate) string {
	h := sha256.Sum256(c.raw)
	return base64.StdEncoding.EncodeToString(h[:])
}

// CertificateMetadata datos del certificado firmante que viajan en KeyInfo.
type CertificateMetadata struct {
	Certificate  string // DER en base64
	SubjectName  string // DN formateado CN, OU, O, C
	IssuerName   string // DN formateado CN, OU, O, C
	SerialNumber string // decimal
}

// CertificateChain cadena ordenada: índice 0 firmante, último raíz. Sólo lectura.
type CertificateChain struct {
	certs []Certificate
	leaf  *x509.Certificate
}

// LoadCertificateChain parsea y valida la cadena contra el instante actual.
func LoadCertificateChain(pemBundle []byte) (*CertificateChain, error) {
	return ParseCertificateChain(pemBundle, time.Now())
}

// ParseCertificateChain parsea todos los bloques CERTIFICATE en orden de archivo y valida
// el enlace emisor/sujeto entre vecinos y la vigencia de cada certificado en at.
// Otros tipos de bloque PEM se ignoran.
func ParseCertificateChain(pemBundle []byte, at time.Time) (*CertificateChain, error) {
	var (
		certs []Certificate
		leaf  *x509.Certificate
		rest  = pemBundle
	)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		parsed, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: certificado %d: %v", ErrParse, len(certs), err)
		}
		if leaf == nil {
			leaf = parsed
		}
		cert, err := newCertificate(parsed)
		if err != nil {
			return nil, fmt.Errorf("certificado %d: %w", len(certs), err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no se encontraron certificados en el PEM", ErrParse)
	}

	chain := &CertificateChain{certs: certs, leaf: leaf}
	if err := chain.validate(at); err != nil {
		return nil, err
	}
	return chain, nil
}

// newChainFromX509 arma una cadena desde certificados ya parseados (p. ej. la hoja de un .p12).
func newChainFromX509(at time.Time, parsed ...*x509.Certificate) (*CertificateChain, error) {
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: cadena vacía", ErrParse)
	}
	chain := &CertificateChain{leaf: parsed[0]}
	for i, p := range parsed {
		cert, err := newCertificate(p)
		if err != nil {
			return nil, fmt.Errorf("certificado %d: %w", i, err)
		}
		chain.certs = append(chain.certs, cert)
	}
	if err := chain.validate(at); err != nil {
		return nil, err
	}
	return chain, nil
}

// newCertificate el serial decimal sale del hexadecimal, la misma conversión que se aplica
// a seriales recibidos como texto.
func newCertificate(c *x509.Certificate) (Certificate, error) {
	serialHex := strings.ToUpper(c.SerialNumber.Text(16))
	serial, err := FormatSerialNumber(serialHex)
	if err != nil {
		return Certificate{}, err
	}
	raw := make([]byte, len(c.Raw))
	copy(raw, c.Raw)
	return Certificate{
		Subject:      c.Subject.String(),
		Issuer:       c.Issuer.String(),
		SerialNumber: serial,
		SerialHex:    serialHex,
		NotBefore:    c.NotBefore,
		NotAfter:     c.NotAfter,
		raw:          raw,
	}, nil
}

func (c *CertificateChain) validate(at time.Time) error {
	for i, cert := range c.certs {
		if i+1 < len(c.certs) {
			issuer := NormalizeDN(cert.Issuer)
			subject := NormalizeDN(c.certs[i+1].Subject)
			if issuer != subject {
				return &ChainBrokenError{Index: i, Next: i + 1, Issuer: issuer, Subject: subject}
			}
		}
		if !cert.ValidAt(at) {
			return &ExpiredCertificateError{
				Index:     i,
				Subject:   cert.Subject,
				NotBefore: cert.NotBefore,
				NotAfter:  cert.NotAfter,
				At:        at,
			}
		}
	}
	return nil
}

// Len número de certificados.
func (c *CertificateChain) Len() int { return len(c.certs) }

// Certificates copia de la cadena completa.
func (c *CertificateChain) Certificates() []Certificate {
	out := make([]Certificate, len(c.certs))
	copy(out, c.certs)
	return out
}

// SigningCertificate certificado firmante (índice 0).
func (c *CertificateChain) SigningCertificate() Certificate { return c.certs[0] }

// IntermediateCertificate certificado intermedio (índice 1).
func (c *CertificateChain) IntermediateCertificate() (Certificate, error) {
	if len(c.certs) < 2 {
		return Certificate{}, fmt.Errorf("%w: intermedio (la cadena tiene %d)", ErrMissingCertificate, len(c.certs))
	}
	return c.certs[1], nil
}

// RootCertificate último certificado de la cadena.
func (c *CertificateChain) RootCertificate() Certificate { return c.certs[len(c.certs)-1] }

// X509 certificado firmante parseado, para verificar firmas. No debe modificarse.
func (c *CertificateChain) X509() *x509.Certificate { return c.leaf }

// Metadata bloque KeyInfo del certificado firmante.
func (c *CertificateChain) Metadata() CertificateMetadata {
	leaf := c.SigningCertificate()
	return CertificateMetadata{
		Certificate:  base64.StdEncoding.EncodeToString(leaf.raw),
		SubjectName:  FormatDistinguishedName(leaf.Subject),
		IssuerName:   FormatDistinguishedName(leaf.Issuer),
		SerialNumber: leaf.SerialNumber,
	}
}

// ─── Detalle de la cadena ────────────────────────────────────────────────────

// CertificateInfo resumen de vigencia de un certificado.
type CertificateInfo struct {
	Subject         string
	Issuer          string
	SerialNumber    string
	ValidFrom       time.Time
	ValidTo         time.Time
	DaysUntilExpiry int
	Valid           bool
}

// ChainDetails resumen por rol. Intermediate es nil si la cadena tiene un solo certificado.
type ChainDetails struct {
	Length       int
	Signing      CertificateInfo
	Intermediate *CertificateInfo
	Root         CertificateInfo
}

// Info resumen del certificado respecto de now; los días se redondean hacia arriba.
func (c Certificate) Info(now time.Time) CertificateInfo {
	days := int(math.Ceil(c.NotAfter.Sub(now).Hours() / 24))
	return CertificateInfo{
		Subject:         c.Subject,
		Issuer:          c.Issuer,
		SerialNumber:    c.SerialNumber,
		ValidFrom:       c.NotBefore,
		ValidTo:         c.NotAfter,
		DaysUntilExpiry: days,
		Valid:           c.ValidAt(now),
	}
}

// Details resumen de firmante, intermedio y raíz.
func (c *CertificateChain) Details(now time.Time) ChainDetails {
	d := ChainDetails{
		Length:  len(c.certs),
		Signing: c.SigningCertificate().Info(now),
		Root:    c.RootCertificate().Info(now),
	}
	if inter, err := c.IntermediateCertificate(); err == nil {
		info := inter.Info(now)
		d.Intermediate = &info
	}
	return d
}

// ─── Nombres distinguidos y seriales ─────────────────────────────────────────

// splitDN separa componentes por comas no escapadas (y saltos de línea si lines=true),
// recorta espacios y descarta vacíos.
func splitDN(dn string, lines bool) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			parts = append(parts, p)
		}
		current.Reset()
	}
	for _, r := range dn {
		switch {
		case escaped:
			escaped = false
			current.WriteRune(r)
		case r == '\\':
			escaped = true
			current.WriteRune(r)
		case r == ',' || (lines && r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return parts
}

// splitAttr separa clave y valor en el primer '='.
func splitAttr(part string) (key, value string) {
	k, v, _ := strings.Cut(part, "=")
	return strings.TrimSpace(k), strings.TrimSpace(v)
}

// NormalizeDN forma comparable de un DN: componentes recortados, clave en mayúsculas
// (sin depender del locale), valor intacto, ordenados y unidos por ",".
func NormalizeDN(dn string) string {
	upper := cases.Upper(language.Und)
	parts := splitDN(dn, false)
	for i, p := range parts {
		k, v := splitAttr(p)
		if !strings.Contains(p, "=") {
			parts[i] = upper.String(k)
			continue
		}
		parts[i] = upper.String(k) + "=" + v
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// dnDisplayOrder orden de atributos que espera LHDN en X509IssuerName / X509SubjectName.
var dnDisplayOrder = []string{"CN", "OU", "O", "C"}

// FormatDistinguishedName formatea el DN en orden CN, OU, O, C separado por ", ".
// Los demás atributos se descartan; si uno se repite gana el último.
func FormatDistinguishedName(dn string) string {
	upper := cases.Upper(language.Und)
	attrs := make(map[string]string)
	for _, p := range splitDN(dn, true) {
		k, v := splitAttr(p)
		attrs[upper.String(k)] = v
	}
	out := make([]string, 0, len(dnDisplayOrder))
	for _, k := range dnDisplayOrder {
		if v, ok := attrs[k]; ok {
			out = append(out, k+"="+v)
		}
	}
	return strings.Join(out, ", ")
}

// FormatSerialNumber convierte un serial hexadecimal (con o sin ":" y espacios) a decimal.
func FormatSerialNumber(hexSerial string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if r == ':' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, hexSerial)
	if clean == "" || clean[0] == '+' || clean[0] == '-' {
		return "", fmt.Errorf("%w: serial hexadecimal inválido %q", ErrParse, hexSerial)
	}
	n, ok := new(big.Int).SetString(clean, 16)
	if !ok {
		return "", fmt.Errorf("%w: serial hexadecimal inválido %q", ErrParse, hexSerial)
	}
	return n.String(), nil
}
