// Carga de la llave privada de firma (PEM cifrado o PKCS#12).

package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/pkcs12"
)

// SigningKey llave RSA de firma. Opaca: sólo expone la operación de firmar.
type SigningKey struct {
	priv *rsa.PrivateKey
}

// LoadSigningKey descifra una llave privada PEM con su passphrase. Acepta
// "ENCRYPTED PRIVATE KEY" (PKCS#8 PBES2) y bloques legacy con Proc-Type 4,ENCRYPTED
// (PKCS#1 o PKCS#8 adentro). Cualquier fallo devuelve ErrPassphrase sin causa:
// no se distingue entre passphrase incorrecta y archivo corrupto.
func LoadSigningKey(blob []byte, passphrase string) (*SigningKey, error) {
	if passphrase == "" {
		return nil, ErrPassphrase
	}
	block := findKeyBlock(blob)
	if block == nil {
		return nil, ErrPassphrase
	}

	var priv *rsa.PrivateKey
	switch {
	case block.Type == "ENCRYPTED PRIVATE KEY":
		k, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, ErrPassphrase
		}
		priv = k
	//nolint:staticcheck // los certificados LHDN suelen entregarse con cifrado PEM legacy
	case x509.IsEncryptedPEMBlock(block):
		//nolint:staticcheck
		der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, ErrPassphrase
		}
		k, err := parseRSAKey(der)
		if err != nil {
			return nil, ErrPassphrase
		}
		priv = k
	default:
		// llave sin cifrar: se exige passphrase
		return nil, ErrPassphrase
	}

	if err := priv.Validate(); err != nil {
		return nil, ErrPassphrase
	}
	return &SigningKey{priv: priv}, nil
}

// LoadPKCS12 extrae llave y certificado de un .p12/.pfx. Mismas reglas que LoadSigningKey.
func LoadPKCS12(data []byte, password string) (*SigningKey, *x509.Certificate, error) {
	if password == "" {
		return nil, nil, ErrPassphrase
	}
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, nil, ErrPassphrase
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, ErrPassphrase
	}
	return &SigningKey{priv: priv}, cert, nil
}

func findKeyBlock(blob []byte) *pem.Block {
	rest := blob
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil
		}
		if strings.HasSuffix(block.Type, "PRIVATE KEY") {
			return block
		}
	}
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("llave no RSA")
	}
	return priv, nil
}

// Sign firma RSA PKCS#1 v1.5 sobre SHA-256(data).
func (k *SigningKey) Sign(data []byte) ([]byte, error) {
	if k == nil || k.priv == nil {
		return nil, ErrNotInitialized
	}
	h := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(nil, k.priv, crypto.SHA256, h[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	return sig, nil
}

// Public llave pública correspondiente.
func (k *SigningKey) Public() *rsa.PublicKey {
	if k == nil || k.priv == nil {
		return nil
	}
	return &k.priv.PublicKey
}

// Matches indica si la llave corresponde a la llave pública del certificado.
func (k *SigningKey) Matches(cert *x509.Certificate) bool {
	pub := k.Public()
	if pub == nil || cert == nil {
		return false
	}
	certPub, ok := cert.PublicKey.(*rsa.PublicKey)
	return ok && pub.Equal(certPub)
}
