package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// Verify comprueba un bloque de firma contra los bytes canónicos del documento:
// digest del documento, certificado embebido y firma RSA con la llave pública de cert.
func Verify(cert *x509.Certificate, canonical []byte, env SignatureEnvelope) error {
	if got := Digest(canonical); got != env.DocumentDigest {
		return fmt.Errorf("%w: digest del documento %s, esperado %s", ErrDigest, env.DocumentDigest, got)
	}
	if env.Certificate.Certificate != base64.StdEncoding.EncodeToString(cert.Raw) {
		return fmt.Errorf("%w: el certificado embebido no es el firmante", ErrSign)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: el certificado no tiene llave RSA", ErrSign)
	}
	sig, err := base64.StdEncoding.DecodeString(env.SignatureValue)
	if err != nil {
		return fmt.Errorf("%w: SignatureValue no es base64: %w", ErrSign, err)
	}
	h := sha256.Sum256(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig); err != nil {
		return fmt.Errorf("%w: firma inválida: %w", ErrSign, err)
	}
	return nil
}
