package signer

import (
	"errors"
	"fmt"
	"time"
)

// Errores de firma. Ninguno se reintenta: son problemas de configuración o de entrada.
var (
	ErrParse              = errors.New("signer: PEM o certificado malformado")
	ErrChainBroken        = errors.New("signer: cadena de certificados rota")
	ErrExpiredCertificate = errors.New("signer: certificado fuera de vigencia")
	ErrMissingCertificate = errors.New("signer: falta certificado en la cadena")
	ErrPassphrase         = errors.New("signer: no se pudo descifrar la llave privada")
	ErrNotInitialized     = errors.New("signer: firmador no inicializado")
	ErrDigest             = errors.New("signer: error calculando digest")
	ErrSign               = errors.New("signer: error firmando")
	ErrKeyMismatch        = errors.New("signer: la llave no corresponde al certificado firmante")
)

// ChainBrokenError el emisor del certificado Index no coincide con el sujeto del certificado Next.
type ChainBrokenError struct {
	Index   int
	Next    int
	Issuer  string // emisor normalizado de Index
	Subject string // sujeto normalizado de Next
}

func (e *ChainBrokenError) Error() string {
	return fmt.Sprintf("signer: cadena rota entre el certificado %d y %d (emisor %q, sujeto %q)", e.Index, e.Next, e.Issuer, e.Subject)
}

func (e *ChainBrokenError) Unwrap() error { return ErrChainBroken }

// ExpiredCertificateError la ventana de vigencia del certificado Index no contiene At.
type ExpiredCertificateError struct {
	Index     int
	Subject   string
	NotBefore time.Time
	NotAfter  time.Time
	At        time.Time
}

func (e *ExpiredCertificateError) Error() string {
	return fmt.Sprintf("signer: certificado %d (%s) no vigente en %s (válido %s a %s)",
		e.Index, e.Subject, e.At.UTC().Format(time.RFC3339),
		e.NotBefore.UTC().Format(time.RFC3339), e.NotAfter.UTC().Format(time.RFC3339))
}

func (e *ExpiredCertificateError) Unwrap() error { return ErrExpiredCertificate }
