package signer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Digest SHA-256 en base64.
func Digest(b []byte) string {
	h := sha256.Sum256(b)
	return base64.StdEncoding.EncodeToString(h[:])
}

// DigestString SHA-256 del texto UTF-8 en base64.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// HexDigest SHA-256 en hexadecimal minúscula (documentHash del envío).
func HexDigest(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
