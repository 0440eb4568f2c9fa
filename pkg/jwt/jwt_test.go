package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/myinvois-signer/pkg/jwt"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := pkgjwt.Generate("secreto", "erp-01", "company-1", "C1234567890", "myinvois-signer", 5)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse("secreto", tok)
	require.NoError(t, err)
	assert.Equal(t, "erp-01", claims.ClientID)
	assert.Equal(t, "company-1", claims.CompanyID)
	assert.Equal(t, "C1234567890", claims.TIN)
	assert.Equal(t, "myinvois-signer", claims.Issuer)
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := pkgjwt.Generate("secreto", "erp-01", "company-1", "", "iss", 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate("secreto", "erp-01", "company-1", "", "iss", -5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("secreto", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", "erp-01", "company-1", "", "iss", 5)
	assert.Error(t, err)
}
