package myinvois_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/myinvois-signer/pkg/myinvois"
)

func TestDescription(t *testing.T) {
	assert.Equal(t, "Invoice", myinvois.Description("01"))
	assert.Equal(t, "Self-Billed Refund Note", myinvois.Description("08"))
	assert.Equal(t, "", myinvois.Description("09"))
}

func TestPredicados(t *testing.T) {
	for _, code := range []string{"01", "02", "03", "04"} {
		assert.True(t, myinvois.IsValidDocumentType(code), code)
		assert.False(t, myinvois.IsSelfBilledDocument(code), code)
	}
	for _, code := range []string{"05", "06", "07", "08"} {
		assert.True(t, myinvois.IsSelfBilledDocument(code), code)
	}
	assert.False(t, myinvois.IsValidDocumentType("00"))
	assert.False(t, myinvois.IsValidDocumentType(""))

	assert.True(t, myinvois.IsCreditNote("02"))
	assert.True(t, myinvois.IsDebitNote("07"))
	assert.True(t, myinvois.IsRefundNote("04"))
}

func TestRequiresBillingReference(t *testing.T) {
	for _, code := range []string{"02", "03", "04", "06", "07", "08"} {
		assert.True(t, myinvois.RequiresBillingReference(code), code)
	}
	for _, code := range []string{"01", "05", "", "99"} {
		assert.False(t, myinvois.RequiresBillingReference(code), code)
	}
}

func TestURLsFor(t *testing.T) {
	u, err := myinvois.URLsFor(" Sandbox ")
	require.NoError(t, err)
	assert.Equal(t, "https://preprod-api.myinvois.hasil.gov.my", u.Transaction)

	_, err = myinvois.URLsFor("staging")
	assert.Error(t, err)

	assert.Equal(t, "https://api.myinvois.hasil.gov.my/api/v1.0/documentsubmissions/",
		myinvois.SubmissionURL("https://api.myinvois.hasil.gov.my/"))
}
