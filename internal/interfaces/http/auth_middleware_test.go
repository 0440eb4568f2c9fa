package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/myinvois-signer/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/myinvois-signer/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testClientID  = "erp-integrador"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testTIN       = "C1234567890"
	testIssuer    = "myinvois-signer-test"
	testExpMin    = 60
)

// buildAuthApp aplicación mínima con AuthMiddleware y un handler que devuelve los locals.
func buildAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"client_id":  apphttp.GetClientID(c),
			"company_id": apphttp.GetCompanyID(c),
			"tin":        apphttp.GetTIN(c),
		})
	})
	return app
}

// bearer genera un token válido para la empresa de prueba.
func bearer(t *testing.T) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testClientID, testCompanyID, testTIN, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

func doGet(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_TokenValidoCargaLocals(t *testing.T) {
	resp := doGet(t, buildAuthApp(), "/protected", bearer(t))
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testClientID, body["client_id"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, testTIN, body["tin"])
}

func TestAuthMiddleware_Rechazos(t *testing.T) {
	otro, err := pkgjwt.Generate("otro-secreto", testClientID, testCompanyID, testTIN, testIssuer, testExpMin)
	require.NoError(t, err)
	sinEmpresa, err := pkgjwt.Generate(testJWTSecret, testClientID, "", testTIN, testIssuer, testExpMin)
	require.NoError(t, err)
	vencido, err := pkgjwt.Generate(testJWTSecret, testClientID, testCompanyID, testTIN, testIssuer, -5)
	require.NoError(t, err)

	casos := map[string]struct {
		header string
		code   string
	}{
		"sin header":       {"", "MISSING_TOKEN"},
		"esquema distinto": {"Basic abc", "INVALID_TOKEN"},
		"otra firma":       {"Bearer " + otro, "INVALID_TOKEN"},
		"sin empresa":      {"Bearer " + sinEmpresa, "INVALID_TOKEN"},
		"vencido":          {"Bearer " + vencido, "INVALID_TOKEN"},
	}
	for nombre, c := range casos {
		t.Run(nombre, func(t *testing.T) {
			resp := doGet(t, buildAuthApp(), "/protected", c.header)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), c.code)
		})
	}
}
