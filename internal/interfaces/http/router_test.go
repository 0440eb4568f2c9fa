package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/internal/application/signing"
	"github.com/jhoicas/myinvois-signer/internal/domain"
	"github.com/jhoicas/myinvois-signer/internal/domain/entity"
	"github.com/jhoicas/myinvois-signer/internal/domain/repository"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer/signertest"
	apphttp "github.com/jhoicas/myinvois-signer/internal/interfaces/http"
)

// memRepo repositorio en memoria para los handlers.
type memRepo struct {
	mu   sync.Mutex
	docs map[string]entity.SignedDocument
	err  error // devuelto por Create si no es nil
}

func (r *memRepo) Create(_ context.Context, d *entity.SignedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	d.ID = "doc-" + d.CodeNumber
	r.docs[d.ID] = *d
	return nil
}

func (r *memRepo) GetByID(_ context.Context, companyID, id string) (*entity.SignedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.CompanyID != companyID {
		return nil, nil
	}
	return &d, nil
}

// memTx ejecuta fn directo sobre el repositorio en memoria.
type memTx struct{ repo *memRepo }

func (tx memTx) Run(_ context.Context, fn func(repo repository.SignedDocumentRepository) error) error {
	return fn(tx.repo)
}

func buildApp(t *testing.T, o *signer.Orchestrator) *fiber.App {
	t.Helper()
	return buildAppWithRepo(t, o, &memRepo{docs: map[string]entity.SignedDocument{}})
}

func buildAppWithRepo(t *testing.T, o *signer.Orchestrator, repo *memRepo) *fiber.App {
	t.Helper()
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		SignUC:        signing.NewSignDocumentUseCase(o, repo, memTx{repo: repo}),
		CertificateUC: signing.NewCertificateUseCase(o),
		SignerState:   func() string { return o.State().String() },
		JWTSecret:     testJWTSecret,
	})
	return app
}

func readyApp(t *testing.T) *fiber.App {
	return buildApp(t, signertest.New(t).Orchestrator(t))
}

func doPost(t *testing.T, app *fiber.App, path, contentType, body, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

const invoiceBody = `{
	"id": "INV-0001",
	"issued_at": "2025-01-15T09:30:00+08:00",
	"type_code": "01",
	"currency": "MYR",
	"supplier": {"name": "Proveedor Sdn Bhd", "tin": "C1234567890", "registration_id": "201901234567", "registration_type": "BRN",
		"address": {"line1": "Jalan 1", "city": "Kuala Lumpur", "postal_code": "50000", "state_code": "14", "country_code": "MYS"}},
	"customer": {"name": "Cliente Sdn Bhd", "tin": "C0987654321", "registration_id": "201801234567", "registration_type": "BRN",
		"address": {"line1": "Jalan 2", "city": "Shah Alam", "postal_code": "40000", "state_code": "10", "country_code": "MYS"}},
	"tax_total": {"tax_amount": "6.00"},
	"totals": {"payable": "106.00"},
	"lines": [{"quantity": "1", "unit_code": "C62", "unit_price": "100.00", "line_extension": "100.00",
		"tax": {"taxable_amount": "100.00", "tax_amount": "6.00", "percent": "6", "tax_type": "01"},
		"description": "Servicio", "classification_code": "022"}]
}`

const xmlBody = `<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"><cbc:ID>XML-1</cbc:ID><cac:AccountingSupplierParty/></Invoice>`

// ─── Health ─────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	resp := doGet(t, readyApp(t), "/health", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dto.HealthResponse{Status: "ok", Signer: "ready"}, decode[dto.HealthResponse](t, resp))

	resp = doGet(t, buildApp(t, signer.NewOrchestrator(signer.StaticCredentials{})), "/health", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unloaded", decode[dto.HealthResponse](t, resp).Signer)
}

// ─── Documentos ─────────────────────────────────────────────────────────────

func TestSignInvoice_CreaYConsulta(t *testing.T) {
	app := readyApp(t)

	resp := doPost(t, app, "/api/documents/sign", fiber.MIMEApplicationJSON, invoiceBody, bearer(t))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.SignedDocumentResponse](t, resp)
	assert.Equal(t, "INV-0001", created.CodeNumber)
	assert.Equal(t, "JSON", created.Submission.Format)
	assert.True(t, bytes.Contains(created.Document, []byte(`"UBLExtensions"`)))

	resp = doGet(t, app, "/api/documents/"+created.ID, bearer(t))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[dto.SignedDocumentResponse](t, resp)
	assert.Equal(t, created.DocumentDigest, got.DocumentDigest)

	resp = doGet(t, app, "/api/documents/no-existe", bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignInvoice_EntradaInvalida(t *testing.T) {
	app := readyApp(t)

	resp := doPost(t, app, "/api/documents/sign", fiber.MIMEApplicationJSON, `{"id":"X","type_code":"99"}`, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp).Code)

	resp = doPost(t, app, "/api/documents/sign", fiber.MIMEApplicationJSON, `{"id":`, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decode[dto.ErrorResponse](t, resp).Code)
}

func TestSignRaw(t *testing.T) {
	app := readyApp(t)
	raw := `{"_D":"urn:oasis:names:specification:ubl:schema:xsd:Invoice-2","Invoice":[{"ID":[{"_":"RAW-1"}],"InvoiceTypeCode":[{"_":"01","listVersionID":"1.1"}]}]}`

	resp := doPost(t, app, "/api/documents/sign/raw", fiber.MIMEApplicationJSON, raw, bearer(t))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "RAW-1", decode[dto.SignedDocumentResponse](t, resp).CodeNumber)

	resp = doPost(t, app, "/api/documents/sign/raw", fiber.MIMEApplicationJSON, `[]`, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignRawBatch(t *testing.T) {
	app := readyApp(t)
	batch := `[{"Invoice":[{"ID":[{"_":"B-1"}]}]},{"Invoice":[{"ID":[{"_":"B-2"}]}]}]`

	resp := doPost(t, app, "/api/documents/sign/batch", fiber.MIMEApplicationJSON, batch, bearer(t))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.BatchSignResponse](t, resp)
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "B-2", out.Documents[1].CodeNumber)
	require.Len(t, out.Submission.Documents, 2)
	assert.Equal(t, "B-1", out.Submission.Documents[0].CodeNumber)

	resp = doGet(t, app, "/api/documents/"+out.Documents[0].ID, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doPost(t, app, "/api/documents/sign/batch", fiber.MIMEApplicationJSON, `{}`, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignXML(t *testing.T) {
	app := readyApp(t)

	resp := doPost(t, app, "/api/documents/sign/xml?code=XML-1", fiber.MIMEApplicationXML, xmlBody, bearer(t))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.SignedDocumentResponse](t, resp)
	assert.Equal(t, "XML", out.Format)
	assert.Contains(t, out.XML, "<ds:SignatureValue>")

	resp = doPost(t, app, "/api/documents/sign/xml", fiber.MIMEApplicationXML, xmlBody, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "falta code")
}

func TestSign_FirmadorNoInicializado(t *testing.T) {
	app := buildApp(t, signer.NewOrchestrator(signer.StaticCredentials{}))

	resp := doPost(t, app, "/api/documents/sign", fiber.MIMEApplicationJSON, invoiceBody, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SIGNER_UNAVAILABLE", decode[dto.ErrorResponse](t, resp).Code)
}

func TestSign_RegistroDuplicado(t *testing.T) {
	repo := &memRepo{
		docs: map[string]entity.SignedDocument{},
		err:  fmt.Errorf("postgres: documento firmado doc-1: %w", domain.ErrDuplicate),
	}
	app := buildAppWithRepo(t, signertest.New(t).Orchestrator(t), repo)

	resp := doPost(t, app, "/api/documents/sign", fiber.MIMEApplicationJSON, invoiceBody, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decode[dto.ErrorResponse](t, resp).Code)

	resp = doPost(t, app, "/api/documents/sign/batch", fiber.MIMEApplicationJSON, `[{"Invoice":[{"ID":[{"_":"B-1"}]}]}]`, bearer(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "también dentro de la transacción del lote")
}

func TestDocumentos_RequierenToken(t *testing.T) {
	resp := doPost(t, readyApp(t), "/api/documents/sign", fiber.MIMEApplicationJSON, invoiceBody, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─── Certificados ───────────────────────────────────────────────────────────

func TestCertificates(t *testing.T) {
	resp := doGet(t, readyApp(t), "/api/certificates", bearer(t))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[dto.CertificateDetailsResponse](t, resp)
	assert.Equal(t, 3, out.Length)
	assert.NotNil(t, out.Intermediate)
	assert.True(t, out.Signing.Valid)
}
