package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/internal/application/signing"
)

// SigningHandler maneja la firma de documentos (protegido).
type SigningHandler struct {
	uc *signing.SignDocumentUseCase
}

// NewSigningHandler construye el handler.
func NewSigningHandler(uc *signing.SignDocumentUseCase) *SigningHandler {
	return &SigningHandler{uc: uc}
}

// SignInvoice firma un documento estructurado.
// POST /api/documents/sign
func (h *SigningHandler) SignInvoice(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SignInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.SignInvoice(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// SignRaw firma un documento JSON-UBL completo enviado tal cual.
// POST /api/documents/sign/raw
func (h *SigningHandler) SignRaw(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.SignRaw(c.UserContext(), companyID, c.Body())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// SignRawBatch firma un arreglo de documentos JSON-UBL (máximo 100) de forma atómica.
// POST /api/documents/sign/batch
func (h *SigningHandler) SignRawBatch(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.SignRawBatch(c.UserContext(), companyID, c.Body())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// SignXML firma un documento UBL en XML.
// POST /api/documents/sign/xml?code=INV-0001
func (h *SigningHandler) SignXML(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.SignXML(c.UserContext(), companyID, c.Query("code"), c.Body())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID devuelve un documento firmado de la empresa.
// GET /api/documents/:id
func (h *SigningHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Get(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
