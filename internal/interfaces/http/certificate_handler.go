package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/myinvois-signer/internal/application/signing"
)

// CertificateHandler expone la vigencia de la cadena de firma.
type CertificateHandler struct {
	uc *signing.CertificateUseCase
}

// NewCertificateHandler construye el handler.
func NewCertificateHandler(uc *signing.CertificateUseCase) *CertificateHandler {
	return &CertificateHandler{uc: uc}
}

// Details GET /api/certificates
func (h *CertificateHandler) Details(c *fiber.Ctx) error {
	out, err := h.uc.Details(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
