package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/internal/application/signing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SignUC        *signing.SignDocumentUseCase
	CertificateUC *signing.CertificateUseCase
	// SignerState estado del firmador para /health ("ready", "failed", ...).
	SignerState func() string
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		state := "unknown"
		if deps.SignerState != nil {
			state = deps.SignerState()
		}
		if state != "ready" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Signer: state})
		}
		return c.JSON(dto.HealthResponse{Status: "ok", Signer: state})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	documents := api.Group("/documents")
	signingHandler := NewSigningHandler(deps.SignUC)
	documents.Post("/sign", signingHandler.SignInvoice)
	documents.Post("/sign/raw", signingHandler.SignRaw)
	documents.Post("/sign/batch", signingHandler.SignRawBatch)
	documents.Post("/sign/xml", signingHandler.SignXML)
	documents.Get("/:id", signingHandler.GetByID)

	certificateHandler := NewCertificateHandler(deps.CertificateUC)
	api.Get("/certificates", certificateHandler.Details)
}
