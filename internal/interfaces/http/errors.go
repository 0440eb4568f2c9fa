package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/internal/domain"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
)

// writeError traduce errores de dominio y de firma a status HTTP.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	case errors.Is(err, signer.ErrNotInitialized):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SIGNER_UNAVAILABLE", Message: "firmador no inicializado"})
	case errors.Is(err, signer.ErrDigest), errors.Is(err, signer.ErrSign):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "SIGNING_FAILED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func unauthorized(c *fiber.Ctx) error {
	return writeError(c, domain.ErrUnauthorized)
}
