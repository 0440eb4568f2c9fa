package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/myinvois-signer/internal/application/dto"
	"github.com/jhoicas/myinvois-signer/pkg/jwt"
)

// Locals keys para el cliente integrador y la empresa en Fiber.
const (
	LocalClientID  = "client_id"
	LocalCompanyID = "company_id"
	LocalTIN       = "tin"
)

// AuthMiddleware valida el Bearer Token JWT y deja ClientID, CompanyID y TIN en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil || claims.CompanyID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalClientID, claims.ClientID)
		c.Locals(LocalCompanyID, claims.CompanyID)
		c.Locals(LocalTIN, claims.TIN)
		return c.Next()
	}
}

func local(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}

// GetClientID devuelve el cliente integrador (después del middleware de auth).
func GetClientID(c *fiber.Ctx) string { return local(c, LocalClientID) }

// GetCompanyID devuelve la empresa (después del middleware de auth).
func GetCompanyID(c *fiber.Ctx) string { return local(c, LocalCompanyID) }

// GetTIN devuelve el TIN del contribuyente del token, si lo trae.
func GetTIN(c *fiber.Ctx) string { return local(c, LocalTIN) }
