package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/obra-stock/internal/application/dto"
	"github.com/jhoicas/obra-stock/pkg/config"
	"github.com/jhoicas/obra-stock/pkg/jwt"
)

// AuthHandler emite tokens de desarrollo. La identidad real viene de un proveedor externo;
// este endpoint solo se registra con APP_ENV=development.
type AuthHandler struct {
	cfg config.JWTConfig
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(cfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// IssueToken godoc
// @Summary      Emitir token de desarrollo
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TokenRequest  true  "user_id y nombre opcional"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/token [post]
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var in dto.TokenRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if verr := validateBody(in); verr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(verr)
	}
	token, err := jwt.Generate(h.cfg.Secret, in.UserID, in.Name, h.cfg.Issuer, h.cfg.Expiration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.TokenResponse{Token: token, ExpiresInMinutes: h.cfg.Expiration})
}
