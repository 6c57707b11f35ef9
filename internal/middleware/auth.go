// Package middleware provides HTTP middleware for the fiber application,
// including JWT authentication.
package middleware

import (
	"log/slog"
	"strings"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware validates JWT bearer tokens and attaches the user claims
// to the request context. Tokens whose version no longer matches the user
// record are rejected, which is how logout-everywhere works.
type AuthMiddleware struct {
	users     repositories.UserRepository
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthMiddleware(users repositories.UserRepository, jwtSecret string, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		m.logger.Debug("token validation failed", slog.Any("error", err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid claims"})
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}
	if user.TokenVersion != claims.TokenVersion {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token revoked"})
	}

	c.Locals("claims", claims)
	return c.Next()
}
