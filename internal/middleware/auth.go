package middleware

import (
	"strings"

	"movienight-backend/internal/models"
	"movienight-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userLocalKey = "auth.user"

// JWTAuth validates a Bearer token signed with HS256 and stashes the
// identity claims in request locals. Token issuance belongs to the external
// auth provider; this only verifies what it minted.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing bearer token")
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid claims")
		}

		user := &models.User{
			ID:    claimString(claims, "sub"),
			Name:  claimString(claims, "name"),
			Image: claimString(claims, "picture"),
			Role:  claimString(claims, "role"),
		}
		if user.ID == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Token has no subject")
		}
		if user.Role == "" {
			user.Role = models.RoleUser
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// RequireAdmin rejects non-admin identities. Must run after JWTAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentUser(c).IsAdmin() {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin access required")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated identity, or nil on public routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
