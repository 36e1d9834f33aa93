package newsletterapi

import (
	"crypto/subtle"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

var apiErrors = errx.NewRegistry("API")

var ErrUnauthorized = apiErrors.Register("UNAUTHORIZED", errx.TypeAuthorization, 0, "Missing or invalid service token")

// ServiceTokenAuth requires "Authorization: Bearer <token>". An empty token
// disables the check.
func ServiceTokenAuth(token string) fiber.Handler {
	expected := []byte(token)
	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			return c.Next()
		}
		scheme, got, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			return apiErrors.New(ErrUnauthorized)
		}
		return c.Next()
	}
}
