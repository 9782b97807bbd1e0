package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/agrisetu/agrisetu/internal/auth"
	"github.com/agrisetu/agrisetu/internal/identity"
)

const bearerPrefix = "Bearer "

// Protect is the session guard for protected routes. It distinguishes three
// rejection cases: no token presented, a token that fails verification, and
// a valid token whose subject no longer exists. The last case matters: a
// deleted account must not stay usable just because its token has not
// expired. On success the resolved user is attached to the request context.
func Protect(tokens *auth.TokenService, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return fiber.NewError(http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		}

		subject, err := tokens.Verify(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "Invalid token. Please log in again.")
		}

		user, err := repo.FindByID(c.UserContext(), subject)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "The user belonging to this token no longer exists.")
			}
			return err
		}

		c.Locals(auth.UserContextKey, user)
		return c.Next()
	}
}
