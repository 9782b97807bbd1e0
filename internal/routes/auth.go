package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agrisetu/agrisetu/internal/auth"
)

// RegisterAuthRoutes wires the authentication endpoints. Signup and login
// are public; me and logout sit behind the session guard.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, guard fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", h.Signup)
	group.Post("/login", h.Login)
	group.Get("/me", guard, h.Me)
	group.Post("/logout", guard, h.Logout)
}
