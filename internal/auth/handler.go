package auth

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/agrisetu/agrisetu/internal/identity"
)

// UserContextKey is the Locals key under which the session guard stores the
// resolved user.
const UserContextKey = "currentUser"

// Handler exposes the signup/login/me/logout endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new user and returns the created identity with a token.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.Signup(c.UserContext(), SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		var fieldErrs validation.Errors
		switch {
		case errors.As(err, &fieldErrs):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Validation failed",
				"errors":  fieldErrs,
			})
		case errors.Is(err, identity.ErrDuplicateEmail):
			return fiber.NewError(http.StatusBadRequest, "Email already registered")
		case errors.Is(err, identity.ErrDuplicatePhone):
			return fiber.NewError(http.StatusBadRequest, "Phone number already registered")
		default:
			return err
		}
	}

	h.logger.Info("user registered", "user_id", res.User.ID.Hex())
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"data":    fiber.Map{"user": res.User, "token": res.Token},
	})
}

// Login verifies credentials and returns the identity with a fresh token.
// Unknown email and wrong password produce the identical response.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCredentials):
			return fiber.NewError(http.StatusBadRequest, "Please provide email and password")
		case errors.Is(err, ErrInvalidCredentials):
			return fiber.NewError(http.StatusUnauthorized, "Incorrect email or password")
		default:
			return err
		}
	}

	h.logger.Info("user logged in", "user_id", res.User.ID.Hex())
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data":    fiber.Map{"user": res.User, "token": res.Token},
	})
}

// Me returns the identity the session guard resolved for this request.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals(UserContextKey).(identity.User)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"user": user},
	})
}

// Logout acknowledges the request. Tokens are stateless, so there is nothing
// to revoke server-side; the client discards its copy.
func (h *Handler) Logout(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}
