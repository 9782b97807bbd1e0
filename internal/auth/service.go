package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/agrisetu/agrisetu/internal/identity"
)

var (
	// ErrMissingCredentials is returned when a login request omits the
	// email or the password.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password. Callers must surface one generic message for either
	// case so accounts cannot be enumerated through login.
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

var (
	phonePattern     = regexp.MustCompile(`^\d{10}$`)
	passwordUpper    = regexp.MustCompile(`[A-Z]`)
	passwordLower    = regexp.MustCompile(`[a-z]`)
	passwordDigit    = regexp.MustCompile(`\d`)
	passwordRuleHint = "must contain at least one uppercase letter, one lowercase letter, and one number"
)

// SignupInput is the validated shape of a registration request.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// Validate applies the registration field rules. The returned error is a
// validation.Errors map keyed by field name.
func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.LastName, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Phone, validation.Required,
			validation.Match(phonePattern).Error("must be a valid 10-digit phone number")),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 0),
			validation.Match(passwordUpper).Error(passwordRuleHint),
			validation.Match(passwordLower).Error(passwordRuleHint),
			validation.Match(passwordDigit).Error(passwordRuleHint)),
	)
}

// Result carries the outcome of a successful signup or login. User never
// includes the password hash.
type Result struct {
	User  identity.User
	Token string
}

// Service implements the signup and login protocol on top of the credential
// store, the password hasher and the token service.
type Service struct {
	repo   identity.Repository
	tokens *TokenService
}

// NewService builds an auth service.
func NewService(repo identity.Repository, tokens *TokenService) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Signup validates the input, enforces email/phone uniqueness, stores the
// user with a hashed password and issues a token.
//
// The pre-create lookup exists to attribute the collision to email or phone
// in the error message. It does not close the race with a concurrent signup;
// the store's unique indexes do, and Create surfaces that violation through
// the same duplicate errors.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	existing, err := s.repo.FindByEmailOrPhone(ctx, in.Email, in.Phone)
	switch {
	case err == nil:
		if existing.Email == in.Email {
			return Result{}, identity.ErrDuplicateEmail
		}
		return Result{}, identity.ErrDuplicatePhone
	case !errors.Is(err, identity.ErrNotFound):
		return Result{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, identity.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Result{}, err
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return Result{}, fmt.Errorf("issue token: %w", err)
	}

	user.PasswordHash = ""
	return Result{User: user, Token: token}, nil
}

// Login verifies the credentials, records the login time and issues a token.
// An unknown email and a wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	if email == "" || password == "" {
		return Result{}, ErrMissingCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("find user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return Result{}, ErrInvalidCredentials
	}

	// Last-login goes through the dedicated narrow update path; a generic
	// save here could re-hash the already-hashed password.
	if err := s.repo.UpdateLastLogin(ctx, user.ID.Hex(), time.Now()); err != nil {
		return Result{}, fmt.Errorf("update last login: %w", err)
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return Result{}, fmt.Errorf("issue token: %w", err)
	}

	user.PasswordHash = ""
	return Result{User: user, Token: token}, nil
}
