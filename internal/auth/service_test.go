package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/agrisetu/agrisetu/internal/identity"
)

func newTestService(t *testing.T) (*Service, *identity.MemoryRepository) {
	t.Helper()
	tokens, err := NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	repo := identity.NewMemoryRepository()
	return NewService(repo, tokens), repo
}

func validSignup() SignupInput {
	return SignupInput{
		FirstName: "A",
		LastName:  "B",
		Email:     "a@x.com",
		Phone:     "9876543210",
		Password:  "Passw0rd1",
	}
}

func TestSignupCreatesUserWithoutSecret(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.User.PasswordHash != "" {
		t.Fatalf("signup result must not carry the password hash")
	}
	if res.Token == "" {
		t.Fatalf("signup must issue a token")
	}
	if res.User.ID.IsZero() {
		t.Fatalf("signup must assign an id")
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"empty first name", func(in *SignupInput) { in.FirstName = "" }},
		{"empty last name", func(in *SignupInput) { in.LastName = "" }},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"short phone", func(in *SignupInput) { in.Phone = "12345" }},
		{"alpha phone", func(in *SignupInput) { in.Phone = "98765acd10" }},
		{"short password", func(in *SignupInput) { in.Password = "Pw1" }},
		{"no uppercase", func(in *SignupInput) { in.Password = "passw0rd1" }},
		{"no lowercase", func(in *SignupInput) { in.Password = "PASSW0RD1" }},
		{"no digit", func(in *SignupInput) { in.Password = "Password!" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validSignup()
			tc.mutate(&in)
			_, err := svc.Signup(context.Background(), in)
			var fieldErrs validation.Errors
			if !errors.As(err, &fieldErrs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
		})
	}
}

func TestSignupDuplicateAttribution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	dupEmail := validSignup()
	dupEmail.Phone = "9876543211"
	if _, err := svc.Signup(ctx, dupEmail); !errors.Is(err, identity.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	dupPhone := validSignup()
	dupPhone.Email = "b@x.com"
	if _, err := svc.Signup(ctx, dupPhone); !errors.Is(err, identity.ErrDuplicatePhone) {
		t.Fatalf("expected duplicate phone, got %v", err)
	}
}

func TestLoginSuccessRecordsLastLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	res, err := svc.Login(ctx, "a@x.com", "Passw0rd1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.PasswordHash != "" {
		t.Fatalf("login result must not carry the password hash")
	}
	if res.Token == "" {
		t.Fatalf("login must issue a token")
	}

	stored, err := repo.FindByID(ctx, created.User.ID.Hex())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.LastLogin == nil {
		t.Fatalf("login must record the last-login timestamp")
	}

	// The narrow update path must not have disturbed the stored hash.
	withSecret, err := repo.FindByEmail(ctx, "a@x.com", true)
	if err != nil {
		t.Fatalf("find with secret: %v", err)
	}
	if !CheckPassword("Passw0rd1", withSecret.PasswordHash) {
		t.Fatalf("stored hash no longer verifies after last-login update")
	}
}

func TestLoginGenericFailureMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "Passw0rd1")
	_, wrongErr := svc.Login(ctx, "a@x.com", "WrongPass1")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongErr)
	}
	// Byte-identical failures: account enumeration must be impossible.
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginMissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "", "Passw0rd1"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("missing email: expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@x.com", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("missing password: expected ErrMissingCredentials, got %v", err)
	}
}

func TestTokenSubjectResolvesUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	subject, err := svc.tokens.Verify(created.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	user, err := repo.FindByID(ctx, subject)
	if err != nil {
		t.Fatalf("resolve subject: %v", err)
	}
	if user.Email != "a@x.com" {
		t.Fatalf("expected a@x.com, got %q", user.Email)
	}
}
