package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seed() User {
	return User{
		FirstName:    "A",
		LastName:     "B",
		Email:        "a@x.com",
		Phone:        "9876543210",
		PasswordHash: "$2a$10$fakehash",
	}
}

func TestMemoryCreateEnforcesUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, seed()); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupEmail := seed()
	dupEmail.Phone = "9876543211"
	if _, err := repo.Create(ctx, dupEmail); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	dupPhone := seed()
	dupPhone.Email = "b@x.com"
	if _, err := repo.Create(ctx, dupPhone); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("expected ErrDuplicatePhone, got %v", err)
	}
}

func TestFindByEmailSecretToggle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, seed()); err != nil {
		t.Fatalf("create: %v", err)
	}

	plain, err := repo.FindByEmail(ctx, "a@x.com", false)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if plain.PasswordHash != "" {
		t.Fatalf("secret must be excluded by default")
	}

	secret, err := repo.FindByEmail(ctx, "a@x.com", true)
	if err != nil {
		t.Fatalf("find with secret: %v", err)
	}
	if secret.PasswordHash == "" {
		t.Fatalf("secret must be included when requested")
	}
}

func TestFindByEmailOrPhoneMatchesEither(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, seed()); err != nil {
		t.Fatalf("create: %v", err)
	}

	byEmail, err := repo.FindByEmailOrPhone(ctx, "a@x.com", "0000000000")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if byEmail.Email != "a@x.com" {
		t.Fatalf("unexpected user %+v", byEmail)
	}

	byPhone, err := repo.FindByEmailOrPhone(ctx, "other@x.com", "9876543210")
	if err != nil {
		t.Fatalf("by phone: %v", err)
	}
	if byPhone.Phone != "9876543210" {
		t.Fatalf("unexpected user %+v", byPhone)
	}

	if _, err := repo.FindByEmailOrPhone(ctx, "missing@x.com", "0000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateLastLoginLeavesHashAlone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, seed())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Now()
	if err := repo.UpdateLastLogin(ctx, created.ID.Hex(), at); err != nil {
		t.Fatalf("update last login: %v", err)
	}

	stored, err := repo.FindByEmail(ctx, "a@x.com", true)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.LastLogin == nil || !stored.LastLogin.Equal(at.UTC()) {
		t.Fatalf("last login not recorded: %+v", stored.LastLogin)
	}
	if stored.PasswordHash != "$2a$10$fakehash" {
		t.Fatalf("password hash changed by last-login update")
	}

	if err := repo.UpdateLastLogin(ctx, "65b000000000000000000000", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestDuplicateKeyErrorAttribution(t *testing.T) {
	phoneErr := errors.New(`write exception: write errors: [E11000 duplicate key error collection: agrisetu.users index: phone_1 dup key: { phone: "9876543210" }]`)
	if got := duplicateKeyError(phoneErr); !errors.Is(got, ErrDuplicatePhone) {
		t.Fatalf("expected phone attribution, got %v", got)
	}

	emailErr := errors.New(`write exception: write errors: [E11000 duplicate key error collection: agrisetu.users index: email_1 dup key: { email: "a@x.com" }]`)
	if got := duplicateKeyError(emailErr); !errors.Is(got, ErrDuplicateEmail) {
		t.Fatalf("expected email attribution, got %v", got)
	}
}
