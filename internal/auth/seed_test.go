package auth

import (
	"context"
	"log/slog"
	"testing"
)

func TestSeedOwner_CreatesOnEmptyDB(t *testing.T) {
	db := testDB(t)
	userRepo := NewUserRepository(db)
	ctx := context.Background()

	password, err := SeedOwner(ctx, userRepo, slog.Default())
	if err != nil {
		t.Fatalf("SeedOwner() error = %v", err)
	}
	if password == "" {
		t.Fatal("SeedOwner() returned no password on an empty database")
	}

	owner, err := userRepo.GetByUsername(ctx, "owner")
	if err != nil {
		t.Fatalf("GetByUsername(owner) error = %v", err)
	}
	if owner.Role != RoleOwner {
		t.Errorf("Role = %q, want %q", owner.Role, RoleOwner)
	}
	if !owner.IsActive {
		t.Error("seed owner is inactive")
	}

	// The returned password must match the stored hash.
	ok, err := VerifyPassword(password, owner.PasswordHash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("generated password does not verify against the stored hash")
	}
}

func TestSeedOwner_SkipsWhenUsersExist(t *testing.T) {
	db := testDB(t)
	userRepo := NewUserRepository(db)
	ctx := context.Background()

	seedTestUser(t, db, "existing", RoleAdmin)

	password, err := SeedOwner(ctx, userRepo, slog.Default())
	if err != nil {
		t.Fatalf("SeedOwner() error = %v", err)
	}
	if password != "" {
		t.Error("SeedOwner() generated a password although users exist")
	}

	count, _ := userRepo.Count(ctx)
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestSeedOwner_UniquePasswords(t *testing.T) {
	ctx := context.Background()

	pw1, _ := SeedOwner(ctx, NewUserRepository(testDB(t)), slog.Default())
	pw2, _ := SeedOwner(ctx, NewUserRepository(testDB(t)), slog.Default())

	if pw1 == pw2 {
		t.Error("two installs generated the same seed password")
	}
}
