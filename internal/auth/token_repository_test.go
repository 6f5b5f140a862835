package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newToken(userID, raw string) *RefreshToken {
	return &RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

// ─── Create / Get ────────────────────────────────────────────────────

func TestTokenRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "tokenuser", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	token := newToken(user.ID, "raw-refresh-token")
	token.DeviceInfo = "Chrome on macOS"

	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if token.ID == "" || token.FamilyID == "" {
		t.Fatalf("Create() left ID=%q FamilyID=%q", token.ID, token.FamilyID)
	}

	got, err := repo.GetByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID != user.ID || got.DeviceInfo != "Chrome on macOS" || got.Revoked {
		t.Errorf("GetByID() = %+v", got)
	}

	byHash, err := repo.GetByTokenHash(ctx, HashToken("raw-refresh-token"))
	if err != nil {
		t.Fatalf("GetByTokenHash() error = %v", err)
	}
	if byHash.ID != token.ID {
		t.Errorf("GetByTokenHash() ID = %q, want %q", byHash.ID, token.ID)
	}

	if _, err := repo.GetByTokenHash(ctx, HashToken("unknown")); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("GetByTokenHash(unknown) error = %v, want ErrTokenInvalid", err)
	}
}

// ─── Revocation ──────────────────────────────────────────────────────

func TestTokenRepository_Revoke(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "revokeuser", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	token := newToken(user.ID, "revoke-me")
	repo.Create(ctx, token) //nolint:errcheck // test setup

	if err := repo.Revoke(ctx, token.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, token.ID)
	if !got.Revoked {
		t.Error("token still active after Revoke()")
	}
}

func TestTokenRepository_RevokeFamily(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "familyuser", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	t1 := newToken(user.ID, "family-token-1")
	t1.FamilyID = "fam-a"
	t2 := newToken(user.ID, "family-token-2")
	t2.FamilyID = "fam-a"
	t3 := newToken(user.ID, "other-token")
	t3.FamilyID = "fam-b"

	for _, tk := range []*RefreshToken{t1, t2, t3} {
		repo.Create(ctx, tk) //nolint:errcheck // test setup
	}

	if err := repo.RevokeFamily(ctx, "fam-a"); err != nil {
		t.Fatalf("RevokeFamily() error = %v", err)
	}

	got1, _ := repo.GetByID(ctx, t1.ID)
	got2, _ := repo.GetByID(ctx, t2.ID)
	got3, _ := repo.GetByID(ctx, t3.ID)
	if !got1.Revoked || !got2.Revoked {
		t.Error("family members survived RevokeFamily()")
	}
	if got3.Revoked {
		t.Error("RevokeFamily() crossed family boundaries")
	}
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "revokeall", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		repo.Create(ctx, newToken(user.ID, fmt.Sprintf("token-%d", i))) //nolint:errcheck // test setup
	}

	if err := repo.RevokeAllForUser(ctx, user.ID); err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}

	active, _ := repo.ListActiveByUser(ctx, user.ID)
	if len(active) != 0 {
		t.Errorf("ListActiveByUser() = %d tokens after RevokeAll, want 0", len(active))
	}
}

// ─── Rotation ────────────────────────────────────────────────────────

func TestTokenRepository_RotateRefreshToken(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "rotate", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	old := newToken(user.ID, "generation-one")
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	next := newToken(user.ID, "generation-two")
	next.FamilyID = old.FamilyID
	if err := repo.RotateRefreshToken(ctx, old.ID, next); err != nil {
		t.Fatalf("RotateRefreshToken() error = %v", err)
	}

	gotOld, _ := repo.GetByID(ctx, old.ID)
	if !gotOld.Revoked {
		t.Error("consumed token still active after rotation")
	}

	gotNext, err := repo.GetByID(ctx, next.ID)
	if err != nil {
		t.Fatalf("GetByID(next) error = %v", err)
	}
	if gotNext.Revoked {
		t.Error("rotated-in token is revoked")
	}
	if gotNext.FamilyID != old.FamilyID {
		t.Errorf("FamilyID = %q, want %q (same family)", gotNext.FamilyID, old.FamilyID)
	}
}

// ─── Active listing / cleanup ────────────────────────────────────────

func TestTokenRepository_ListActiveByUser(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "listactive", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	active := newToken(user.ID, "active-token")
	repo.Create(ctx, active) //nolint:errcheck // test setup

	expired := newToken(user.ID, "expired-token")
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	repo.Create(ctx, expired) //nolint:errcheck // test setup

	revoked := newToken(user.ID, "revoked-token")
	repo.Create(ctx, revoked)    //nolint:errcheck // test setup
	repo.Revoke(ctx, revoked.ID) //nolint:errcheck // test setup

	tokens, err := repo.ListActiveByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0].ID != active.ID {
		t.Errorf("ListActiveByUser() = %+v, want just %q", tokens, active.ID)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "cleanup", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	expired := newToken(user.ID, "old-token")
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	repo.Create(ctx, expired) //nolint:errcheck // test setup

	active := newToken(user.ID, "new-token")
	repo.Create(ctx, active) //nolint:errcheck // test setup

	count, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", count)
	}

	if _, err := repo.GetByID(ctx, active.ID); err != nil {
		t.Errorf("active token gone after cleanup: %v", err)
	}
	if _, err := repo.GetByID(ctx, expired.ID); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expired token survived cleanup: %v", err)
	}
}

// ─── Hashing ─────────────────────────────────────────────────────────

func TestHashToken(t *testing.T) {
	hash1 := HashToken("raw-token")
	hash2 := HashToken("raw-token")
	hash3 := HashToken("different-token")

	if hash1 != hash2 {
		t.Error("same input hashed differently")
	}
	if hash1 == hash3 {
		t.Error("different inputs collided")
	}
	if len(hash1) != 64 { //nolint:mnd // SHA-256 hex = 64 characters
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}
