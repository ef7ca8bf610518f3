package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"billing-system/internal/database/models"
)

func setupLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.RevokedToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRevokeDedupesOnToken(t *testing.T) {
	db := setupLedgerDB(t)
	signer := NewSigner("test-secret", time.Hour)
	ledger := NewLedger(db, nil, signer)
	ctx := context.Background()

	token, _, err := signer.Issue(1, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := ledger.Revoke(ctx, 1, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := ledger.Revoke(ctx, 1, token); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}

	var count int64
	if err := db.Model(&models.RevokedToken{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("revoked rows = %d, want 1", count)
	}

	revoked, err := ledger.IsRevoked(ctx, token)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}
}

func TestIsRevokedUnknownToken(t *testing.T) {
	db := setupLedgerDB(t)
	signer := NewSigner("test-secret", time.Hour)
	ledger := NewLedger(db, nil, signer)

	revoked, err := ledger.IsRevoked(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Error("unknown token reported as revoked")
	}
}

func TestSweepRemovesOnlyExpiredAndGarbage(t *testing.T) {
	db := setupLedgerDB(t)
	signer := NewSigner("test-secret", time.Hour)
	ledger := NewLedger(db, nil, signer)
	ctx := context.Background()

	valid, _, err := signer.Issue(1, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expiredSigner := NewSigner("test-secret", -time.Hour)
	expired, _, err := expiredSigner.Issue(2, "b@example.com", "staff")
	if err != nil {
		t.Fatalf("Issue expired: %v", err)
	}

	if err := ledger.Revoke(ctx, 1, valid); err != nil {
		t.Fatalf("Revoke valid: %v", err)
	}
	if err := ledger.Revoke(ctx, 2, expired); err != nil {
		t.Fatalf("Revoke expired: %v", err)
	}
	garbage := models.RevokedToken{Token: "not-a-token", UserID: 3}
	if err := db.Create(&garbage).Error; err != nil {
		t.Fatalf("insert garbage: %v", err)
	}

	removed, err := ledger.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	// The unexpired token must survive every sweep.
	revoked, err := ledger.IsRevoked(ctx, valid)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Error("sweep removed a still-valid token")
	}

	var count int64
	if err := db.Model(&models.RevokedToken{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("remaining rows = %d, want 1", count)
	}
}
