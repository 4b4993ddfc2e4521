package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/payview/server/internal/database"
	"github.com/payview/server/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProfile(t *testing.T, db *sql.DB, userID, email string) *model.Profile {
	t.Helper()
	p, err := NewProfileStore(db).GetOrCreate(userID, email)
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func seedFile(t *testing.T, db *sql.DB, creatorID string, priceCents int64) *model.File {
	t.Helper()
	f, err := NewFileStore(db).Create(&model.File{
		CreatorID:  creatorID,
		Title:      "Test File",
		FileName:   "test.pdf",
		FileURL:    "https://cdn.example.com/objects/test.pdf",
		PriceCents: priceCents,
	})
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return f
}

func seedPending(t *testing.T, db *sql.DB, file *model.File, buyerID *string, sessionID string, amount, fee int64) *model.Transaction {
	t.Helper()
	txn, err := NewTransactionStore(db).Create(&model.Transaction{
		TransactionNumber:   "TXN-20260101000000-" + sessionID[len(sessionID)-4:],
		FileID:              file.ID,
		BuyerID:             buyerID,
		SellerID:            file.CreatorID,
		AmountCents:         amount,
		PlatformFeeCents:    fee,
		SellerEarningsCents: amount - fee,
		StripeSessionID:     sessionID,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return txn
}

func timePtr(v time.Time) *time.Time { return &v }
