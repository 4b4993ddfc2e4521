package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/payview/server/internal/model"
)

func TestFileCreateGeneratesSlug(t *testing.T) {
	db := setupTestDB(t)
	creator := seedProfile(t, db, "user-1", "alice@example.com")
	fs := NewFileStore(db)

	f, err := fs.Create(&model.File{
		CreatorID:  creator.ID,
		Title:      "My Great Recipe!",
		FileName:   "recipe.pdf",
		FileURL:    "https://cdn.example.com/objects/recipe.pdf",
		PriceCents: 500,
	})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if !strings.HasPrefix(f.Slug, "my-great-recipe-") {
		t.Errorf("slug = %q, want my-great-recipe- prefix", f.Slug)
	}
	if f.Currency != "usd" {
		t.Errorf("currency = %q, want usd", f.Currency)
	}
	if !f.IsActive {
		t.Error("new file should be active")
	}

	got, err := fs.GetBySlug(f.Slug)
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got == nil || got.ID != f.ID {
		t.Fatalf("get by slug returned %+v, want id %q", got, f.ID)
	}
}

func TestFileCreateRejectsNegativePrice(t *testing.T) {
	db := setupTestDB(t)
	creator := seedProfile(t, db, "user-1", "alice@example.com")
	fs := NewFileStore(db)

	_, err := fs.Create(&model.File{
		CreatorID:  creator.ID,
		Title:      "Bad",
		FileName:   "bad.pdf",
		FileURL:    "https://cdn.example.com/objects/bad.pdf",
		PriceCents: -100,
	})
	if err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestFileGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFileStore(db)

	f, err := fs.GetByID("nope")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if f != nil {
		t.Error("expected nil for unknown file")
	}
}

func TestFileSetStripeRefsWriteOnce(t *testing.T) {
	db := setupTestDB(t)
	creator := seedProfile(t, db, "user-1", "alice@example.com")
	f := seedFile(t, db, creator.ID, 500)
	fs := NewFileStore(db)

	if err := fs.SetStripeRefs(f.ID, "prod_1", "price_1"); err != nil {
		t.Fatalf("set stripe refs: %v", err)
	}
	err := fs.SetStripeRefs(f.ID, "prod_2", "price_2")
	if !errors.Is(err, ErrPriceProvisioned) {
		t.Fatalf("err = %v, want ErrPriceProvisioned", err)
	}

	got, err := fs.GetByID(f.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if got.StripePriceID == nil || *got.StripePriceID != "price_1" {
		t.Errorf("stripe price id = %v, want the original price_1", got.StripePriceID)
	}
}

func TestFileDeactivate(t *testing.T) {
	db := setupTestDB(t)
	creator := seedProfile(t, db, "user-1", "alice@example.com")
	f := seedFile(t, db, creator.ID, 500)
	fs := NewFileStore(db)

	if err := fs.Deactivate(f.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := fs.GetByID(f.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if got.IsActive {
		t.Error("expected file inactive")
	}
}

func TestFileIncrementCounts(t *testing.T) {
	db := setupTestDB(t)
	creator := seedProfile(t, db, "user-1", "alice@example.com")
	f := seedFile(t, db, creator.ID, 500)
	fs := NewFileStore(db)

	if err := fs.IncrementViewCount(f.ID); err != nil {
		t.Fatalf("increment view count: %v", err)
	}
	if err := fs.IncrementViewCount(f.ID); err != nil {
		t.Fatalf("increment view count: %v", err)
	}
	if err := fs.IncrementDownloadCount(f.ID); err != nil {
		t.Fatalf("increment download count: %v", err)
	}

	got, err := fs.GetByID(f.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if got.ViewCount != 2 {
		t.Errorf("view count = %d, want 2", got.ViewCount)
	}
	if got.DownloadCount != 1 {
		t.Errorf("download count = %d, want 1", got.DownloadCount)
	}
}

func TestFileDetailsAggregates(t *testing.T) {
	db := setupTestDB(t)
	creator := seedProfile(t, db, "user-1", "alice@example.com")
	buyer := seedProfile(t, db, "user-2", "bob@example.com")
	f := seedFile(t, db, creator.ID, 1000)
	fs := NewFileStore(db)
	ts := NewTransactionStore(db)

	seedPending(t, db, f, &buyer.ID, "cs_completed_01", 1000, 50)
	seedPending(t, db, f, &buyer.ID, "cs_pending_02", 1000, 50)
	if _, _, err := ts.Complete("cs_completed_01", "pi_1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	d, err := fs.GetDetails(f.ID)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if d == nil {
		t.Fatal("expected details row")
	}
	if d.CreatorUsername != "alice" {
		t.Errorf("creator username = %q, want alice", d.CreatorUsername)
	}
	// Only the completed sale counts.
	if d.SalesCount != 1 {
		t.Errorf("sales count = %d, want 1", d.SalesCount)
	}
	if d.RevenueCents != 950 {
		t.Errorf("revenue = %d, want 950", d.RevenueCents)
	}

	list, err := fs.ListDetailsByCreator(creator.ID)
	if err != nil {
		t.Fatalf("list details: %v", err)
	}
	if len(list) != 1 || list[0].ID != f.ID {
		t.Fatalf("list = %+v, want the one seeded file", list)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Spaced  Out  ", "spaced-out"},
		{"Already-Hyphenated", "already-hyphenated"},
		{"Symbols & Stuff!!!", "symbols-stuff"},
		{"Ünïcödé Titles", "ünïcödé-titles"},
		{"2024 Report (final)", "2024-report-final"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
