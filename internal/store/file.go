package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/payview/server/internal/model"
)

// ErrPriceProvisioned is returned when a file's Stripe product/price
// references would be overwritten. Stripe prices are immutable, so the local
// references are write-once and the price itself is frozen with them.
var ErrPriceProvisioned = errors.New("stripe price already provisioned")

type FileStore struct {
	db *sql.DB
}

func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{db: db}
}

func scanFile(scanner interface{ Scan(...any) error }) (*model.File, error) {
	var f model.File
	var collectionID, description, contentType, productID, priceID sql.NullString
	var fileSize sql.NullInt64
	var expiresAt sql.NullTime
	var screenshotProtection, isActive int
	err := scanner.Scan(
		&f.ID, &f.CreatorID, &collectionID, &f.Slug, &f.Title, &description,
		&f.FileName, &f.FileURL, &fileSize, &contentType,
		&f.PriceCents, &f.Currency, &productID, &priceID, &expiresAt,
		&f.DownloadCount, &f.ViewCount, &f.PurchaseCount, &f.TotalRevenueCents,
		&screenshotProtection, &isActive, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if collectionID.Valid {
		f.CollectionID = &collectionID.String
	}
	if description.Valid {
		f.Description = &description.String
	}
	if contentType.Valid {
		f.ContentType = &contentType.String
	}
	if fileSize.Valid {
		f.FileSizeBytes = &fileSize.Int64
	}
	if productID.Valid {
		f.StripeProductID = &productID.String
	}
	if priceID.Valid {
		f.StripePriceID = &priceID.String
	}
	if expiresAt.Valid {
		f.ExpiresAt = &expiresAt.Time
	}
	f.ScreenshotProtection = screenshotProtection != 0
	f.IsActive = isActive != 0
	return &f, nil
}

const fileCols = `id, creator_id, collection_id, slug, title, description, file_name, file_url, file_size_bytes, content_type, price_cents, currency, stripe_product_id, stripe_price_id, expires_at, download_count, view_count, purchase_count, total_revenue_cents, screenshot_protection, is_active, created_at, updated_at`

// Create inserts a file record. ID and slug are generated when empty.
func (f *FileStore) Create(file *model.File) (*model.File, error) {
	if file.PriceCents < 0 {
		return nil, fmt.Errorf("negative price: %d", file.PriceCents)
	}
	id := file.ID
	if id == "" {
		id = uuid.NewString()
	}
	slug := file.Slug
	if slug == "" {
		slug = Slugify(file.Title) + "-" + id[:8]
	}
	currency := file.Currency
	if currency == "" {
		currency = "usd"
	}

	var screenshotProtection int
	if file.ScreenshotProtection {
		screenshotProtection = 1
	}

	_, err := f.db.Exec(
		`INSERT INTO files (id, creator_id, collection_id, slug, title, description, file_name, file_url, file_size_bytes, content_type, price_cents, currency, expires_at, screenshot_protection)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, file.CreatorID, file.CollectionID, slug, file.Title, file.Description,
		file.FileName, file.FileURL, file.FileSizeBytes, file.ContentType,
		file.PriceCents, currency, file.ExpiresAt, screenshotProtection,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return f.GetByID(id)
}

func (f *FileStore) GetByID(id string) (*model.File, error) {
	row := f.db.QueryRow(`SELECT `+fileCols+` FROM files WHERE id = ?`, id)
	file, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

func (f *FileStore) GetBySlug(slug string) (*model.File, error) {
	row := f.db.QueryRow(`SELECT `+fileCols+` FROM files WHERE slug = ?`, slug)
	file, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file by slug: %w", err)
	}
	return file, nil
}

// GetDetails reads the denormalized file_details view.
func (f *FileStore) GetDetails(id string) (*model.FileDetails, error) {
	row := f.db.QueryRow(
		`SELECT `+fileCols+`, creator_username, creator_avatar, sales_count, revenue_cents FROM file_details WHERE id = ?`,
		id,
	)
	d, err := scanFileDetails(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file details: %w", err)
	}
	return d, nil
}

// ListDetailsByCreator reads the file_details view for a creator's dashboard.
func (f *FileStore) ListDetailsByCreator(creatorID string) ([]*model.FileDetails, error) {
	rows, err := f.db.Query(
		`SELECT `+fileCols+`, creator_username, creator_avatar, sales_count, revenue_cents FROM file_details WHERE creator_id = ? ORDER BY created_at DESC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list file details: %w", err)
	}
	defer rows.Close()

	var out []*model.FileDetails
	for rows.Next() {
		d, err := scanFileDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file details: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanFileDetails(scanner interface{ Scan(...any) error }) (*model.FileDetails, error) {
	var d model.FileDetails
	var collectionID, description, contentType, productID, priceID sql.NullString
	var fileSize sql.NullInt64
	var expiresAt sql.NullTime
	var screenshotProtection, isActive int
	var creatorAvatar sql.NullString
	err := scanner.Scan(
		&d.ID, &d.CreatorID, &collectionID, &d.Slug, &d.Title, &description,
		&d.FileName, &d.FileURL, &fileSize, &contentType,
		&d.PriceCents, &d.Currency, &productID, &priceID, &expiresAt,
		&d.DownloadCount, &d.ViewCount, &d.PurchaseCount, &d.TotalRevenueCents,
		&screenshotProtection, &isActive, &d.CreatedAt, &d.UpdatedAt,
		&d.CreatorUsername, &creatorAvatar, &d.SalesCount, &d.RevenueCents,
	)
	if err != nil {
		return nil, err
	}
	if collectionID.Valid {
		d.CollectionID = &collectionID.String
	}
	if description.Valid {
		d.Description = &description.String
	}
	if contentType.Valid {
		d.ContentType = &contentType.String
	}
	if fileSize.Valid {
		d.FileSizeBytes = &fileSize.Int64
	}
	if productID.Valid {
		d.StripeProductID = &productID.String
	}
	if priceID.Valid {
		d.StripePriceID = &priceID.String
	}
	if expiresAt.Valid {
		d.ExpiresAt = &expiresAt.Time
	}
	if creatorAvatar.Valid {
		d.CreatorAvatar = &creatorAvatar.String
	}
	d.ScreenshotProtection = screenshotProtection != 0
	d.IsActive = isActive != 0
	return &d, nil
}

// SetStripeRefs records the provisioned Stripe product and price. Write-once:
// once a price reference exists the file's price and currency are frozen.
func (f *FileStore) SetStripeRefs(id, productID, priceID string) error {
	res, err := f.db.Exec(
		`UPDATE files SET stripe_product_id = ?, stripe_price_id = ? WHERE id = ? AND stripe_price_id IS NULL`,
		productID, priceID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe refs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stripe refs: %w", err)
	}
	if n == 0 {
		return ErrPriceProvisioned
	}
	return nil
}

// Deactivate soft-deletes a file. Rows are never hard-deleted while
// transactions reference them.
func (f *FileStore) Deactivate(id string) error {
	_, err := f.db.Exec(`UPDATE files SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate file: %w", err)
	}
	return nil
}

func (f *FileStore) IncrementViewCount(id string) error {
	_, err := f.db.Exec(`UPDATE files SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

func (f *FileStore) IncrementDownloadCount(id string) error {
	_, err := f.db.Exec(`UPDATE files SET download_count = download_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	return nil
}

// Slugify lowercases a title and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	prevHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		case !prevHyphen:
			b.WriteByte('-')
			prevHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
