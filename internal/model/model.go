package model

import "time"

// Transaction status values. Transitions only move forward: a pending
// transaction becomes completed or failed, never the reverse.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

type Profile struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"user_id"`
	Email                    string    `json:"email"`
	Username                 string    `json:"username"`
	FullName                 *string   `json:"full_name"`
	AvatarURL                *string   `json:"avatar_url"`
	IsCreator                bool      `json:"is_creator"`
	StripeAccountID          *string   `json:"stripe_account_id"`
	StripeOnboardingComplete bool      `json:"stripe_onboarding_complete"`
	TotalEarningsCents       int64     `json:"total_earnings_cents"`
	TotalSalesCount          int64     `json:"total_sales_count"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type File struct {
	ID                   string     `json:"id"`
	CreatorID            string     `json:"creator_id"`
	CollectionID         *string    `json:"collection_id"`
	Slug                 string     `json:"slug"`
	Title                string     `json:"title"`
	Description          *string    `json:"description"`
	FileName             string     `json:"file_name"`
	FileURL              string     `json:"file_url"`
	FileSizeBytes        *int64     `json:"file_size_bytes"`
	ContentType          *string    `json:"content_type"`
	PriceCents           int64      `json:"price_cents"`
	Currency             string     `json:"currency"`
	StripeProductID      *string    `json:"stripe_product_id"`
	StripePriceID        *string    `json:"stripe_price_id"`
	ExpiresAt            *time.Time `json:"expires_at"`
	DownloadCount        int64      `json:"download_count"`
	ViewCount            int64      `json:"view_count"`
	PurchaseCount        int64      `json:"purchase_count"`
	TotalRevenueCents    int64      `json:"total_revenue_cents"`
	ScreenshotProtection bool       `json:"screenshot_protection"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type FileCollection struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type Transaction struct {
	ID                    string     `json:"id"`
	TransactionNumber     string     `json:"transaction_number"`
	FileID                string     `json:"file_id"`
	BuyerID               *string    `json:"buyer_id"`
	SellerID              string     `json:"seller_id"`
	AmountCents           int64      `json:"amount_cents"`
	PlatformFeeCents      int64      `json:"platform_fee_cents"`
	SellerEarningsCents   int64      `json:"seller_earnings_cents"`
	Currency              string     `json:"currency"`
	Status                string     `json:"status"`
	StripeSessionID       string     `json:"stripe_session_id"`
	StripePaymentIntentID *string    `json:"stripe_payment_intent_id"`
	AccessExpiresAt       *time.Time `json:"access_expires_at"`
	CreatedAt             time.Time  `json:"created_at"`
	CompletedAt           *time.Time `json:"completed_at"`
}

// FileDetails is the read-optimized projection over files joined with the
// creator profile and completed-sale aggregates. It backs display surfaces
// only; the write-model invariants live on File and Transaction.
type FileDetails struct {
	File
	CreatorUsername string  `json:"creator_username"`
	CreatorAvatar   *string `json:"creator_avatar"`
	SalesCount      int64   `json:"sales_count"`
	RevenueCents    int64   `json:"revenue_cents"`
}

// TransactionDetails is the read-optimized projection over transactions
// joined with file and profile display fields.
type TransactionDetails struct {
	Transaction
	FileTitle      string  `json:"file_title"`
	FileSlug       string  `json:"file_slug"`
	SellerUsername string  `json:"seller_username"`
	BuyerUsername  *string `json:"buyer_username"`
}
