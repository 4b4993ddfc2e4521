package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/payview/server/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var buyerID, paymentIntentID sql.NullString
	var accessExpiresAt, completedAt sql.NullTime
	err := scanner.Scan(
		&t.ID, &t.TransactionNumber, &t.FileID, &buyerID, &t.SellerID,
		&t.AmountCents, &t.PlatformFeeCents, &t.SellerEarningsCents,
		&t.Currency, &t.Status, &t.StripeSessionID, &paymentIntentID,
		&accessExpiresAt, &t.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if buyerID.Valid {
		t.BuyerID = &buyerID.String
	}
	if paymentIntentID.Valid {
		t.StripePaymentIntentID = &paymentIntentID.String
	}
	if accessExpiresAt.Valid {
		t.AccessExpiresAt = &accessExpiresAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

const transactionCols = `id, transaction_number, file_id, buyer_id, seller_id, amount_cents, platform_fee_cents, seller_earnings_cents, currency, status, stripe_session_id, stripe_payment_intent_id, access_expires_at, created_at, completed_at`

// Create inserts a transaction row. The caller is responsible for amount and
// fee validation; the schema CHECK constraints are the storage-level backstop.
func (s *TransactionStore) Create(t *model.Transaction) (*model.Transaction, error) {
	id := uuid.NewString()
	status := t.Status
	if status == "" {
		status = model.StatusPending
	}
	currency := t.Currency
	if currency == "" {
		currency = "usd"
	}
	_, err := s.db.Exec(
		`INSERT INTO transactions (id, transaction_number, file_id, buyer_id, seller_id, amount_cents, platform_fee_cents, seller_earnings_cents, currency, status, stripe_session_id, access_expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.TransactionNumber, t.FileID, t.BuyerID, t.SellerID,
		t.AmountCents, t.PlatformFeeCents, t.SellerEarningsCents,
		currency, status, t.StripeSessionID, t.AccessExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return s.GetByID(id)
}

func (s *TransactionStore) GetByID(id string) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionStore) GetBySessionID(sessionID string) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE stripe_session_id = ?`, sessionID)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by session id: %w", err)
	}
	return t, nil
}

// Complete transitions the transaction for the given checkout session from
// pending to completed. The status guard on the update makes concurrent
// duplicate deliveries converge on a single transition; seller and file
// aggregates ride the same database transaction so they can never be counted
// twice. The returned bool reports whether this call performed the
// transition. A nil transaction means no row exists for the session.
func (s *TransactionStore) Complete(sessionID, paymentIntentID string) (*model.Transaction, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(
		`UPDATE transactions SET status = ?, completed_at = ?, stripe_payment_intent_id = ? WHERE stripe_session_id = ? AND status = ?`,
		model.StatusCompleted, now, paymentIntentID, sessionID, model.StatusPending,
	)
	if err != nil {
		return nil, false, fmt.Errorf("complete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("complete transaction: %w", err)
	}
	if n == 0 {
		// Already completed (idempotent no-op) or unknown session.
		row := tx.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE stripe_session_id = ?`, sessionID)
		t, err := scanTransaction(row)
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("get transaction by session id: %w", err)
		}
		return t, false, nil
	}

	row := tx.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE stripe_session_id = ?`, sessionID)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, false, fmt.Errorf("reload transaction: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE profiles SET total_earnings_cents = total_earnings_cents + ?, total_sales_count = total_sales_count + 1, updated_at = ? WHERE id = ?`,
		t.SellerEarningsCents, now, t.SellerID,
	); err != nil {
		return nil, false, fmt.Errorf("update seller aggregates: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE files SET purchase_count = purchase_count + 1, total_revenue_cents = total_revenue_cents + ?, updated_at = ? WHERE id = ?`,
		t.SellerEarningsCents, now, t.FileID,
	); err != nil {
		return nil, false, fmt.Errorf("update file aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return t, true, nil
}

// MarkFailed transitions a pending transaction to failed. Completed
// transactions are left untouched.
func (s *TransactionStore) MarkFailed(sessionID string) error {
	_, err := s.db.Exec(
		`UPDATE transactions SET status = ? WHERE stripe_session_id = ? AND status = ?`,
		model.StatusFailed, sessionID, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark transaction failed: %w", err)
	}
	return nil
}

// LatestCompleted returns the most recently completed transaction for the
// given file and buyer, or nil when the buyer never completed a purchase.
func (s *TransactionStore) LatestCompleted(fileID, buyerID string) (*model.Transaction, error) {
	row := s.db.QueryRow(
		`SELECT `+transactionCols+` FROM transactions WHERE file_id = ? AND buyer_id = ? AND status = ? ORDER BY completed_at DESC LIMIT 1`,
		fileID, buyerID, model.StatusCompleted,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest completed transaction: %w", err)
	}
	return t, nil
}

// ListDetailsForProfile reads the transaction_details view for every
// transaction where the profile is buyer or seller, newest first.
func (s *TransactionStore) ListDetailsForProfile(profileID string) ([]*model.TransactionDetails, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+`, file_title, file_slug, seller_username, buyer_username FROM transaction_details WHERE buyer_id = ? OR seller_id = ? ORDER BY created_at DESC`,
		profileID, profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transaction details: %w", err)
	}
	defer rows.Close()

	var out []*model.TransactionDetails
	for rows.Next() {
		var d model.TransactionDetails
		var buyerID, paymentIntentID, buyerUsername sql.NullString
		var accessExpiresAt, completedAt sql.NullTime
		err := rows.Scan(
			&d.ID, &d.TransactionNumber, &d.FileID, &buyerID, &d.SellerID,
			&d.AmountCents, &d.PlatformFeeCents, &d.SellerEarningsCents,
			&d.Currency, &d.Status, &d.StripeSessionID, &paymentIntentID,
			&accessExpiresAt, &d.CreatedAt, &completedAt,
			&d.FileTitle, &d.FileSlug, &d.SellerUsername, &buyerUsername,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction details: %w", err)
		}
		if buyerID.Valid {
			d.BuyerID = &buyerID.String
		}
		if paymentIntentID.Valid {
			d.StripePaymentIntentID = &paymentIntentID.String
		}
		if accessExpiresAt.Valid {
			d.AccessExpiresAt = &accessExpiresAt.Time
		}
		if completedAt.Valid {
			d.CompletedAt = &completedAt.Time
		}
		if buyerUsername.Valid {
			d.BuyerUsername = &buyerUsername.String
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
