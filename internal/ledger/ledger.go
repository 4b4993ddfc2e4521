// Package ledger owns transaction records and the access-grant decision.
// It is the single authority for the pending→completed lifecycle and for the
// platform fee split; every other component that needs either goes through it.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
)

// ErrValidation marks malformed input rejected before any persistence write.
var ErrValidation = errors.New("validation")

var hundred = decimal.NewFromInt(100)

type Ledger struct {
	transactions *store.TransactionStore
	feePercent   decimal.Decimal
	logger       *slog.Logger
}

// New creates a Ledger. feePercent is the platform's cut in percent (5 = 5%).
func New(transactions *store.TransactionStore, feePercent float64, logger *slog.Logger) *Ledger {
	return &Ledger{
		transactions: transactions,
		feePercent:   decimal.NewFromFloat(feePercent),
		logger:       logger,
	}
}

// SplitAmount computes the platform fee and seller earnings for an amount in
// minor currency units. fee + earnings == amount always holds; the fee is
// round-half-up of amount × percent. This is the only fee computation in the
// codebase.
func (l *Ledger) SplitAmount(amountCents int64) (feeCents, earningsCents int64) {
	feeCents = decimal.NewFromInt(amountCents).Mul(l.feePercent).Div(hundred).Round(0).IntPart()
	return feeCents, amountCents - feeCents
}

// NewTransactionNumber builds a time-prefixed number with a random suffix,
// e.g. TXN-20260901143005-8F3A2C1D. Uniqueness is backstopped by the storage
// constraint, not enforced here.
func NewTransactionNumber(now time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("transaction number: %w", err)
	}
	return fmt.Sprintf("TXN-%s-%s", now.UTC().Format("20060102150405"), strings.ToUpper(hex.EncodeToString(b))), nil
}

// CreatePending records a pending transaction for a newly opened checkout
// session. The buyer may be unknown at this point (anonymous checkout).
// Access expiry is copied from the file's window now so later edits to the
// file do not retroactively change what was sold.
func (l *Ledger) CreatePending(file *model.File, buyerID *string, sessionID string, amountCents, feeCents int64) (*model.Transaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, amountCents)
	}
	if feeCents < 0 || feeCents > amountCents {
		return nil, fmt.Errorf("%w: fee %d outside [0, %d]", ErrValidation, feeCents, amountCents)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session reference", ErrValidation)
	}

	number, err := NewTransactionNumber(time.Now())
	if err != nil {
		return nil, err
	}

	t := &model.Transaction{
		TransactionNumber:   number,
		FileID:              file.ID,
		BuyerID:             buyerID,
		SellerID:            file.CreatorID,
		AmountCents:         amountCents,
		PlatformFeeCents:    feeCents,
		SellerEarningsCents: amountCents - feeCents,
		Currency:            file.Currency,
		Status:              model.StatusPending,
		StripeSessionID:     sessionID,
		AccessExpiresAt:     file.ExpiresAt,
	}
	return l.transactions.Create(t)
}

// Complete marks the transaction for the given session reference completed.
// Safe to call any number of times: only the first call transitions state and
// the returned bool reports whether this call did. A nil transaction means no
// record exists for the session.
func (l *Ledger) Complete(sessionID, paymentIntentID string) (*model.Transaction, bool, error) {
	t, transitioned, err := l.transactions.Complete(sessionID, paymentIntentID)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		l.logger.Warn("completion event for unknown session", "session_id", sessionID)
		return nil, false, nil
	}
	if transitioned {
		l.logger.Info("transaction completed",
			"transaction_number", t.TransactionNumber,
			"session_id", sessionID,
			"amount_cents", t.AmountCents)
	}
	return t, transitioned, nil
}

// Fail records a failed payment for a pending transaction.
func (l *Ledger) Fail(sessionID string) error {
	return l.transactions.MarkFailed(sessionID)
}

// EvaluateAccess decides whether the viewer may retrieve the file's content.
// The creator is always granted. Anyone else needs a completed transaction
// whose access window, if any, has not elapsed. Evaluated against the clock
// on every call; never cache the result beyond a single request.
func (l *Ledger) EvaluateAccess(file *model.File, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if viewerID == file.CreatorID {
		return true, nil
	}
	t, err := l.transactions.LatestCompleted(file.ID, viewerID)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	if t.AccessExpiresAt != nil && !t.AccessExpiresAt.After(time.Now()) {
		return false, nil
	}
	return true, nil
}
