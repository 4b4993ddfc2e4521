// Package checkout bridges a purchase intent to the payment processor and
// seeds the ledger with the pending transaction.
package checkout

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/payview/server/internal/ledger"
	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
	paystripe "github.com/payview/server/internal/stripe"
)

// ErrNotPurchasable is returned when a checkout cannot be opened: the file is
// missing, inactive, unpriced, has no provisioned Stripe price, or the seller
// has not finished payout onboarding. Raised before any external call so a
// failed precondition leaves no partial state.
var ErrNotPurchasable = errors.New("file is not purchasable")

// Gateway is the slice of the Stripe client the coordinator needs.
type Gateway interface {
	CreateCheckoutSession(p paystripe.CheckoutParams) (*paystripe.CheckoutSession, error)
}

type Coordinator struct {
	ledger   *ledger.Ledger
	files    *store.FileStore
	profiles *store.ProfileStore
	gateway  Gateway
	baseURL  string
	logger   *slog.Logger
}

func New(l *ledger.Ledger, files *store.FileStore, profiles *store.ProfileStore, gateway Gateway, baseURL string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		ledger:   l,
		files:    files,
		profiles: profiles,
		gateway:  gateway,
		baseURL:  baseURL,
		logger:   logger,
	}
}

type Result struct {
	SessionID   string
	URL         string
	Transaction *model.Transaction
}

// Start opens a hosted checkout session for the file and records the pending
// transaction keyed by the session reference. buyerID may be nil for an
// anonymous buyer; the webhook will still complete the transaction, but
// access can only be granted once the buyer is identified.
func (c *Coordinator) Start(fileID string, buyerID *string) (*Result, error) {
	file, err := c.files.GetByID(fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || !file.IsActive || file.PriceCents <= 0 {
		return nil, ErrNotPurchasable
	}
	if file.StripePriceID == nil {
		return nil, fmt.Errorf("%w: no provisioned price", ErrNotPurchasable)
	}

	seller, err := c.profiles.GetByID(file.CreatorID)
	if err != nil {
		return nil, err
	}
	if seller == nil || seller.StripeAccountID == nil || !seller.StripeOnboardingComplete {
		return nil, fmt.Errorf("%w: seller payout account not ready", ErrNotPurchasable)
	}

	feeCents, _ := c.ledger.SplitAmount(file.PriceCents)

	buyerUserID := ""
	if buyerID != nil {
		buyerUserID = *buyerID
	}
	sess, err := c.gateway.CreateCheckoutSession(paystripe.CheckoutParams{
		PriceID:         *file.StripePriceID,
		SellerAccountID: *seller.StripeAccountID,
		FeeCents:        feeCents,
		FileID:          file.ID,
		BuyerUserID:     buyerUserID,
		SuccessURL:      c.baseURL + "/stripe-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       c.baseURL + "/paywall/" + file.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("open checkout session: %w", err)
	}

	txn, err := c.ledger.CreatePending(file, buyerID, sess.ID, file.PriceCents, feeCents)
	if err != nil {
		return nil, err
	}

	c.logger.Info("checkout started",
		"file_id", file.ID,
		"session_id", sess.ID,
		"transaction_number", txn.TransactionNumber,
		"amount_cents", txn.AmountCents)

	return &Result{SessionID: sess.ID, URL: sess.URL, Transaction: txn}, nil
}
