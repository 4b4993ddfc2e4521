// Package stripe wraps the Stripe API surface the paywall uses: destination
// charge checkout sessions, product/price provisioning on connected accounts,
// express account onboarding, and webhook signature verification.
package stripe

import (
	"fmt"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountlink"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Metadata keys carried on checkout sessions to correlate webhook deliveries
// back to local records.
const (
	MetaFileID        = "fileId"
	MetaBuyerUserID   = "buyerUserId"
	MetaSellerAccount = "sellerAccountId"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	// All Stripe calls are single round trips; bound them rather than retry.
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}))
	return &Client{cfg: cfg}
}

// CheckoutParams describes a destination-charge checkout: the platform fee is
// retained and the remainder routed to the seller's connected account.
type CheckoutParams struct {
	PriceID         string
	SellerAccountID string
	FeeCents        int64
	FileID          string
	BuyerUserID     string
	SuccessURL      string
	CancelURL       string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a hosted checkout session and returns its ID
// and redirect URL.
func (c *Client) CreateCheckoutSession(p CheckoutParams) (*CheckoutSession, error) {
	meta := map[string]string{
		MetaFileID:        p.FileID,
		MetaBuyerUserID:   p.BuyerUserID,
		MetaSellerAccount: p.SellerAccountID,
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(p.FeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(p.SellerAccountID),
			},
			Metadata: meta,
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Metadata = meta

	sess, err := checksession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// SessionStatus is the slice of a retrieved checkout session the
// verify-payment fallback needs.
type SessionStatus struct {
	ID              string
	Paid            bool
	PaymentIntentID string
	FileID          string
	BuyerUserID     string
}

// RetrieveSession fetches a checkout session's payment status and metadata.
func (c *Client) RetrieveSession(sessionID string) (*SessionStatus, error) {
	sess, err := checksession.Get(sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	st := &SessionStatus{
		ID:          sess.ID,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		FileID:      sess.Metadata[MetaFileID],
		BuyerUserID: sess.Metadata[MetaBuyerUserID],
	}
	if sess.PaymentIntent != nil {
		st.PaymentIntentID = sess.PaymentIntent.ID
	}
	return st, nil
}

// CreateProductAndPrice provisions a product and an immutable price on the
// seller's connected account and returns both references.
func (c *Client) CreateProductAndPrice(sellerAccountID, title string, priceCents int64, currency string) (productID, priceID string, err error) {
	productParams := &stripe.ProductParams{
		Name: stripe.String(title),
	}
	productParams.SetStripeAccount(sellerAccountID)
	prod, err := product.New(productParams)
	if err != nil {
		return "", "", fmt.Errorf("create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(priceCents),
		Currency:   stripe.String(currency),
	}
	priceParams.SetStripeAccount(sellerAccountID)
	pr, err := price.New(priceParams)
	if err != nil {
		return "", "", fmt.Errorf("create price: %w", err)
	}
	return prod.ID, pr.ID, nil
}

// CreateConnectedAccount creates an express account for a seller.
func (c *Client) CreateConnectedAccount(email string) (string, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Email:        stripe.String(email),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	acct, err := account.New(params)
	if err != nil {
		return "", fmt.Errorf("create connected account: %w", err)
	}
	return acct.ID, nil
}

// CreateAccountLink mints a one-time onboarding link for a connected account.
func (c *Client) CreateAccountLink(accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	link, err := accountlink.New(params)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
