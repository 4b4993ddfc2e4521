// Package notify fans out post-sale notifications: confirmation email to the
// buyer, sale email and live dashboard event to the seller.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/payview/server/internal/email"
	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
	"github.com/payview/server/internal/ws"
)

type Notifier struct {
	email    *email.Client
	hub      *ws.Hub
	files    *store.FileStore
	profiles *store.ProfileStore
	baseURL  string
	logger   *slog.Logger
}

func New(emailClient *email.Client, hub *ws.Hub, files *store.FileStore, profiles *store.ProfileStore, baseURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		email:    emailClient,
		hub:      hub,
		files:    files,
		profiles: profiles,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Sale delivers all notifications for a completed transaction. Best effort
// throughout: every failure is logged and swallowed, because the webhook ack
// must not depend on notification delivery — the processor would redeliver
// and risk a duplicate charge flow over a missed email.
func (n *Notifier) Sale(ctx context.Context, t *model.Transaction) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	file, err := n.files.GetByID(t.FileID)
	if err != nil || file == nil {
		n.logger.Warn("sale notification: file lookup failed", "file_id", t.FileID, "error", err)
		return
	}
	seller, err := n.profiles.GetByID(t.SellerID)
	if err != nil || seller == nil {
		n.logger.Warn("sale notification: seller lookup failed", "seller_id", t.SellerID, "error", err)
		return
	}

	var buyer *model.Profile
	if t.BuyerID != nil {
		buyer, err = n.profiles.GetByID(*t.BuyerID)
		if err != nil {
			n.logger.Warn("sale notification: buyer lookup failed", "buyer_id", *t.BuyerID, "error", err)
		}
	}

	if n.email.Configured() {
		if buyer != nil {
			contentURL := n.baseURL + "/content/" + file.ID
			if err := n.email.SendPurchaseConfirmation(ctx, buyer.Email, file.Title, seller.Username, t.AmountCents, contentURL); err != nil {
				n.logger.Warn("buyer confirmation email", "transaction_number", t.TransactionNumber, "error", err)
			}
		}
		buyerEmail := "a buyer"
		if buyer != nil {
			buyerEmail = buyer.Email
		}
		if err := n.email.SendSaleNotification(ctx, seller.Email, file.Title, buyerEmail, t.AmountCents, t.SellerEarningsCents); err != nil {
			n.logger.Warn("seller sale email", "transaction_number", t.TransactionNumber, "error", err)
		}
	}

	completedAt := time.Now().UTC()
	if t.CompletedAt != nil {
		completedAt = *t.CompletedAt
	}
	n.hub.NotifySale(t.SellerID, ws.NewSaleEvent(
		file.ID, file.Title, t.TransactionNumber,
		t.AmountCents, t.SellerEarningsCents, completedAt,
	))
}
