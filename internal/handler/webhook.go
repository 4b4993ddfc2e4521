package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/payview/server/internal/ledger"
	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
	paystripe "github.com/payview/server/internal/stripe"
)

// eventVerifier abstracts signature verification so tests can sign payloads
// with a known secret.
type eventVerifier interface {
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// saleNotifier is the out-of-scope notification collaborator. Failures are
// its own problem; the webhook ack never depends on it.
type saleNotifier interface {
	Sale(ctx context.Context, t *model.Transaction)
}

// WebhookHandler is the authoritative, idempotent consumer of asynchronous
// payment-processor events.
type WebhookHandler struct {
	verifier eventVerifier
	ledger   *ledger.Ledger
	profiles *store.ProfileStore
	notifier saleNotifier
	logger   *slog.Logger
}

func NewWebhookHandler(verifier eventVerifier, l *ledger.Ledger, profiles *store.ProfileStore, notifier saleNotifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		ledger:   l,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleEvent verifies the signature before touching anything; a payload
// that fails verification is rejected with zero state mutated. Verified
// events of unrecognized types are acknowledged so new processor event types
// cannot wedge delivery.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	event, err := h.verifier.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(r.Context(), event)
	case "checkout.session.async_payment_failed":
		h.handlePaymentFailed(event)
	case "account.updated":
		h.handleAccountUpdated(event)
	default:
		h.logger.Debug("unhandled event type", "type", event.Type)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	paymentIntentID := ""
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}

	txn, transitioned, err := h.ledger.Complete(sess.ID, paymentIntentID)
	if err != nil {
		h.logger.Error("complete transaction", "session_id", sess.ID, "error", err)
		return
	}
	if txn == nil || !transitioned {
		// Unknown session or a redelivery of an already-processed event.
		return
	}

	if sess.Metadata[paystripe.MetaBuyerUserID] != "" {
		h.notifier.Sale(ctx, txn)
	}
}

func (h *WebhookHandler) handlePaymentFailed(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}
	if err := h.ledger.Fail(sess.ID); err != nil {
		h.logger.Error("mark transaction failed", "session_id", sess.ID, "error", err)
	}
}

// handleAccountUpdated overwrites the creator's onboarding flag from the
// account's current state. Derived state, replaced wholesale on every event.
func (h *WebhookHandler) handleAccountUpdated(event stripe.Event) {
	var acct stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
		h.logger.Error("unmarshal account", "error", err)
		return
	}
	complete := acct.DetailsSubmitted && acct.ChargesEnabled
	if err := h.profiles.SetOnboardingComplete(acct.ID, complete); err != nil {
		h.logger.Error("update onboarding status", "account_id", acct.ID, "error", err)
	}
}
