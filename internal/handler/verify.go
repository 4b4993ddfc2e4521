package handler

import (
	"log/slog"
	"net/http"

	"github.com/payview/server/internal/ledger"
	paystripe "github.com/payview/server/internal/stripe"
)

// verifyGateway is the slice of the Stripe client payment verification needs.
type verifyGateway interface {
	RetrieveSession(sessionID string) (*paystripe.SessionStatus, error)
}

// VerifyHandler is the redirect fallback for the buyer returning from hosted
// checkout: it re-checks the session with the processor and completes the
// transaction through the same idempotent path the webhook uses, so a
// webhook that already landed makes this a no-op.
type VerifyHandler struct {
	gateway  verifyGateway
	ledger   *ledger.Ledger
	notifier saleNotifier
	baseURL  string
	logger   *slog.Logger
}

func NewVerifyHandler(gateway verifyGateway, l *ledger.Ledger, notifier saleNotifier, baseURL string, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{
		gateway:  gateway,
		ledger:   l,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	status, err := h.gateway.RetrieveSession(sessionID)
	if err != nil {
		h.logger.Error("retrieve session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
		return
	}
	if !status.Paid {
		writeError(w, http.StatusBadRequest, "payment not completed")
		return
	}

	txn, transitioned, err := h.ledger.Complete(sessionID, status.PaymentIntentID)
	if err != nil {
		h.logger.Error("complete transaction", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadRequest, "could not record payment")
		return
	}
	if txn == nil {
		writeError(w, http.StatusBadRequest, "unknown session")
		return
	}
	if transitioned && status.BuyerUserID != "" {
		h.notifier.Sale(r.Context(), txn)
	}

	http.Redirect(w, r, h.baseURL+"/content/"+txn.FileID, http.StatusFound)
}
