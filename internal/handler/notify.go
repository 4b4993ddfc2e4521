package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
)

// NotifyHandler re-triggers the sale notification fan-out for a completed
// transaction. Normally the webhook does this inline; the endpoint exists
// for the success-page fallback and manual resends.
type NotifyHandler struct {
	transactions *store.TransactionStore
	notifier     saleNotifier
	logger       *slog.Logger
}

func NewNotifyHandler(transactions *store.TransactionStore, notifier saleNotifier, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{
		transactions: transactions,
		notifier:     notifier,
		logger:       logger,
	}
}

func (h *NotifyHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID    string `json:"fileId"`
		BuyerID   string `json:"buyerId"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return
	}

	txn, err := h.transactions.GetBySessionID(req.SessionID)
	if err != nil {
		h.logger.Error("get transaction", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusBadRequest, "lookup failed")
		return
	}
	if txn == nil || txn.Status != model.StatusCompleted {
		writeError(w, http.StatusBadRequest, "no completed transaction for session")
		return
	}

	h.notifier.Sale(context.WithoutCancel(r.Context()), txn)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
