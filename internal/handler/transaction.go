package handler

import (
	"log/slog"
	"net/http"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
)

type TransactionHandler struct {
	transactions *store.TransactionStore
	logger       *slog.Logger
}

func NewTransactionHandler(transactions *store.TransactionStore, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: logger}
}

// List returns the transaction_details rows where the viewer is buyer or
// seller, newest first.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID := auth.ProfileID(r.Context())
	if profileID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rows, err := h.transactions.ListDetailsForProfile(profileID)
	if err != nil {
		h.logger.Error("list transactions", "profile_id", profileID, "error", err)
		writeError(w, http.StatusBadRequest, "lookup failed")
		return
	}
	if rows == nil {
		rows = []*model.TransactionDetails{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": rows})
}
