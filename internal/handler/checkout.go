package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/checkout"
	"github.com/payview/server/internal/ledger"
)

type CheckoutHandler struct {
	coordinator *checkout.Coordinator
}

func NewCheckoutHandler(c *checkout.Coordinator) *CheckoutHandler {
	return &CheckoutHandler{coordinator: c}
}

// Start opens a checkout session for a file and returns the hosted-checkout
// redirect URL. The buyer is taken from the bearer token when present; the
// legacy body fields (priceRef, sellerPayoutRef, platformFeeCents) are
// accepted for wire compatibility but the server derives all of them from
// the file record.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID           string `json:"fileId"`
		BuyerID          string `json:"buyerId"`
		PriceRef         string `json:"priceRef"`
		SellerPayoutRef  string `json:"sellerPayoutRef"`
		PlatformFeeCents int64  `json:"platformFeeCents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "missing fileId")
		return
	}

	var buyerID *string
	if id := auth.ProfileID(r.Context()); id != "" {
		buyerID = &id
	} else if req.BuyerID != "" {
		buyerID = &req.BuyerID
	}

	res, err := h.coordinator.Start(req.FileID, buyerID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrNotPurchasable), errors.Is(err, ledger.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadGateway, "checkout unavailable, try again")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": res.SessionID,
		"url":       res.URL,
	})
}
