package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/store"
)

// productGateway is the slice of the Stripe client product provisioning needs.
type productGateway interface {
	CreateProductAndPrice(sellerAccountID, title string, priceCents int64, currency string) (productID, priceID string, err error)
}

type ProductHandler struct {
	gateway  productGateway
	files    *store.FileStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewProductHandler(gateway productGateway, files *store.FileStore, profiles *store.ProfileStore, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		gateway:  gateway,
		files:    files,
		profiles: profiles,
		logger:   logger,
	}
}

// Provision creates the Stripe product and price for a file on the creator's
// connected account and records the references. Once a price exists the
// file's price and currency are frozen — processor prices are immutable.
func (h *ProductHandler) Provision(w http.ResponseWriter, r *http.Request) {
	profileID := auth.ProfileID(r.Context())
	if profileID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		FileID string `json:"fileId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeError(w, http.StatusBadRequest, "missing fileId")
		return
	}

	file, err := h.files.GetByID(req.FileID)
	if err != nil {
		h.logger.Error("get file", "file_id", req.FileID, "error", err)
		writeError(w, http.StatusBadRequest, "lookup failed")
		return
	}
	if file == nil || file.CreatorID != profileID {
		writeError(w, http.StatusBadRequest, "file not found")
		return
	}
	if file.StripePriceID != nil {
		writeError(w, http.StatusBadRequest, "price already provisioned")
		return
	}
	if file.PriceCents <= 0 {
		writeError(w, http.StatusBadRequest, "file has no price")
		return
	}

	seller, err := h.profiles.GetByID(profileID)
	if err != nil || seller == nil || seller.StripeAccountID == nil {
		writeError(w, http.StatusBadRequest, "payout account not connected")
		return
	}

	productID, priceID, err := h.gateway.CreateProductAndPrice(*seller.StripeAccountID, file.Title, file.PriceCents, file.Currency)
	if err != nil {
		h.logger.Error("provision product/price", "file_id", file.ID, "error", err)
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
		return
	}

	if err := h.files.SetStripeRefs(file.ID, productID, priceID); err != nil {
		if errors.Is(err, store.ErrPriceProvisioned) {
			// Concurrent provisioning won; the stored refs stand.
			writeError(w, http.StatusBadRequest, "price already provisioned")
			return
		}
		h.logger.Error("store stripe refs", "file_id", file.ID, "error", err)
		writeError(w, http.StatusBadRequest, "could not record price")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"productId": productID,
		"priceId":   priceID,
	})
}
