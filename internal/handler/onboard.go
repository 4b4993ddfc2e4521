package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/store"
)

// onboardGateway is the slice of the Stripe client onboarding needs.
type onboardGateway interface {
	CreateConnectedAccount(email string) (string, error)
	CreateAccountLink(accountID, refreshURL, returnURL string) (string, error)
}

type OnboardHandler struct {
	gateway  onboardGateway
	profiles *store.ProfileStore
	baseURL  string
	logger   *slog.Logger
}

func NewOnboardHandler(gateway onboardGateway, profiles *store.ProfileStore, baseURL string, logger *slog.Logger) *OnboardHandler {
	return &OnboardHandler{
		gateway:  gateway,
		profiles: profiles,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Start creates the creator's express account on first use and mints an
// onboarding link. The payout-account reference is write-once; a concurrent
// first request loses the race and reuses the stored account.
func (h *OnboardHandler) Start(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.profiles.GetByID(ac.ProfileID)
	if err != nil || profile == nil {
		writeError(w, http.StatusBadRequest, "profile not found")
		return
	}

	accountID := ""
	if profile.StripeAccountID != nil {
		accountID = *profile.StripeAccountID
	}
	if accountID == "" {
		accountID, err = h.gateway.CreateConnectedAccount(profile.Email)
		if err != nil {
			h.logger.Error("create connected account", "profile_id", profile.ID, "error", err)
			writeError(w, http.StatusBadGateway, "payment processor unavailable")
			return
		}
		if err := h.profiles.SetStripeAccountID(profile.ID, accountID); err != nil {
			if errors.Is(err, store.ErrPayoutAccountSet) {
				// Lost the race against another onboarding request; use the
				// account that won.
				profile, err = h.profiles.GetByID(profile.ID)
				if err != nil || profile == nil || profile.StripeAccountID == nil {
					writeError(w, http.StatusBadRequest, "profile not found")
					return
				}
				accountID = *profile.StripeAccountID
			} else {
				h.logger.Error("store account id", "profile_id", profile.ID, "error", err)
				writeError(w, http.StatusBadRequest, "could not record account")
				return
			}
		}
	}

	url, err := h.gateway.CreateAccountLink(
		accountID,
		h.baseURL+"/dashboard?stripe_refresh=true",
		h.baseURL+"/dashboard?stripe_success=true",
	)
	if err != nil {
		h.logger.Error("create account link", "account_id", accountID, "error", err)
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accountId":     accountID,
		"onboardingUrl": url,
	})
}
