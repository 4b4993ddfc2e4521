package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/payview/server/internal/access"
	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/checkout"
	"github.com/payview/server/internal/email"
	"github.com/payview/server/internal/handler"
	"github.com/payview/server/internal/ledger"
	"github.com/payview/server/internal/middleware"
	"github.com/payview/server/internal/notify"
	"github.com/payview/server/internal/storage"
	"github.com/payview/server/internal/store"
	paystripe "github.com/payview/server/internal/stripe"
	"github.com/payview/server/internal/ws"
)

type Config struct {
	Stripe             paystripe.Config
	Storage            storage.Config
	BaseURL            string
	AuthSecret         string
	PlatformFeePercent float64
	EmailClient        *email.Client
}

type Server struct {
	db           *sql.DB
	profileStore *store.ProfileStore
	fileStore    *store.FileStore
	txnStore     *store.TransactionStore
	ledger       *ledger.Ledger
	hub          *ws.Hub
	verifier     *auth.Verifier
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger

	checkoutH    *handler.CheckoutHandler
	webhookH     *handler.WebhookHandler
	fileH        *handler.FileHandler
	productH     *handler.ProductHandler
	onboardH     *handler.OnboardHandler
	notifyH      *handler.NotifyHandler
	verifyH      *handler.VerifyHandler
	transactionH *handler.TransactionHandler
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	profileStore := store.NewProfileStore(db)
	fileStore := store.NewFileStore(db)
	collectionStore := store.NewCollectionStore(db)
	txnStore := store.NewTransactionStore(db)

	led := ledger.New(txnStore, cfg.PlatformFeePercent, logger.With("component", "ledger"))
	gateway := paystripe.NewClient(cfg.Stripe)
	blobs := storage.New(cfg.Storage)
	hub := ws.NewHub(logger.With("component", "ws"))
	notifier := notify.New(cfg.EmailClient, hub, fileStore, profileStore, cfg.BaseURL, logger.With("component", "notify"))
	issuer := access.NewIssuer(led, fileStore, blobs, logger.With("component", "access"))
	coordinator := checkout.New(led, fileStore, profileStore, gateway, cfg.BaseURL, logger.With("component", "checkout"))

	return &Server{
		db:           db,
		profileStore: profileStore,
		fileStore:    fileStore,
		txnStore:     txnStore,
		ledger:       led,
		hub:          hub,
		verifier:     auth.NewVerifier(cfg.AuthSecret),
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
		checkoutH:    handler.NewCheckoutHandler(coordinator),
		webhookH:     handler.NewWebhookHandler(gateway, led, profileStore, notifier, logger.With("component", "webhook")),
		fileH:        handler.NewFileHandler(fileStore, collectionStore, issuer, blobs, logger.With("component", "files")),
		productH:     handler.NewProductHandler(gateway, fileStore, profileStore, logger.With("component", "products")),
		onboardH:     handler.NewOnboardHandler(gateway, profileStore, cfg.BaseURL, logger.With("component", "onboard")),
		notifyH:      handler.NewNotifyHandler(txnStore, notifier, logger.With("component", "notify")),
		verifyH:      handler.NewVerifyHandler(gateway, led, notifier, cfg.BaseURL, logger.With("component", "verify")),
		transactionH: handler.NewTransactionHandler(txnStore, logger.With("component", "transactions")),
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(s.verifier, s.profileStore)
	optionalAuth := middleware.OptionalAuth(s.verifier, s.profileStore)
	rateLimit := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 30, time.Minute)

	mux.HandleFunc("GET /health", s.healthCheck)

	// Stripe webhook: signature-verified, never bearer-authenticated.
	mux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleEvent)

	// Checkout works for identified and anonymous buyers alike.
	mux.Handle("POST /api/checkout", rateLimit(optionalAuth(http.HandlerFunc(s.checkoutH.Start))))

	mux.HandleFunc("GET /verify-payment", s.verifyH.Verify)
	mux.Handle("POST /api/notifications/sale", rateLimit(http.HandlerFunc(s.notifyH.Send)))

	mux.HandleFunc("GET /api/files/{id}", s.fileH.Get)
	mux.Handle("POST /api/files", requireAuth(http.HandlerFunc(s.fileH.Create)))
	mux.Handle("POST /api/files/signed-url", requireAuth(http.HandlerFunc(s.fileH.SignedURL)))
	mux.Handle("POST /api/products", requireAuth(http.HandlerFunc(s.productH.Provision)))
	mux.Handle("POST /api/connect/onboard", requireAuth(http.HandlerFunc(s.onboardH.Start)))
	mux.Handle("GET /api/transactions", requireAuth(http.HandlerFunc(s.transactionH.List)))
	mux.Handle("GET /ws/sales", requireAuth(handler.SalesFeed(s.hub, s.logger.With("component", "ws"))))

	var root http.Handler = mux
	root = middleware.RequestLogger(s.logger)(root)
	root = middleware.CORS(root)
	return root
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
