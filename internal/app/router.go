package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/andino-erp/andino-erp/internal/accounts"
	"github.com/andino-erp/andino-erp/internal/catalog"
	"github.com/andino-erp/andino-erp/internal/contacts"
	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/payments"
	"github.com/andino-erp/andino-erp/internal/purchasing"
	"github.com/andino-erp/andino-erp/internal/retention"
	"github.com/andino-erp/andino-erp/internal/treasury"
	"github.com/andino-erp/andino-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AccountsHandler   *accounts.Handler
	JournalHandler    *journal.Handler
	TreasuryHandler   *treasury.Handler
	PurchasingHandler *purchasing.Handler
	InvoicingHandler  *invoicing.Handler
	PaymentsHandler   *payments.Handler
	RetentionHandler  *retention.Handler
	ContactsHandler   *contacts.Handler
	CatalogHandler    *catalog.Handler
	OrgConfigHandler  *orgconfig.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the API mounted under /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(PrincipalMiddleware(params.Logger))

		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/journal", params.JournalHandler.MountRoutes)
		r.Route("/treasury", params.TreasuryHandler.MountRoutes)
		r.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
		r.Route("/invoices", params.InvoicingHandler.MountRoutes)
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
		r.Route("/retentions", params.RetentionHandler.MountRoutes)
		r.Route("/contacts", params.ContactsHandler.MountRoutes)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/config", params.OrgConfigHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
