package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/expenses"
	"github.com/hesabyar/hesabyar/internal/fees"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/invoices"
	"github.com/hesabyar/hesabyar/internal/observability"
	"github.com/hesabyar/hesabyar/internal/partners"
	"github.com/hesabyar/hesabyar/internal/purchases"
	"github.com/hesabyar/hesabyar/internal/reports"
	"github.com/hesabyar/hesabyar/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
// Nil handlers leave their routes unmounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	PartnersHandler  *partners.Handler
	InventoryHandler *inventory.Handler
	InvoicesHandler  *invoices.Handler
	PurchasesHandler *purchases.Handler
	ChequesHandler   *cheques.Handler
	ExpensesHandler  *expenses.Handler
	FeesHandler      *fees.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with HesabYar defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.PartnersHandler != nil {
			r.Route("/customers", params.PartnersHandler.MountCustomerRoutes)
			r.Route("/suppliers", params.PartnersHandler.MountSupplierRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/products", params.InventoryHandler.MountRoutes)
		}
		if params.InvoicesHandler != nil {
			r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		}
		if params.PurchasesHandler != nil {
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		}
		if params.ChequesHandler != nil {
			r.Route("/cheques", params.ChequesHandler.MountRoutes)
		}
		if params.ExpensesHandler != nil {
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
			r.Route("/accounts", params.ExpensesHandler.MountAccountRoutes)
		}
		if params.FeesHandler != nil {
			r.Route("/fee-templates", params.FeesHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
