package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/billease/billease/internal/audit"
	"github.com/billease/billease/internal/bank"
	"github.com/billease/billease/internal/documents"
	"github.com/billease/billease/internal/gst"
	"github.com/billease/billease/internal/masterdata/items"
	"github.com/billease/billease/internal/masterdata/parties"
	"github.com/billease/billease/internal/observability"
	"github.com/billease/billease/internal/partybalance"
	"github.com/billease/billease/internal/payroll"
	"github.com/billease/billease/internal/platform/httpx"
	"github.com/billease/billease/internal/stock"
	"github.com/billease/billease/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	ItemsHandler        *items.Handler
	PartiesHandler      *parties.Handler
	StockHandler        *stock.Handler
	PartyBalanceHandler *partybalance.Handler
	DocumentsHandler    *documents.Handler
	GSTHandler          *gst.Handler
	BankHandler         *bank.Handler
	PayrollHandler      *payroll.Handler
	JobHandler          *jobs.Handler
	AuditHandler        *audit.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with BillEase defaults. Business
// routes live under /api/v1 and require the gateway identity headers.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireIdentity(params.Logger))

		if params.ItemsHandler != nil {
			r.Route("/items", func(r chi.Router) {
				params.ItemsHandler.MountRoutes(r)
				if params.StockHandler != nil {
					r.Get("/{id}/stock", params.StockHandler.ItemStock)
				}
			})
		}
		if params.PartiesHandler != nil {
			r.Route("/parties", func(r chi.Router) {
				params.PartiesHandler.MountRoutes(r)
				if params.PartyBalanceHandler != nil {
					r.Get("/{id}/outstanding", params.PartyBalanceHandler.PartyOutstanding)
					r.Get("/{id}/statement", params.PartyBalanceHandler.PartyStatement)
				}
			})
		}
		if params.StockHandler != nil {
			r.Route("/stock", params.StockHandler.MountRoutes)
		}
		if params.DocumentsHandler != nil {
			r.Route("/documents", params.DocumentsHandler.MountRoutes)
		}
		if params.GSTHandler != nil {
			r.Route("/gstr1", params.GSTHandler.MountRoutes)
		}
		if params.BankHandler != nil {
			r.Route("/bank", params.BankHandler.MountRoutes)
		}
		if params.PayrollHandler != nil {
			r.Route("/payroll", params.PayrollHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	return r
}
