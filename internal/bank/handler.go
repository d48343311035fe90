package bank

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billease/billease/internal/platform/httpx"
)

// Handler exposes statement import and reconciliation.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs bank handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers bank routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions/import", h.importStatement)
	r.Post("/reconcile", h.reconcile)
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	var in ImportInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	rows, err := h.service.Import(r.Context(), httpx.Identity(r), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"transactions": rows})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	var in ReconcileInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	res, queued, err := h.service.Reconcile(r.Context(), httpx.Identity(r), in)
	if err != nil {
		h.logger.Warn("bank reconcile", slog.String("bank_account", in.BankAccount), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if queued {
		httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
