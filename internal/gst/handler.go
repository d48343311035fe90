package gst

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billease/billease/internal/platform/httpx"
)

// Handler exposes GSTR1 summaries and filing.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers GSTR1 routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{period}", h.summary)
	r.Get("/{period}/export", h.export)
	r.Post("/{period}/file", h.file)
	r.Post("/{period}/compile", h.compile)
}

func (h *Handler) compile(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.CompileFor(r.Context(), httpx.Identity(r), chi.URLParam(r, "period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": chi.URLParam(r, "period"), "created": n})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context(), httpx.Identity(r), chi.URLParam(r, "period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	sum, err := h.service.Summary(r.Context(), httpx.Identity(r), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=gstr1-%s.xlsx", sum.Period))
	if err := WriteWorkbook(w, sum); err != nil {
		h.logger.Error("export gstr1", slog.String("period", period), slog.Any("error", err))
	}
}

func (h *Handler) file(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.File(r.Context(), httpx.Identity(r), chi.URLParam(r, "period"))
	if err != nil {
		h.logger.Warn("file gstr1", slog.String("period", chi.URLParam(r, "period")), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}
