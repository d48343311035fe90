package payroll

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/billease/billease/internal/platform/httpx"
	"github.com/billease/billease/internal/shared"
)

// Handler exposes employees and payroll runs.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs payroll handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.listEmployees)
		r.Post("/", h.createEmployee)
		r.Get("/{id}", h.showEmployee)
		r.Put("/{id}", h.updateEmployee)
		r.Delete("/{id}", h.deleteEmployee)
	})
	r.Post("/compute", h.compute)
	r.Get("/runs", h.listRuns)
	r.Get("/runs/{id}", h.showRun)
	r.Post("/runs/{id}/process", h.process)
	r.Post("/runs/{id}/pay", h.pay)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query())
	result, total, err := h.service.ListEmployees(r.Context(), httpx.Identity(r), r.URL.Query().Get("search"), page)
	if err != nil {
		h.logger.Error("list employees", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Employee{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employees": result, "total": total})
}

func (h *Handler) showEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.GetEmployee(r.Context(), httpx.Identity(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in EmployeeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	e, err := h.service.CreateEmployee(r.Context(), httpx.Identity(r), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in EmployeeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	e, err := h.service.UpdateEmployee(r.Context(), httpx.Identity(r), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), httpx.Identity(r), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	var in ComputeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	run, err := h.service.Compute(r.Context(), httpx.Identity(r), in)
	if err != nil {
		h.logger.Warn("compute payroll", slog.Int64("employee_id", in.EmployeeID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if in.Preview {
		status = http.StatusOK
	}
	httpx.JSON(w, status, run)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	filter := RunFilter{Month: r.URL.Query().Get("month")}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			httpx.BadRequest(w, "year must be a number")
			return
		}
		filter.Year = year
	}
	runs, err := h.service.ListRuns(r.Context(), httpx.Identity(r), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) showRun(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	run, err := h.service.GetRun(r.Context(), httpx.Identity(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Process)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Pay)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor shared.Identity, id int64) (Run, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	run, err := fn(r.Context(), httpx.Identity(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}
