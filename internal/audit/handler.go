package audit

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/billease/billease/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Handler serves the audit trail.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates the audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query())
	if err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), httpx.Identity(r), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// parseFilters reads from/to as inclusive calendar dates; to is widened to the next midnight.
func parseFilters(q url.Values) (Filters, error) {
	var f Filters
	var err error
	if v := q.Get("from"); v != "" {
		if f.From, err = time.Parse(dateLayout, v); err != nil {
			return f, err
		}
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, err
		}
		f.To = to.AddDate(0, 0, 1)
	}
	if f.ActorID, err = optionalInt(q.Get("actor")); err != nil {
		return f, err
	}
	if f.EntityID, err = optionalInt(q.Get("entity_id")); err != nil {
		return f, err
	}
	f.Action = q.Get("action")
	f.Entity = q.Get("entity")
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("limit"))
	return f, nil
}

func optionalInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
