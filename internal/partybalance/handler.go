package partybalance

import (
	"log/slog"
	"net/http"

	"github.com/billease/billease/internal/platform/httpx"
)

// Handler serves balance reads nested under /parties/{id}.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// PartyOutstanding serves GET /parties/{id}/outstanding.
func (h *Handler) PartyOutstanding(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Outstanding(r.Context(), httpx.Identity(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

// PartyStatement serves GET /parties/{id}/statement.
func (h *Handler) PartyStatement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.Statement(r.Context(), httpx.Identity(r), id)
	if err != nil {
		h.logger.Error("party statement", slog.Int64("party_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"party_id": id, "lines": lines})
}
