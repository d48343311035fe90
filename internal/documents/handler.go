package documents

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/billease/billease/internal/platform/httpx"
	"github.com/billease/billease/internal/shared"
)

// Handler exposes the document lifecycle over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the documents handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes below /documents.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{kind}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.show)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/confirm", h.confirm)
		r.Post("/{id}/cancel", h.cancel)
		r.Post("/{id}/receive", h.receive)
		r.Post("/{id}/payments", h.payment)
	})
}

func kindAndID(r *http.Request, withID bool) (Kind, int64, error) {
	k, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil || !withID {
		return k, 0, err
	}
	id, err := httpx.IDParam(r, "id")
	return k, id, err
}

type listResponse struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	k, _, err := kindAndID(r, false)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	filter := ListFilter{Status: shared.DocumentStatus(q.Get("status"))}
	if raw := q.Get("party_id"); raw != "" {
		filter.PartyID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.BadRequest(w, "invalid party_id")
			return
		}
	}
	docs, total, err := h.service.List(r.Context(), httpx.Identity(r), k, filter, shared.PageFromQuery(q))
	if err != nil {
		h.logger.Error("list documents", slog.String("kind", string(k)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Documents: docs, Total: total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	k, id, err := kindAndID(r, true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Get(r.Context(), httpx.Identity(r), k, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	k, _, err := kindAndID(r, false)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	doc, err := h.service.Create(r.Context(), httpx.Identity(r), k, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	k, id, err := kindAndID(r, true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	doc, err := h.service.UpdateDraft(r.Context(), httpx.Identity(r), k, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	k, id, err := kindAndID(r, true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Delete(r.Context(), httpx.Identity(r), k, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

type transitionFunc func(ctx context.Context, actor shared.Identity, k Kind, id int64) (Document, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	k, id, err := kindAndID(r, true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := fn(r.Context(), httpx.Identity(r), k, id)
	if err != nil {
		h.logger.Info("document transition rejected", slog.String("kind", string(k)), slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	k, id, err := kindAndID(r, true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ReceiveInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	doc, err := h.service.Receive(r.Context(), httpx.Identity(r), k, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) payment(w http.ResponseWriter, r *http.Request) {
	k, id, err := kindAndID(r, true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in PaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	doc, err := h.service.RecordPayment(r.Context(), httpx.Identity(r), k, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
