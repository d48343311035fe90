package partybalance

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

func newTestRouter(src LedgerSource) http.Handler {
	h := NewHandler(slog.Default(), NewService(src, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := shared.Identity{UserID: 1, Role: shared.RoleUser, CompanyID: 1}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	})
	r.Get("/parties/{id}/outstanding", h.PartyOutstanding)
	r.Get("/parties/{id}/statement", h.PartyStatement)
	return r
}

func TestHandlerOutstanding(t *testing.T) {
	router := newTestRouter(scenario())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parties/1/outstanding", nil).WithContext(context.Background()))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PartyID     int64  `json:"party_id"`
		Outstanding string `json:"outstanding"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, int64(1), body.PartyID)
	require.Equal(t, "1300", body.Outstanding)
}

func TestHandlerUnknownPartyIsNotFound(t *testing.T) {
	router := newTestRouter(newMemorySource())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parties/5/statement", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
