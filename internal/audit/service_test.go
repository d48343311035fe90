package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

type stubStore struct {
	rows     []Entry
	lastCall WindowParams
}

func (s *stubStore) Window(_ context.Context, p WindowParams) ([]Entry, error) {
	s.lastCall = p
	if int(p.Limit) < len(s.rows) {
		return s.rows[:p.Limit], nil
	}
	return s.rows, nil
}

var controller = shared.Identity{UserID: 7, Role: shared.RoleController, CompanyID: 3}

func entries(n int) []Entry {
	out := make([]Entry, n)
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = Entry{ID: int64(n - i), At: base.Add(-time.Duration(i) * time.Hour), Action: "document:confirm", Entity: "document"}
	}
	return out
}

func TestTimelinePagingAndFilters(t *testing.T) {
	store := &stubStore{rows: entries(3)}
	svc := NewService(store)

	res, err := svc.Timeline(context.Background(), controller, Filters{
		PageSize: 2,
		Entity:   " document ",
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	require.True(t, res.Paging.HasNext)
	require.Equal(t, 2, res.Paging.NextPage)
	require.Zero(t, res.Paging.PrevPage)

	require.Equal(t, int64(3), store.lastCall.CompanyID)
	require.Equal(t, int32(3), store.lastCall.Limit)
	require.Equal(t, int32(0), store.lastCall.Offset)
	require.Equal(t, pgtype.Text{String: "document", Valid: true}, store.lastCall.Entity)
	require.False(t, store.lastCall.Action.Valid)
	require.False(t, store.lastCall.ActorID.Valid)
	require.True(t, store.lastCall.FromAt.Valid)
	require.False(t, store.lastCall.ToAt.Valid)
}

func TestTimelineClampsPageSize(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store)

	res, err := svc.Timeline(context.Background(), controller, Filters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	require.NotNil(t, res.Entries)
	require.False(t, res.Paging.HasNext)
	require.Equal(t, 2, res.Paging.PrevPage)
	require.Equal(t, int32(maxPageSize+1), store.lastCall.Limit)
	require.Equal(t, int32(2*maxPageSize), store.lastCall.Offset)
}

func TestTimelineRejectsReadOnlyRoles(t *testing.T) {
	svc := NewService(&stubStore{})
	_, err := svc.Timeline(context.Background(), shared.Identity{UserID: 1, Role: shared.RoleManager, CompanyID: 3}, Filters{})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestTimelineRejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubStore{})
	_, err := svc.Timeline(context.Background(), controller, Filters{
		From: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestHandlerTimeline(t *testing.T) {
	store := &stubStore{rows: entries(1)}
	h := NewHandler(slog.Default(), NewService(store))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), controller)))
		})
	})
	r.Route("/audit", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/?from=2024-03-01&to=2024-03-10&actor=7&action=document:confirm", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	require.Equal(t, "document:confirm", body.Entries[0].Action)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), store.lastCall.ToAt.Time)
	require.Equal(t, pgtype.Int8{Int64: 7, Valid: true}, store.lastCall.ActorID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/?from=March", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
