package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/billease/billease/internal/shared"
)

// IDParam parses a positive int64 URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.E(shared.KindValidation, "httpx.IDParam", name).Withf("invalid %s", name)
	}
	return id, nil
}

// Identity returns the caller identity installed by the identity middleware.
func Identity(r *http.Request) shared.Identity {
	id, _ := shared.IdentityFromContext(r.Context())
	return id
}
