package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/billease/billease/internal/observability"
	"github.com/billease/billease/internal/platform/httpx"
	"github.com/billease/billease/internal/shared"
)

// Identity headers set by the trusted gateway in front of the API.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderCompanyID = "X-Company-ID"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the BillEase middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	perMinute := 600
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		perMinute = cfg.Config.RateLimitPerMinute
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					httpx.Problem(w, http.StatusBadRequest, "Blocked", "request rejected by security policy")
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(perMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP, keyByCompany)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

func keyByCompany(r *http.Request) (string, error) {
	return r.Header.Get(HeaderCompanyID), nil
}

// RequireIdentity reads the caller identity from gateway headers and stores
// it in the request context. Missing or malformed headers are rejected with
// 401 before any handler runs.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromHeaders(r.Header)
			if err != nil {
				logger.Warn("reject unauthenticated request", slog.String("path", r.URL.Path), slog.String("reason", err.Error()))
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	}
}

type headerError string

func (e headerError) Error() string { return string(e) }

func identityFromHeaders(h http.Header) (shared.Identity, error) {
	userID, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderUserID)), 10, 64)
	if err != nil || userID <= 0 {
		return shared.Identity{}, headerError(HeaderUserID + " missing or invalid")
	}
	companyID, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderCompanyID)), 10, 64)
	if err != nil || companyID <= 0 {
		return shared.Identity{}, headerError(HeaderCompanyID + " missing or invalid")
	}
	role, ok := shared.ParseRole(h.Get(HeaderUserRole))
	if !ok {
		return shared.Identity{}, headerError(HeaderUserRole + " missing or unknown")
	}
	return shared.Identity{UserID: userID, Role: role, CompanyID: companyID}, nil
}
