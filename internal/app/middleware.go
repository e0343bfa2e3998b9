package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/mayondo/mwf/internal/observability"
	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/shared"
)

// CSRFHeader carries the token issued by GET /auth/csrf on unsafe requests.
const CSRFHeader = "X-CSRF-Token"

const (
	defaultRequestTimeout = 30 * time.Second
	requestsPerMinute     = 60
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// MiddlewareStack installs the service middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	timeout := defaultRequestTimeout
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		SessionMiddleware(cfg.Logger, cfg.SessionManager),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		SecureHeaders(cfg.Logger, cfg.Config.IsProduction()),
		NoStore,
		middleware.Compress(5),
		httprate.Limit(requestsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		CSRFMiddleware(cfg.Logger, cfg.CSRFManager),
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return chain
}

// SessionMiddleware loads the session into the request context and persists it
// once the response starts.
func SessionMiddleware(logger *slog.Logger, manager *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := manager.Load(ctx, r)
			if err != nil {
				logger.Error("load session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "session unavailable")
				return
			}
			ctx = shared.ContextWithSession(ctx, sess)
			req := r.WithContext(ctx)
			cw := &committingWriter{ResponseWriter: w, commit: func() {
				if err := manager.Commit(ctx, w, req, sess); err != nil {
					logger.Error("commit session", slog.Any("error", err))
				}
			}}
			next.ServeHTTP(cw, req)
			cw.flushCommit()
		})
	}
}

// committingWriter saves the session before the first header byte goes out.
type committingWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *committingWriter) flushCommit() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit()
}

func (w *committingWriter) WriteHeader(status int) {
	w.flushCommit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *committingWriter) Write(p []byte) (int, error) {
	w.flushCommit()
	return w.ResponseWriter.Write(p)
}

// SecureHeaders applies the unrolled/secure header policy for a JSON API.
func SecureHeaders(logger *slog.Logger, production bool) func(http.Handler) http.Handler {
	policy := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.Process(w, r); err != nil {
				logger.Warn("secure headers blocked request", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware rejects unsafe requests whose X-CSRF-Token does not match
// the session token.
func CSRFMiddleware(logger *slog.Logger, manager *shared.CSRFManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			err := manager.VerifyToken(r.Context(), shared.SessionFromContext(r.Context()), r.Header.Get(CSRFHeader))
			if err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.UserSafeMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// NoStore keeps authenticated responses out of browser and proxy caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
