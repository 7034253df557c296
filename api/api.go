// Package api serves the contenthub ledger over HTTP.
//
// Reads are open. Mutations require the wallet headers X-Wallet-Address,
// X-Wallet-Nonce and X-Wallet-Signature, which are checked by the
// configured caller.Attestor before the request reaches the ledger.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/caller"
)

// DefaultBasePath is where the routes are mounted when no base path is set.
const DefaultBasePath = "/contenthub"

// Wallet attestation headers.
const (
	HeaderAddress   = "X-Wallet-Address"
	HeaderNonce     = "X-Wallet-Nonce"
	HeaderSignature = "X-Wallet-Signature"
)

// Handler is the HTTP surface of a ledger.
type Handler struct {
	ledger   *contenthub.Ledger
	attestor caller.Attestor
	logger   *slog.Logger
	basePath string
	timeout  time.Duration
	extra    map[string]http.Handler

	router chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithAttestor sets how wallet headers are verified. The default is an
// EthAttestor with the default nonce window.
func WithAttestor(a caller.Attestor) Option {
	return func(h *Handler) { h.attestor = a }
}

// WithBasePath sets the URL prefix for ledger routes.
func WithBasePath(path string) Option {
	return func(h *Handler) { h.basePath = path }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithRoute mounts an extra handler at an absolute path, outside the base
// path. The daemon uses it for /metrics.
func WithRoute(path string, handler http.Handler) Option {
	return func(h *Handler) {
		if h.extra == nil {
			h.extra = make(map[string]http.Handler)
		}
		h.extra[path] = handler
	}
}

// New builds the router for l.
func New(l *contenthub.Ledger, opts ...Option) *Handler {
	h := &Handler{
		ledger:   l,
		attestor: caller.NewEthAttestor(),
		logger:   slog.Default(),
		basePath: DefaultBasePath,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.basePath = "/" + strings.Trim(h.basePath, "/")
	h.router = h.routes()
	return h
}

// BasePath returns the prefix the ledger routes live under.
func (h *Handler) BasePath() string { return h.basePath }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(middleware.Timeout(h.timeout))

	r.Get("/health", h.health)
	for path, handler := range h.extra {
		r.Handle(path, handler)
	}

	r.Route(h.basePath, func(r chi.Router) {
		r.Get("/platform", h.getPlatform)
		r.Get("/platform/stats", h.getStats)
		r.Get("/content/{id}", h.getContentInfo)
		r.Get("/content/{id}/revenue", h.getRevenue)
		r.Get("/content/{id}/access/{address}", h.checkAccess)
		r.Get("/content/{id}/ownership", h.getOwnership)
		r.Get("/users/{address}/payments", h.getUserPayments)
		r.Get("/users/{address}/content", h.getUserContent)
		r.Get("/payments", h.listPayments)

		r.Group(func(r chi.Router) {
			r.Use(h.attest)
			r.Post("/platform", h.initializePlatform)
			r.Post("/content", h.uploadContent)
			r.Post("/content/{id}/view", h.payToView)
			r.Post("/content/{id}/own", h.payToOwn)
			r.Post("/content/{id}/grants", h.grantAccess)
			r.Post("/content/{id}/mint", h.mintOwnership)
		})
	})
	return r
}

// attest verifies the wallet headers and attaches the caller to the request.
func (h *Handler) attest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim := caller.Claim{
			Address:   r.Header.Get(HeaderAddress),
			Nonce:     r.Header.Get(HeaderNonce),
			Signature: r.Header.Get(HeaderSignature),
		}
		addr, err := h.attestor.Attest(r.Context(), claim)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(caller.WithAddress(r.Context(), addr)))
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
