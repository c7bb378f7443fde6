package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"

	"lecturehub/internal/auth"
	"lecturehub/internal/authz"
	"lecturehub/internal/httpx"
)

// Mounter is implemented by every feature handler.
type Mounter interface {
	Mount(r chi.Router, gate *authz.Gate)
}

type RouterParams struct {
	Logger      *slog.Logger
	Resolver    *auth.Resolver
	Gate        *authz.Gate
	CORSOrigins []string
	Production  bool
	Handlers    []Mounter
}

// NewRouter builds the API. Every route under /api/v1 passes through the
// identity middleware and is gated by its own action.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "no-referrer",
		SSLRedirect:        p.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: p.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(p.Resolver, p.Logger))
		for _, h := range p.Handlers {
			h.Mount(r, p.Gate)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "not found")
	})
	return r
}
