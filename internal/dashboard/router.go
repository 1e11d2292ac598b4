package dashboard

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dvloznov/acct-ai/internal/api/middleware"
	"github.com/dvloznov/acct-ai/internal/session"
)

// RouterConfig wires the dashboard server.
type RouterConfig struct {
	Handler             *Handler
	Sessions            session.Store
	Guard               middleware.Guard
	StaticDir           string
	AllowedOrigin       string
	UploadRatePerMinute int
	Log                 zerolog.Logger
}

// NewRouter builds the dashboard HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler
	rpm := cfg.UploadRatePerMinute
	if rpm < 1 {
		rpm = 30
	}
	uploadLimiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Login)
		r.Delete("/session", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(cfg.Sessions))
			r.Get("/dashboard", h.Dashboard)
			r.Get("/summary", h.Summary)
			r.Post("/predict", h.Predict)
			r.Get("/uploads", h.ListUploads)
			r.With(middleware.RateLimit(uploadLimiter, cfg.Log)).Post("/uploads", h.Upload)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RouteGuard(cfg.Guard, cfg.Sessions))
		r.Handle("/*", pages(cfg.StaticDir))
	})

	return r
}

// pages serves the pre-built site, or a plain placeholder when none is configured.
func pages(staticDir string) http.Handler {
	if staticDir != "" {
		return http.FileServer(http.Dir(staticDir))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "acct-ai %s\n", r.URL.Path)
	})
}
