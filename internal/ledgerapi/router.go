package ledgerapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/api/middleware"
)

// RouterConfig wires the ledger API server.
type RouterConfig struct {
	Handler       *Handler
	AllowedOrigin string
	// AcceptUploads mounts PUT /uploads/* for stores that hand out URLs
	// pointing back at this server.
	AcceptUploads bool
	Log           zerolog.Logger
}

// NewRouter builds the ledger API handler. Preflight requests on any path
// get 204 from the CORS middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	r.Get("/healthz", h.Health)
	r.Get("/transactions", h.Transactions)
	r.Get("/summary", h.Summary)
	r.Post("/predict", h.Predict)
	r.Post("/upload-url", h.UploadURL)

	if cfg.AcceptUploads {
		r.Put("/uploads/*", h.PutObject)
	}

	return r
}
