package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/api/middleware"
	"github.com/dvloznov/acct-ai/internal/ledger"
	"github.com/dvloznov/acct-ai/internal/session"
	"github.com/dvloznov/acct-ai/internal/uploads"
)

const (
	anonymousSlot   = "anonymous"
	maxUploadMemory = 32 << 20
	uploadFormField = "files"
)

// maxUploadBody caps the whole multipart request body.
var maxUploadBody int64 = 256 << 20

// Handler serves the dashboard JSON API.
type Handler struct {
	svc      *Service
	coord    *uploads.Coordinator
	sessions session.Store
	guard    middleware.Guard
	log      zerolog.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(svc *Service, coord *uploads.Coordinator, sessions session.Store, guard middleware.Guard, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		coord:    coord,
		sessions: sessions,
		guard:    guard,
		log:      log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/session. Any well-formed email signs in.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		middleware.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.sessions.SetSession(w, email); err != nil {
		h.log.Error().Err(err).Msg("Failed to start session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"redirect": h.guard.HomePath})
}

// Logout handles DELETE /api/session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Forget(h.slot(r))
	h.sessions.ClearSession(w)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"redirect": h.guard.SignInPath})
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.svc.Snapshot(r.Context(), h.slot(r)))
}

// Summary handles GET /api/summary?limit=N.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	limit := ledger.ParseLimit(r.URL.Query().Get("limit"))
	middleware.WriteJSON(w, http.StatusOK, h.svc.Summary(r.Context(), h.slot(r), limit))
}

// Predict handles POST /api/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.svc.Prediction(r.Context(), h.slot(r)))
}

// ListUploads handles GET /api/uploads.
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	items, err := h.coord.History(r.Context(), h.slot(r))
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load upload history")
		items = []uploads.Item{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Upload handles POST /api/uploads with multipart field "files".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadFormField]
	if len(headers) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "no files provided")
		return
	}

	files := make([]uploads.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileFromHeader(fh))
	}

	// Uploads run to completion even if the browser goes away.
	ctx := context.WithoutCancel(r.Context())
	batch := h.coord.UploadAll(ctx, h.slot(r), files)

	middleware.WriteJSON(w, http.StatusOK, batch)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// slot names the upload and cache partition for the request.
func (h *Handler) slot(r *http.Request) string {
	if sub, ok := h.sessions.(session.Subjecter); ok {
		if subject, ok := sub.Subject(r); ok {
			return subject
		}
	}
	return anonymousSlot
}

func fileFromHeader(fh *multipart.FileHeader) uploads.File {
	return uploads.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
