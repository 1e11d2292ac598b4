package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/api/middleware"
	"github.com/dvloznov/acct-ai/internal/apiclient"
	"github.com/dvloznov/acct-ai/internal/session"
	"github.com/dvloznov/acct-ai/internal/uploads"
	"github.com/dvloznov/acct-ai/internal/uploads/inmemory"
)

type fakeUploader struct{}

func (fakeUploader) RequestUploadURL(ctx context.Context, filename, contentType string) (apiclient.UploadTarget, error) {
	if filename == "reject.pdf" {
		return apiclient.UploadTarget{}, &apiclient.StatusError{Op: "RequestUploadURL", StatusCode: 500}
	}
	return apiclient.UploadTarget{UploadURL: "https://storage/" + filename, Key: "uploads/" + filename}, nil
}

func (fakeUploader) PutObject(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	_, err := io.Copy(io.Discard, body)
	return err
}

func newTestRouter(t *testing.T) (http.Handler, *session.CookieStore) {
	t.Helper()
	sessions, err := session.NewCookieStore(strings.Repeat("k", 32), "acct_session", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	api := &MockAPI{
		FetchTransactionsFunc: func(ctx context.Context) (apiclient.TransactionsPayload, error) {
			return samplePayload(), nil
		},
	}
	log := zerolog.Nop()
	svc := NewService(api, time.Minute, log)
	coord := uploads.NewCoordinator(fakeUploader{}, inmemory.NewStore(), log)
	guard := middleware.DefaultGuard()

	router := NewRouter(RouterConfig{
		Handler:  NewHandler(svc, coord, sessions, guard, log),
		Sessions: sessions,
		Guard:    guard,
		Log:      log,
	})
	return router, sessions
}

func signIn(t *testing.T, router http.Handler) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"email":"Owner@Example.com"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in status = %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func serve(router http.Handler, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PageGuard(t *testing.T) {
	router, _ := newTestRouter(t)
	cookies := signIn(t, router)

	tests := []struct {
		name         string
		path         string
		cookies      []*http.Cookie
		wantStatus   int
		wantLocation string
	}{
		{name: "dashboard anonymous", path: "/dashboard/settings", wantStatus: http.StatusTemporaryRedirect, wantLocation: "/login"},
		{name: "login signed in", path: "/login", cookies: cookies, wantStatus: http.StatusTemporaryRedirect, wantLocation: "/dashboard"},
		{name: "about anonymous", path: "/about", wantStatus: http.StatusOK},
		{name: "dashboard signed in", path: "/dashboard", cookies: cookies, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodGet, tt.path, nil), tt.cookies)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestRouter_APIRequiresSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	cookies := signIn(t, router)
	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Series) != 2 || snap.Series[0].Period != "Apr 2024" {
		t.Errorf("Series = %+v", snap.Series)
	}
}

func TestRouter_Login(t *testing.T) {
	router, sessions := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"email":""}`)), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty email status = %d, want 400", rec.Code)
	}

	cookies := signIn(t, router)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if subject, ok := sessions.Subject(req); !ok || subject != "owner@example.com" {
		t.Errorf("Subject() = %q, %v", subject, ok)
	}

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/api/session", nil), cookies)
	if rec.Code != http.StatusOK {
		t.Errorf("logout status = %d", rec.Code)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("logout cookies = %+v", cleared)
	}
}

func TestRouter_UploadBatch(t *testing.T) {
	router, _ := newTestRouter(t)
	cookies := signIn(t, router)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range []string{"a.pdf", "reject.pdf", "c.pdf"} {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("content of " + name))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, req, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var batch uploads.Batch
	if err := json.Unmarshal(rec.Body.Bytes(), &batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.Synced != 2 || batch.Failed != 1 {
		t.Fatalf("batch = %+v", batch)
	}
	if batch.Items[1].Filename != "reject.pdf" || batch.Items[1].Status != uploads.StatusFailed {
		t.Errorf("item 1 = %+v", batch.Items[1])
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/uploads", nil), cookies)
	var history struct {
		Items []uploads.Item `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Items) != 3 {
		t.Errorf("history has %d items, want 3", len(history.Items))
	}
}

func TestRouter_UploadWithoutFiles(t *testing.T) {
	router, _ := newTestRouter(t)
	cookies := signIn(t, router)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	mw.WriteField("note", "nothing attached")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := serve(router, req, cookies); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRouter_UploadTooLarge(t *testing.T) {
	prev := maxUploadBody
	maxUploadBody = 1 << 10
	t.Cleanup(func() { maxUploadBody = prev })

	router, _ := newTestRouter(t)
	cookies := signIn(t, router)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("files", "huge.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(bytes.Repeat([]byte("x"), 4<<10))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, req, cookies)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/uploads", nil), cookies)
	var history struct {
		Items []uploads.Item `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Items) != 0 {
		t.Errorf("history has %d items, want 0", len(history.Items))
	}
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}
