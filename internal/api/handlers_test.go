package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/auth"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/config"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/convert"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubConverter returns a fixed result or error
type stubConverter struct {
	res *models.ConversionResult
	err error
}

func (c *stubConverter) ConvertAndUpload(ctx context.Context, fileID, targetFolder string) (*models.ConversionResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.res, nil
}

type stubDrive struct{}

func (stubDrive) DownloadItem(ctx context.Context, itemID string) (string, []byte, error) {
	return "", nil, nil
}

func (stubDrive) Upload(ctx context.Context, folderID, name string, content []byte, contentType string) (models.RemoteItem, error) {
	return models.RemoteItem{}, nil
}

func (stubDrive) ListChildren(ctx context.Context, folderID string) ([]models.RemoteItem, error) {
	return nil, nil
}

type stubFolders struct{}

func (stubFolders) TodayName() string { return "November 12" }

func (stubFolders) Ensure(ctx context.Context, name string) (string, error) { return "f1", nil }

func (stubFolders) Lookup(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

func newTestHandler(environment string, authenticated bool, conv convert.Converter) http.Handler {
	creds := auth.NewStore(auth.Config{TokenURL: "http://invalid"}, testLogger())
	if authenticated {
		creds = auth.NewStore(auth.Config{TokenURL: "http://invalid", AccessToken: "tok"}, testLogger())
	}
	if conv == nil {
		conv = &stubConverter{res: &models.ConversionResult{Success: true}}
	}
	h := NewHandler(Deps{
		Config:   &config.Config{Environment: environment},
		Creds:    creds,
		Pipeline: conv,
		Batch:    convert.NewBatchOrchestrator(conv, stubDrive{}, stubFolders{}, 1, testLogger()),
		Logger:   testLogger(),
	})
	return h.SetupRoutes()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("production", true, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "OK" || body["hasAccessToken"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestHomepageReflectsAuthState(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("production", false, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/auth/login") {
		t.Errorf("unauthenticated homepage has no login link")
	}

	rec = httptest.NewRecorder()
	newTestHandler("production", true, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Contains(rec.Body.String(), "/auth/login") {
		t.Errorf("authenticated homepage still shows the login link")
	}
}

func TestAPIRequiresCredential(t *testing.T) {
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/files"},
		{http.MethodGet, "/api/convert/history"},
		{http.MethodPost, "/api/convert/eml-to-pdf"},
	}
	handler := newTestHandler("production", false, nil)

	for _, rt := range routes {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(rt.method, rt.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", rt.method, rt.path, rec.Code)
			continue
		}
		body := decodeBody(t, rec)
		if body["redirectTo"] != "/auth/login" {
			t.Errorf("%s %s: body = %v, want a login redirect hint", rt.method, rt.path, body)
		}
	}
}

func TestLoginRedirects(t *testing.T) {
	creds := auth.NewStore(auth.Config{
		AuthorizeURL: "https://login.example.com/authorize",
		ClientID:     "client-1",
	}, testLogger())
	h := NewHandler(Deps{
		Config: &config.Config{},
		Creds:  creds,
		Batch:  convert.NewBatchOrchestrator(&stubConverter{}, stubDrive{}, stubFolders{}, 1, testLogger()),
		Logger: testLogger(),
	})

	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://login.example.com/authorize?") {
		t.Errorf("Location = %q", loc)
	}
	if !strings.Contains(loc, "client_id=client-1") {
		t.Errorf("Location %q misses the client id", loc)
	}
}

func TestCallbackWithoutCode(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("production", false, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConvertSuccess(t *testing.T) {
	conv := &stubConverter{res: &models.ConversionResult{
		Success:       true,
		OriginalFile:  "invoice.eml",
		ConvertedFile: "invoice.pdf",
		Folder:        "Archive",
	}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/convert/eml-to-pdf",
		strings.NewReader(`{"fileId":"id-1","targetFolder":"Archive"}`))
	newTestHandler("production", true, conv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["convertedFile"] != "invoice.pdf" {
		t.Errorf("body = %v", body)
	}
}

func TestConvertRequiresFileID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/convert/eml-to-pdf", strings.NewReader(`{}`))
	newTestHandler("production", true, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConvertErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind errs.Kind
		want int
	}{
		{errs.KindMalformedMessage, http.StatusUnprocessableEntity},
		{errs.KindReauthRequired, http.StatusUnauthorized},
		{errs.KindRemoteStore, http.StatusBadGateway},
		{errs.KindRenderFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		conv := &stubConverter{err: errs.New(tt.kind, "boom")}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/convert/eml-to-pdf",
			strings.NewReader(`{"fileId":"id-1"}`))
		newTestHandler("production", true, conv).ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("kind %s: status = %d, want %d", tt.kind, rec.Code, tt.want)
			continue
		}
		body := decodeBody(t, rec)
		errObj, ok := body["error"].(map[string]any)
		if !ok {
			t.Errorf("kind %s: body = %v", tt.kind, body)
			continue
		}
		if errObj["kind"] != string(tt.kind) {
			t.Errorf("kind in body = %v, want %s", errObj["kind"], tt.kind)
		}
	}
}

func TestErrorDetailOnlyInStaging(t *testing.T) {
	failure := &stubConverter{err: errs.Remote(503, "drive down", `{"error":"serviceNotAvailable"}`)}

	for _, tt := range []struct {
		environment string
		wantDetail  bool
	}{
		{"production", false},
		{"staging", true},
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/convert/eml-to-pdf",
			strings.NewReader(`{"fileId":"id-1"}`))
		newTestHandler(tt.environment, true, failure).ServeHTTP(rec, req)

		gotDetail := strings.Contains(rec.Body.String(), "serviceNotAvailable")
		if gotDetail != tt.wantDetail {
			t.Errorf("%s: detail exposed = %v, want %v\n%s", tt.environment, gotDetail, tt.wantDetail, rec.Body.String())
		}
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("production", true, nil).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/convert/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if records, ok := body["records"].([]any); !ok || len(records) != 0 {
		t.Errorf("body = %v, want empty records", body)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	handler := newTestHandler("production", true, nil)
	for _, limit := range []string{"abc", "-1", "0"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/convert/history?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestBatchEndpointReturnsReport(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("production", true, nil).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/convert/cron", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	report, ok := body["report"].(map[string]any)
	if !ok {
		t.Fatalf("body = %v", body)
	}
	if report["folder"] != "November 12" {
		t.Errorf("report = %v", report)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("production", true, nil).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
