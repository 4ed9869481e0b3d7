package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/console/internal/domain"
	"github.com/crewdesk/console/internal/handler"
)

// mockProvisioner is a test double for handler.Provisioner.
type mockProvisioner struct {
	provision func(ctx context.Context, form *domain.TourForm) (domain.Tour, error)
}

func (m *mockProvisioner) ProvisionTour(ctx context.Context, form *domain.TourForm) (domain.Tour, error) {
	return m.provision(ctx, form)
}

// mockCatalog is a test double for handler.Catalog.
// Set only the method fields your test needs.
type mockCatalog struct {
	listTours     func(ctx context.Context) ([]domain.Tour, error)
	getTour       func(ctx context.Context, id uuid.UUID) (domain.TourDetail, error)
	listJobs      func(ctx context.Context) ([]domain.Job, error)
	listLocations func(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Location], error)
}

func (m *mockCatalog) ListTours(ctx context.Context) ([]domain.Tour, error) {
	return m.listTours(ctx)
}
func (m *mockCatalog) GetTour(ctx context.Context, id uuid.UUID) (domain.TourDetail, error) {
	return m.getTour(ctx, id)
}
func (m *mockCatalog) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return m.listJobs(ctx)
}
func (m *mockCatalog) ListLocations(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Location], error) {
	return m.listLocations(ctx, p)
}

type mockFeed struct {
	recent func(limit int) []domain.Notification
}

func (m *mockFeed) Recent(limit int) []domain.Notification { return m.recent(limit) }

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.Provisioner      = (*mockProvisioner)(nil)
	_ handler.Catalog          = (*mockCatalog)(nil)
	_ handler.NotificationFeed = (*mockFeed)(nil)
	_ handler.Pinger           = mockPinger{}
)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given deps into its chi router,
// the same way main.go does in production.
func newHTTPHandler(d handler.Deps) http.Handler {
	d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(d).Routes()
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// ---- routing ---------------------------------------------------------------

func TestRoutes_UnknownPath_404JSON(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Deps{}), http.MethodGet, "/venues", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestRoutes_Metrics(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Deps{}), http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRoutes_APIDoc(t *testing.T) {
	doc := []byte("openapi: 3.0.3\n")

	rec := do(t, newHTTPHandler(handler.Deps{APIDoc: doc}), http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	require.Equal(t, string(doc), rec.Body.String())

	rec = do(t, newHTTPHandler(handler.Deps{}), http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
