package web

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/gateway"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/v1/file"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/v1/health"
)

type noFiles struct{}

func (noFiles) GetFile(context.Context, string) (domain.FileRecord, error) {
	return domain.FileRecord{}, domain.ErrNotFound
}

func (noFiles) IncrementDownloads(context.Context, string) error {
	return nil
}

func (noFiles) Stats(context.Context) (domain.Stats, error) {
	return domain.Stats{}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testRouter() http.Handler {
	l := log.New(io.Discard, "", 0)
	gw := &gateway.Gateway{Files: noFiles{}, Log: l}
	return newRouter(
		&health.Handler{Log: l, DB: okPinger{}, Cache: okPinger{}},
		&file.Handler{Log: l, Gateway: gw, Files: noFiles{}, Stats: noFiles{}},
		l,
	)
}

func TestRoutes(t *testing.T) {
	h := testRouter()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/v1/healthz", http.StatusOK},
		{http.MethodGet, "/v1/readyz", http.StatusOK},
		{http.MethodGet, "/dl/unknown", http.StatusNotFound},
		{http.MethodHead, "/stream/unknown", http.StatusNotFound},
		{http.MethodPost, "/dl/unknown", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/stats", http.StatusOK},
		{http.MethodGet, "/api/file/unknown", http.StatusNotFound},
		{http.MethodGet, "/swagger/doc.json", http.StatusOK},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: no request id", tt.method, tt.path)
		}
	}
}

func TestSwaggerDocListsRoutes(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	for _, p := range []string{"/dl/{id}", "/stream/{id}", "/api/stats"} {
		if !strings.Contains(w.Body.String(), p) {
			t.Errorf("doc.json lacks %s", p)
		}
	}
}
