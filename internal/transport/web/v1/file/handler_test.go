package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/gateway"
)

var payload = []byte(strings.Repeat("0123456789", 50))

type memFiles struct {
	recs     map[string]domain.FileRecord
	statsErr error
}

func (m *memFiles) GetFile(_ context.Context, id string) (domain.FileRecord, error) {
	rec, ok := m.recs[id]
	if !ok {
		return domain.FileRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memFiles) IncrementDownloads(context.Context, string) error { return nil }

func (m *memFiles) Stats(context.Context) (domain.Stats, error) {
	if m.statsErr != nil {
		return domain.Stats{}, m.statsErr
	}
	return domain.Stats{TotalFiles: int64(len(m.recs)), TotalSize: 500, TotalDownloads: 7}, nil
}

// urlSource resolves every handle to one upstream URL.
type urlSource struct{ url string }

func (u urlSource) Resolve(context.Context, string) (string, error) { return u.url, nil }

func (u urlSource) Fetch(ctx context.Context, url, rangeHeader string) (*http.Response, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errors.New(resp.Status)
	}
	return resp, nil
}

func (u urlSource) Invalidate(context.Context, string) {}

func newTestServer(t *testing.T, upstream http.HandlerFunc) (*httptest.Server, *memFiles) {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	discard := log.New(io.Discard, "", 0)
	files := &memFiles{recs: map[string]domain.FileRecord{
		"vid42": {ID: "vid42", FileID: "BAAC", Name: "clip.webm", SizeBytes: int64(len(payload)), MIME: "video/webm"},
	}}
	h := &Handler{
		Log: discard,
		Gateway: &gateway.Gateway{
			Files:          files,
			Direct:         &gateway.Direct{Source: urlSource{up.URL}, ResolveTimeout: time.Second, Log: discard},
			Log:            discard,
			CounterTimeout: time.Second,
		},
		Files: files,
		Stats: files,
		Bot:   domain.BotInfo{Username: "filelink_bot", Name: "File Link"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /dl/{id}", h.Download)
	mux.HandleFunc("GET /stream/{id}", h.Stream)
	mux.HandleFunc("GET /api/file/{id}", h.GetFile)
	mux.HandleFunc("GET /api/stats", h.GetStats)
	mux.HandleFunc("GET /api/bot-info", h.GetBotInfo)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, files
}

func serveContent(w http.ResponseWriter, r *http.Request) {
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(payload))
}

func get(t *testing.T, url, rangeHeader string) (*http.Response, []byte, error) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func TestDownloadAndStream(t *testing.T) {
	srv, _ := newTestServer(t, serveContent)

	resp, body, err := get(t, srv.URL+"/dl/vid42", "bytes=10-29")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusPartialContent || !bytes.Equal(body, payload[10:30]) {
		t.Errorf("download: status = %d body = %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename=clip.webm` {
		t.Errorf("download disposition = %q", got)
	}

	resp, body, err = get(t, srv.URL+"/stream/vid42", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, payload) {
		t.Errorf("stream: status = %d, %d bytes", resp.StatusCode, len(body))
	}
	if got := resp.Header.Get("Content-Disposition"); got != `inline; filename=clip.webm` {
		t.Errorf("stream disposition = %q", got)
	}
	if resp.Header.Get("Content-Type") != "video/webm" || resp.Header.Get("Accept-Ranges") != "bytes" {
		t.Errorf("headers = %v", resp.Header)
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv, _ := newTestServer(t, serveContent)

	for _, id := range []string{"nope", "bad%20id"} {
		resp, body, _ := get(t, srv.URL+"/dl/"+id, "")
		if resp.StatusCode != http.StatusNotFound || strings.TrimSpace(string(body)) != "File not found" {
			t.Errorf("%s: status = %d body = %q", id, resp.StatusCode, body)
		}
	}
}

func TestDownloadAbortsBrokenStream(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "500")
		w.Write(payload[:100])
		w.(http.Flusher).Flush()
		time.Sleep(50 * time.Millisecond)
		panic(http.ErrAbortHandler)
	})

	resp, body, err := get(t, srv.URL+"/dl/vid42", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if err == nil {
		t.Errorf("client read %d bytes without error; the connection must be cut", len(body))
	}
}

func TestAPI(t *testing.T) {
	srv, files := newTestServer(t, serveContent)

	var file struct {
		Data domain.FileRecord `json:"data"`
	}
	resp, body, _ := get(t, srv.URL+"/api/file/vid42", "")
	if err := json.Unmarshal(body, &file); err != nil || resp.StatusCode != http.StatusOK || file.Data.Name != "clip.webm" {
		t.Errorf("file: status = %d body = %s", resp.StatusCode, body)
	}

	resp, _, _ = get(t, srv.URL+"/api/file/missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file: status = %d", resp.StatusCode)
	}

	var stats struct {
		Data domain.Stats `json:"data"`
	}
	_, body, _ = get(t, srv.URL+"/api/stats", "")
	if err := json.Unmarshal(body, &stats); err != nil || stats.Data.TotalDownloads != 7 {
		t.Errorf("stats body = %s", body)
	}

	files.statsErr = errors.New("db down")
	resp, body, _ = get(t, srv.URL+"/api/stats", "")
	stats.Data = domain.Stats{}
	if err := json.Unmarshal(body, &stats); err != nil || resp.StatusCode != http.StatusOK || stats.Data != (domain.Stats{}) {
		t.Errorf("stats on error: status = %d body = %s", resp.StatusCode, body)
	}

	var bot struct {
		Data domain.BotInfo `json:"data"`
	}
	_, body, _ = get(t, srv.URL+"/api/bot-info", "")
	if err := json.Unmarshal(body, &bot); err != nil || bot.Data.Username != "filelink_bot" {
		t.Errorf("bot-info body = %s", body)
	}
}
