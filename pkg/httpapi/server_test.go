package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"teahouse/pkg/storage/memorydriver"
	"teahouse/pkg/tea"
)

// newTestServer serves the full handler over a fresh store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := sql.OpenDB(memorydriver.NewConnector())
	if err := memorydriver.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	svc := tea.NewService(tea.NewRepository(db))
	ts := httptest.NewServer(New(svc, zaptest.NewLogger(t)).Handler())
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
		db.Close()
	})
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, http.Header, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header, string(data)
}

func decodeTea(t *testing.T, body string) tea.Tea {
	t.Helper()
	var got tea.Tea
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return got
}

func decodeTeas(t *testing.T, body string) []tea.Tea {
	t.Helper()
	var got []tea.Tea
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return got
}

func TestStaticEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		path string
		want string
	}{
		{path: "/", want: GreetingText},
		{path: "/ice-tea", want: IceTeaText},
		{path: "/twitter", want: TwitterText},
	}
	for _, tt := range tests {
		status, header, body := do(t, ts, http.MethodGet, tt.path, "")
		if status != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", tt.path, status)
		}
		if body != tt.want {
			t.Fatalf("GET %s body = %q, want %q", tt.path, body, tt.want)
		}
		if ct := header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Fatalf("GET %s content type = %q", tt.path, ct)
		}
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	if status, _, _ := do(t, ts, http.MethodGet, "/coffee", ""); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestCreateThenList(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, header, body := do(t, ts, http.MethodPost, "/teas", `{"name":"Green","price":3}`)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (%s)", status, body)
	}
	if ct := header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if got, want := decodeTea(t, body), (tea.Tea{ID: 1, Name: "Green", Price: 3}); got != want {
		t.Fatalf("created = %+v, want %+v", got, want)
	}

	status, _, body = do(t, ts, http.MethodGet, "/teas", "")
	if status != http.StatusOK {
		t.Fatalf("list status = %d, want 200", status)
	}
	want := []tea.Tea{{ID: 1, Name: "Green", Price: 3}}
	if got := decodeTeas(t, body); !reflect.DeepEqual(got, want) {
		t.Fatalf("list = %+v, want %+v", got, want)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, _, body := do(t, ts, http.MethodGet, "/teas", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if strings.TrimSpace(body) != "[]" {
		t.Fatalf("body = %q, want []", body)
	}
}

func TestCreateWithoutBody(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, _, body := do(t, ts, http.MethodPost, "/teas", "")
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if got, want := decodeTea(t, body), (tea.Tea{ID: 1}); got != want {
		t.Fatalf("created = %+v, want %+v", got, want)
	}
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	if status, _, _ := do(t, ts, http.MethodPost, "/teas", `{"name":`); status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if _, _, body := do(t, ts, http.MethodGet, "/teas", ""); len(decodeTeas(t, body)) != 0 {
		t.Fatalf("collection changed after rejected create: %s", body)
	}
}

func TestItemNotFound(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	do(t, ts, http.MethodPost, "/teas", `{"name":"Green","price":3}`)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/teas/2"},
		{method: http.MethodGet, path: "/teas/abc"},
		{method: http.MethodPut, path: "/teas/2", body: `{"name":"X","price":9}`},
		{method: http.MethodPut, path: "/teas/abc", body: `{"name":"X","price":9}`},
		{method: http.MethodDelete, path: "/teas/2"},
		{method: http.MethodDelete, path: "/teas/abc"},
	}
	for _, tt := range tests {
		status, header, body := do(t, ts, tt.method, tt.path, tt.body)
		if status != http.StatusNotFound {
			t.Fatalf("%s %s status = %d, want 404", tt.method, tt.path, status)
		}
		if strings.TrimSpace(body) != notFoundMessage {
			t.Fatalf("%s %s body = %q, want %q", tt.method, tt.path, body, notFoundMessage)
		}
		if ct := header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Fatalf("%s %s content type = %q", tt.method, tt.path, ct)
		}
	}

	want := []tea.Tea{{ID: 1, Name: "Green", Price: 3}}
	if _, _, body := do(t, ts, http.MethodGet, "/teas", ""); !reflect.DeepEqual(decodeTeas(t, body), want) {
		t.Fatalf("collection changed: %s", body)
	}
}

func TestGetByID(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	do(t, ts, http.MethodPost, "/teas", `{"name":"Green","price":3}`)
	do(t, ts, http.MethodPost, "/teas", `{"name":"Black","price":2.5}`)

	status, _, body := do(t, ts, http.MethodGet, "/teas/2", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got, want := decodeTea(t, body), (tea.Tea{ID: 2, Name: "Black", Price: 2.5}); got != want {
		t.Fatalf("get = %+v, want %+v", got, want)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	do(t, ts, http.MethodPost, "/teas", `{"name":"Green","price":3}`)

	status, _, body := do(t, ts, http.MethodPut, "/teas/1", `{"id":5,"name":"X","price":9}`)
	if status != http.StatusOK {
		t.Fatalf("update status = %d, want 200 (%s)", status, body)
	}
	want := tea.Tea{ID: 1, Name: "X", Price: 9}
	if got := decodeTea(t, body); got != want {
		t.Fatalf("updated = %+v, want %+v", got, want)
	}

	_, _, body = do(t, ts, http.MethodGet, "/teas/1", "")
	if got := decodeTea(t, body); got != want {
		t.Fatalf("get after update = %+v, want %+v", got, want)
	}
}

func TestUpdateRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	do(t, ts, http.MethodPost, "/teas", `{"name":"Green","price":3}`)

	if status, _, _ := do(t, ts, http.MethodPut, "/teas/1", `not json`); status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestDeleteScenario(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	_, _, body := do(t, ts, http.MethodPost, "/teas", `{"name":"Chai","price":2}`)
	if got := decodeTea(t, body); got.ID != 1 {
		t.Fatalf("chai id = %d, want 1", got.ID)
	}
	_, _, body = do(t, ts, http.MethodPost, "/teas", `{"name":"Oolong","price":4}`)
	if got := decodeTea(t, body); got.ID != 2 {
		t.Fatalf("oolong id = %d, want 2", got.ID)
	}

	status, _, body := do(t, ts, http.MethodDelete, "/teas/1", "")
	if status != http.StatusNonAuthoritativeInfo {
		t.Fatalf("delete status = %d, want 203", status)
	}
	if body != "deleted" {
		t.Fatalf("delete body = %q, want %q", body, "deleted")
	}

	if status, _, _ := do(t, ts, http.MethodGet, "/teas/1", ""); status != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", status)
	}
	want := []tea.Tea{{ID: 2, Name: "Oolong", Price: 4}}
	if _, _, body := do(t, ts, http.MethodGet, "/teas", ""); !reflect.DeepEqual(decodeTeas(t, body), want) {
		t.Fatalf("list = %s, want %+v", body, want)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	if status, _, _ := do(t, ts, http.MethodPatch, "/teas", ""); status != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", status)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	handler := withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teas", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestRequestLogRecordsStatus(t *testing.T) {
	t.Parallel()

	var seen *statusRecorder
	handler := withRequestLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.(*statusRecorder)
		w.WriteHeader(http.StatusTeapot)
	}), zaptest.NewLogger(t))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == nil || seen.status != http.StatusTeapot {
		t.Fatalf("recorded status = %+v, want 418", seen)
	}
}
