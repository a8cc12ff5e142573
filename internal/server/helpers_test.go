package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"greenery/internal/config"
	"greenery/internal/greenery"
	"greenery/internal/storage"
)

type fakeRecords struct {
	readData    []byte
	readErr     error
	createErr   error
	readyErr    error
	panicOnRead bool
	readCalls   int
	createCalls int
	lastID      string
	lastInfo    greenery.GeneralInfo
}

func (f *fakeRecords) Read(_ context.Context, id string) ([]byte, error) {
	f.readCalls++
	f.lastID = id
	if f.panicOnRead {
		panic("nil map write")
	}
	return f.readData, f.readErr
}

func (f *fakeRecords) Create(_ context.Context, info greenery.GeneralInfo) error {
	f.createCalls++
	f.lastInfo = info
	return f.createErr
}

func (f *fakeRecords) Ready(context.Context) error {
	return f.readyErr
}

func newTestServer(t *testing.T, cfg *config.Config, records Records) *Server {
	t.Helper()
	s, _ := newTestServerWithHook(t, cfg, records)
	return s
}

func newTestServerWithHook(t *testing.T, cfg *config.Config, records Records) (*Server, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	s, err := New(cfg, records, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s, hook
}

// newLocalServer wires the real record service over a temp-dir object store.
func newLocalServer(t *testing.T) (*Server, *storage.LocalClient) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := storage.NewLocalClient(t.TempDir())
	return newTestServer(t, nil, greenery.NewService(store, logger)), store
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, s, http.MethodPost, path, body)
}

func decodeErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rr.Body.String())
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status code: got %d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func newRequestWithID(method, path, id string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(requestIDHeader, id)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}
