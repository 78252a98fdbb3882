package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/leads/api"
	"github.com/garnizeh/leads/internal/auth"
	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository/mock"
)

const testSecret = "testsecret"

func testConfig() *config.Config {
	return &config.Config{
		Addr:          ":0",
		Env:           config.EnvDevelopment,
		JWTSecret:     testSecret,
		APITimeout:    time.Second,
		TokenDuration: time.Hour,
		Store:         config.StoreConfig{Driver: config.StoreSQLite, DatabasePath: "unused"},
		LogLevel:      "info",
		CORSOrigins:   []string{"http://app.test"},
		Timezone:      "UTC",
	}
}

func newRouter(t *testing.T, cfg *config.Config) (*mux.Router, *mock.Store) {
	t.Helper()
	store := mock.NewStore()
	r, err := api.SetupRoutes(cfg, "1.2.3", "2025-08-24T00:00:00Z", store)
	if err != nil {
		t.Fatalf("SetupRoutes: %v", err)
	}
	return r, store
}

// addUser stores a user and returns a bearer token for it.
func addUser(t *testing.T, store *mock.Store, id, email string) string {
	t.Helper()
	u := &models.User{ID: id, Email: email, FirstName: "Test", LastName: "User"}
	if err := store.CreateUser(t.Context(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	tok, _, err := auth.NewIssuer(testSecret, time.Hour).Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  []string          `json:"errors"`
	Fields  map[string]string `json:"fields"`
	Detail  string            `json:"detail"`
}

func httpRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func serveFunc(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	return serve(h, req)
}
