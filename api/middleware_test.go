package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/leads/api"
	"github.com/garnizeh/leads/internal/auth"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository/mock"
)

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.LoggingMiddleware(next)
	w := serve(handler, httpRequest(http.MethodGet, "/log"))

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.RequestID(r.Context())
	}))

	w := serve(handler, httpRequest(http.MethodGet, "/"))
	if seen == "" || w.Header().Get("X-Request-Id") != seen {
		t.Fatalf("generated id not propagated: ctx=%q header=%q", seen, w.Header().Get("X-Request-Id"))
	}

	req := httpRequest(http.MethodGet, "/")
	req.Header.Set("X-Request-Id", "abc-123")
	w = serve(handler, req)
	if seen != "abc-123" || w.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("incoming id not kept: ctx=%q header=%q", seen, w.Header().Get("X-Request-Id"))
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"Preflight_Allowed", []string{"http://app.test"}, http.MethodOptions, "http://app.test", http.StatusNoContent, "http://app.test"},
		{"Get_Allowed", []string{"http://app.test"}, http.MethodGet, "http://app.test", http.StatusOK, "http://app.test"},
		{"Get_OtherOrigin", []string{"http://app.test"}, http.MethodGet, "http://evil.test", http.StatusOK, ""},
		{"Get_NoOrigin", []string{"http://app.test"}, http.MethodGet, "", http.StatusOK, ""},
		{"Wildcard_EchoesOrigin", []string{"*"}, http.MethodGet, "http://any.test", http.StatusOK, "http://any.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := api.CORSMiddleware(tt.origins)(next)
			req := httpRequest(tt.method, "/cors")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := serve(handler, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.wantAllow != "" {
				if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Fatalf("credentials not allowed")
				}
				if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PUT") {
					t.Fatalf("expected Allow-Methods to include PUT, got %q", w.Header().Get("Access-Control-Allow-Methods"))
				}
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	// handler that panics
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	w := serve(api.RecoveryMiddleware(pan), httpRequest(http.MethodGet, "/panic"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic recovery, got %d", w.Code)
	}
	b, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(b), `"Server error"`) {
		t.Fatalf("unexpected body for recovery: %s", string(b))
	}

	// normal handler should pass through
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if w2 := serve(api.RecoveryMiddleware(ok), httpRequest(http.MethodGet, "/ok")); w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for normal path, got %d", w2.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	store := mock.NewStore()
	token := addUser(t, store, "u1", "u1@example.com")
	issuer := auth.NewIssuer(testSecret, time.Hour)
	ghost, _, err := issuer.Issue("deleted-user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	foreign, _, err := auth.NewIssuer("othersecret", time.Hour).Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := api.UserFromContext(r.Context())
		if !ok {
			t.Errorf("user missing from context")
			return
		}
		gotUser = u.ID
		w.WriteHeader(http.StatusOK)
	})
	handler := api.AuthMiddleware(issuer, store, "token")(next)

	cases := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantMsg    string
	}{
		{name: "Missing", wantStatus: http.StatusUnauthorized, wantMsg: "Access denied. No token provided."},
		{name: "EmptyBearer", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantMsg: "Access denied. No token provided."},
		{name: "BadToken", header: "Bearer bad.token.here", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token."},
		{name: "WrongSecret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token."},
		{name: "UserGone", header: "Bearer " + ghost, wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token. User not found."},
		{name: "Bearer", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "Cookie", cookie: token, wantStatus: http.StatusOK},
		{name: "CookieWins", cookie: token, header: "Bearer bad.token.here", wantStatus: http.StatusOK},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gotUser = ""
			req := httpRequest(http.MethodGet, "/jwt")
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			if c.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: c.cookie})
			}
			w := serve(handler, req)
			if w.Code != c.wantStatus {
				t.Fatalf("%s: want %d got %d", c.name, c.wantStatus, w.Code)
			}
			if c.wantMsg != "" {
				if b := decode[errorBody](t, w); b.Message != c.wantMsg {
					t.Fatalf("message = %q, want %q", b.Message, c.wantMsg)
				}
			}
			if c.wantStatus == http.StatusOK && gotUser != "u1" {
				t.Fatalf("context user = %q, want u1", gotUser)
			}
		})
	}
}

// failingUsers fails every lookup with a store error.
type failingUsers struct{ *mock.Store }

func (failingUsers) GetUserByID(_ context.Context, _ string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	tok, _, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := api.AuthMiddleware(issuer, failingUsers{mock.NewStore()}, "token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("next must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if w := serve(handler, req); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
