package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

func TestLoginSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","user":{"id":"u1","email":"jane@example.local","firstname":"Jane","lastname":"Smith"},"role":"admin","token":"tok-1"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	result, err := client.Login(context.Background(), "jane@example.local", "abc123")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if result.Token != "tok-1" {
		t.Fatalf("expected token tok-1, got %s", result.Token)
	}
	if result.Identity.Role != model.RoleAdmin {
		t.Fatalf("expected admin role, got %s", result.Identity.Role)
	}
	if result.Identity.User.FirstName != "Jane" {
		t.Fatalf("expected Jane, got %s", result.Identity.User.FirstName)
	}
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","user":{"id":"u1"},"role":"superuser","token":"tok-1"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Login(context.Background(), "jane@example.local", "abc123")
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Fatalf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"jane@example.local","firstname":"Jane","lastname":"Smith"},"role":"student"}`))
	}))
	defer server.Close()

	identity, err := New(server.URL).Me(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("me error: %v", err)
	}
	if identity.Role != model.RoleStudent {
		t.Fatalf("expected student role, got %s", identity.Role)
	}
}

func TestMeErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		expect error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := New(server.URL).Me(context.Background(), "tok-1")
		server.Close()
		if !errors.Is(err, tc.expect) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.expect, err)
		}
	}
}

func TestMeUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := New(server.URL).Me(context.Background(), "tok-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMeRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user": "not-an-object"`))
	}))
	defer server.Close()

	_, err := New(server.URL).Me(context.Background(), "tok-1")
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

func TestLogoutSwallowsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	if err := New(server.URL).Logout(context.Background(), "tok-1"); err != nil {
		t.Fatalf("expected nil error for dead server, got %v", err)
	}
}

func TestLogoutPropagatesUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := New(server.URL).Logout(context.Background(), "tok-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStudentsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("page") != "2" || query.Get("perPage") != "25" || query.Get("search") != "smith" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"items":[],"total":0,"page":2,"perPage":25}`))
	}))
	defer server.Close()

	page, err := New(server.URL).Students(context.Background(), "tok-1", 2, 25, "smith")
	if err != nil {
		t.Fatalf("students error: %v", err)
	}
	if page.Page != 2 || page.PerPage != 25 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestRecordAttendanceConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	_, err := New(server.URL).RecordAttendanceByNumber(context.Background(), "tok-1", "e1", "2026-00042")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
