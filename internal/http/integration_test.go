package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeffersonbalde/syborg-portal/internal/auth"
	"github.com/jeffersonbalde/syborg-portal/internal/config"
	"github.com/jeffersonbalde/syborg-portal/internal/db"
	"github.com/jeffersonbalde/syborg-portal/internal/repository"
)

const adminID = "22222222-2222-2222-2222-222222222221"

func TestStudentLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminToken := mustToken(t, cfg, adminID, "admin")
	stamp := time.Now().Format("150405")
	email := "student." + stamp + "@example.local"

	createBody := map[string]interface{}{
		"email":         email,
		"password":      "dev-password",
		"firstname":     "Test",
		"lastname":      "Student",
		"studentNumber": "2026-" + stamp,
	}
	resp := doReq(t, http.MethodPost, app.URL+"/students", adminToken, createBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	// The new student can log in and resolve their session.
	resp = doReq(t, http.MethodPost, app.URL+"/login", "", map[string]interface{}{
		"email":    email,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var login struct {
		Status string `json:"status"`
		Role   string `json:"role"`
		Token  string `json:"token"`
	}
	decodeBody(t, resp, &login)
	if login.Status != "success" || login.Role != "student" || login.Token == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/user", login.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Students cannot reach the roster.
	resp = doReq(t, http.MethodGet, app.URL+"/students", login.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Admin can search the roster for the new student.
	resp = doReq(t, http.MethodGet, app.URL+"/students?search="+stamp, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var page struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, resp, &page)
	if page.Total < 1 {
		t.Fatalf("expected at least one roster match, got %d", page.Total)
	}

	resp = doReq(t, http.MethodDelete, app.URL+"/students/"+created.ID, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	server := NewServer(cfg, repository.NewStore(pool), nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	resp := doReq(t, http.MethodPost, app.URL+"/login", "", map[string]interface{}{
		"email":    "nobody@example.local",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestEventAndManualAttendance(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	server := NewServer(cfg, repository.NewStore(pool), nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminToken := mustToken(t, cfg, adminID, "admin")
	stamp := time.Now().Format("150405")
	number := "2026-" + stamp

	resp := doReq(t, http.MethodPost, app.URL+"/students", adminToken, map[string]interface{}{
		"email":         "attendee." + stamp + "@example.local",
		"password":      "dev-password",
		"firstname":     "Attending",
		"lastname":      "Student",
		"studentNumber": number,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	start := time.Now().UTC()
	resp = doReq(t, http.MethodPost, app.URL+"/events", adminToken, map[string]interface{}{
		"title":    "General Assembly " + stamp,
		"startsAt": start.Unix(),
		"endsAt":   start.Add(2 * time.Hour).Unix(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var event struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &event)

	// First submission records time in, second time out, third conflicts.
	resp = doReq(t, http.MethodPost, app.URL+"/events/"+event.ID+"/attendance", adminToken, map[string]interface{}{
		"studentNumber": number,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/events/"+event.ID+"/attendance", adminToken, map[string]interface{}{
		"studentNumber": number,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var record struct {
		TimeOut *int64 `json:"timeOut"`
	}
	decodeBody(t, resp, &record)
	if record.TimeOut == nil {
		t.Fatalf("expected timeOut on second submission")
	}

	resp = doReq(t, http.MethodPost, app.URL+"/events/"+event.ID+"/attendance", adminToken, map[string]interface{}{
		"studentNumber": number,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/events/"+event.ID+"/attendance", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func testConfig() config.Config {
	return config.Config{
		HTTPAddr:       ":0",
		JWTSecret:      "test-secret",
		JWTIssuer:      "test-issuer",
		AccessTokenTTL: 15 * time.Minute,
		QRCodeTTL:      2 * time.Minute,
	}
}

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("PORTAL_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("PORTAL_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func mustToken(t *testing.T, cfg config.Config, userID, role string) string {
	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, 10*time.Minute, auth.Claims{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	return resp
}
