package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeffersonbalde/syborg-portal/internal/apiclient"
	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

type fakeResolver struct {
	mu          sync.Mutex
	meCalls     int
	meIdentity  apiclient.Identity
	meErr       error
	meGate      chan struct{}
	loginResult apiclient.LoginResult
	loginErr    error
	logoutCalls int
	logoutErr   error
}

func (f *fakeResolver) Me(ctx context.Context, token string) (apiclient.Identity, error) {
	f.mu.Lock()
	f.meCalls++
	gate := f.meGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meIdentity, f.meErr
}

func (f *fakeResolver) Login(ctx context.Context, email, password string) (apiclient.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginResult, f.loginErr
}

func (f *fakeResolver) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeResolver) calls() (me, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls, f.logoutCalls
}

func janeIdentity() apiclient.Identity {
	return apiclient.Identity{
		User: apiclient.User{
			ID:        "u1",
			Email:     "jane@example.local",
			FirstName: "Jane",
			LastName:  "Smith",
		},
		Role: model.RoleAdmin,
	}
}

func TestRestoreWithoutToken(t *testing.T) {
	resolver := &fakeResolver{}
	manager := NewManager(NewMemoryTokenStore(), resolver)

	if err := manager.Restore(context.Background()); err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if state := manager.State(); state != StateNoToken {
		t.Fatalf("expected StateNoToken, got %v", state)
	}
	if manager.Loading() {
		t.Fatalf("expected loading=false after empty restore")
	}
	if me, _ := resolver.calls(); me != 0 {
		t.Fatalf("expected no network calls, got %d", me)
	}
	if manager.Current().SignedIn() {
		t.Fatalf("expected empty session")
	}
}

func TestRestoreResolvesStoredToken(t *testing.T) {
	store := NewMemoryTokenStore()
	if err := store.Write("tok-1"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	resolver := &fakeResolver{meIdentity: janeIdentity()}
	manager := NewManager(store, resolver)

	if err := manager.Restore(context.Background()); err != nil {
		t.Fatalf("restore error: %v", err)
	}
	current := manager.Current()
	if !current.SignedIn() || current.Role != model.RoleAdmin || current.Token != "tok-1" {
		t.Fatalf("unexpected session %+v", current)
	}
	if state := manager.State(); state != StateResolved {
		t.Fatalf("expected StateResolved, got %v", state)
	}
}

func TestRestoreTransientFailureKeepsToken(t *testing.T) {
	store := NewMemoryTokenStore()
	_ = store.Write("tok-1")
	resolver := &fakeResolver{meErr: apiclient.ErrUnavailable}
	manager := NewManager(store, resolver)

	err := manager.Restore(context.Background())
	if !errors.Is(err, apiclient.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if state := manager.State(); state != StateFailed {
		t.Fatalf("expected StateFailed, got %v", state)
	}
	if manager.Current().SignedIn() {
		t.Fatalf("expected no user after failed restore")
	}
	token, _ := store.Read()
	if token != "tok-1" {
		t.Fatalf("expected token kept for retry, got %q", token)
	}
}

func TestRestoreUnauthorizedPurgesToken(t *testing.T) {
	store := NewMemoryTokenStore()
	_ = store.Write("tok-stale")
	resolver := &fakeResolver{meErr: apiclient.ErrUnauthorized}
	manager := NewManager(store, resolver)

	err := manager.Restore(context.Background())
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	token, _ := store.Read()
	if token != "" {
		t.Fatalf("expected rejected token purged, still have %q", token)
	}
}

func TestLoginPersistsTokenAndGuards(t *testing.T) {
	store := NewMemoryTokenStore()
	resolver := &fakeResolver{
		loginResult: apiclient.LoginResult{Identity: janeIdentity(), Token: "tok-2"},
	}
	manager := NewManager(store, resolver)
	_ = manager.Restore(context.Background())

	if decision := manager.Guard(model.RoleAdmin); decision != DecisionLogin {
		t.Fatalf("expected login decision before signing in, got %v", decision)
	}

	identity, err := manager.Login(context.Background(), "jane@example.local", "abc123")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if identity.Role != model.RoleAdmin {
		t.Fatalf("expected admin role, got %s", identity.Role)
	}

	token, _ := store.Read()
	if token != "tok-2" {
		t.Fatalf("expected persisted token tok-2, got %q", token)
	}
	if current := manager.Current(); current.Token != token {
		t.Fatalf("session token %q does not match stored %q", current.Token, token)
	}

	if decision := manager.Guard(model.RoleAdmin); decision != DecisionAllow {
		t.Fatalf("expected admin route allowed, got %v", decision)
	}
	if decision := manager.Guard(model.RoleAdmin, model.RoleStudent); decision != DecisionAllow {
		t.Fatalf("expected shared route allowed, got %v", decision)
	}
	if decision := manager.Guard(model.RoleStudent); decision != DecisionForbidden {
		t.Fatalf("expected student-only route forbidden, got %v", decision)
	}
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	store := NewMemoryTokenStore()
	resolver := &fakeResolver{
		loginResult: apiclient.LoginResult{Identity: janeIdentity(), Token: "tok-3"},
		logoutErr:   errors.New("backend down"),
	}
	manager := NewManager(store, resolver)
	if _, err := manager.Login(context.Background(), "jane@example.local", "abc123"); err != nil {
		t.Fatalf("login error: %v", err)
	}

	manager.Logout(context.Background())

	if manager.Current().SignedIn() {
		t.Fatalf("expected session cleared despite backend failure")
	}
	if state := manager.State(); state != StateNoToken {
		t.Fatalf("expected StateNoToken, got %v", state)
	}
	token, _ := store.Read()
	if token != "" {
		t.Fatalf("expected stored token cleared, got %q", token)
	}
	if decision := manager.Guard(model.RoleAdmin); decision != DecisionLogin {
		t.Fatalf("expected login decision after logout, got %v", decision)
	}

	// Logging out again changes nothing and does not call the backend.
	manager.Logout(context.Background())
	if _, logouts := resolver.calls(); logouts != 1 {
		t.Fatalf("expected a single backend logout call, got %d", logouts)
	}
}

func TestStaleRestoreResultDiscarded(t *testing.T) {
	store := NewMemoryTokenStore()
	_ = store.Write("tok-old")
	gate := make(chan struct{})
	resolver := &fakeResolver{meIdentity: janeIdentity(), meGate: gate}
	manager := NewManager(store, resolver)

	done := make(chan error, 1)
	go func() {
		done <- manager.Restore(context.Background())
	}()

	// Wait until the restore is in flight, then log out underneath it.
	deadline := time.After(2 * time.Second)
	for {
		if me, _ := resolver.calls(); me == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("restore never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	manager.Logout(context.Background())
	close(gate)

	if err := <-done; err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if manager.Current().SignedIn() {
		t.Fatalf("expected stale restore result discarded")
	}
	if state := manager.State(); state != StateNoToken {
		t.Fatalf("expected StateNoToken, got %v", state)
	}
}
