package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// setFailStore rejects writes but otherwise behaves like its backing store.
type setFailStore struct {
	*MemoryStore
}

func (setFailStore) Set(string) error { return errors.New("disk full") }

func TestLoginAuthenticatesSession(t *testing.T) {
	token := makeToken(t, jwt.MapClaims{"sub": "7", "role": "tienda", "email": "a@b.com"})

	var captured map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":    token,
			"nombre_usuario": "Ana",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	client := newTestClient(t, server.URL, store)

	identity, err := client.Sessions.Login(context.Background(), "a@b.com", "secret1234")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if captured["email"] != "a@b.com" || captured["password"] != "secret1234" {
		t.Fatalf("unexpected login payload: %+v", captured)
	}
	if identity.ID != "7" || identity.Role != RoleTienda {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if !strings.Contains(identity.DisplayName, "Ana") {
		t.Fatalf("expected display name with Ana, got %q", identity.DisplayName)
	}
	state := client.Sessions.State()
	if state.Status != SessionAuthenticated || state.Identity == nil {
		t.Fatalf("expected authenticated session, got %+v", state)
	}
	if stored, ok := store.Get(); !ok || stored != token {
		t.Fatalf("expected token persisted, got %q (ok=%v)", stored, ok)
	}
}

func TestLoginValidation(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, NewMemoryStore())

	cases := []struct{ email, password string }{
		{"", "secret1234"},
		{"a@b.com", ""},
		{"not-an-email", "secret1234"},
	}
	for _, tc := range cases {
		_, err := client.Sessions.Login(context.Background(), tc.email, tc.password)
		if CodeOf(err) != ErrCodeValidation {
			t.Fatalf("email=%q password set=%v: expected validation error, got %v", tc.email, tc.password != "", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("validation errors must not reach the network, saw %d calls", got)
	}
}

func TestLoginErrorMapping(t *testing.T) {
	status := int32(http.StatusUnauthorized)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"nope"}`, int(atomic.LoadInt32(&status)))
	}))
	defer server.Close()

	store := NewMemoryStore()
	client := newTestClient(t, server.URL, store)

	cases := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusUnauthorized, ErrCodeInvalidCredentials},
		{http.StatusBadRequest, ErrCodeInvalidCredentials},
		{http.StatusTooManyRequests, ErrCodeRateLimited},
		{http.StatusInternalServerError, ErrCodeConnection},
	}
	for _, tc := range cases {
		atomic.StoreInt32(&status, int32(tc.status))
		_, err := client.Sessions.Login(context.Background(), "a@b.com", "secret1234")
		if CodeOf(err) != tc.code {
			t.Fatalf("status %d: expected code %s, got %v", tc.status, tc.code, err)
		}
		if state := client.Sessions.State(); state.Status != SessionAnonymous {
			t.Fatalf("status %d: expected anonymous session, got %s", tc.status, state.Status)
		}
		if _, ok := store.Get(); ok {
			t.Fatalf("status %d: expected empty store", tc.status)
		}
	}
}

func TestLoginDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "not-a-jwt"})
	}))
	defer server.Close()

	store := NewMemoryStore()
	client := newTestClient(t, server.URL, store)

	_, err := client.Sessions.Login(context.Background(), "a@b.com", "secret1234")
	if CodeOf(err) != ErrCodeDecodeFailed {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Fatalf("expected store cleared after decode failure")
	}
	if state := client.Sessions.State(); state.Status != SessionAnonymous || state.Identity != nil {
		t.Fatalf("expected anonymous session without identity, got %+v", state)
	}
}

func TestLoginPersistFailureClearsStaleCredential(t *testing.T) {
	token := makeToken(t, jwt.MapClaims{"sub": "7", "role_id": 2})

	authHeaders := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": token})
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		authHeaders <- r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	inner := NewMemoryStore()
	_ = inner.Set("old-user-token")
	store := setFailStore{inner}
	client := newTestClient(t, server.URL, store)

	_, err := client.Sessions.Login(context.Background(), "a@b.com", "secret1234")
	if CodeOf(err) != ErrCodeConnection {
		t.Fatalf("expected connection error for failed persist, got %v", err)
	}
	if state := client.Sessions.State(); state.Status != SessionAnonymous {
		t.Fatalf("expected anonymous session, got %s", state.Status)
	}
	if stored, ok := store.Get(); ok {
		t.Fatalf("expected stale credential cleared, still holds %q", stored)
	}
	if err := client.Get(context.Background(), "/echo", nil); err != nil {
		t.Fatalf("echo: %v", err)
	}
	if got := <-authHeaders; got != "" {
		t.Fatalf("expected no authorization header after failed login, got %q", got)
	}
}

func TestRestoreSessionIdempotent(t *testing.T) {
	stored := makeToken(t, jwt.MapClaims{"sub": "3", "role_id": 2})
	fresh := makeToken(t, jwt.MapClaims{"sub": "3", "role_id": 2, "name": "Luis"})

	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": fresh})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	_ = store.Set(stored)
	client := newTestClient(t, server.URL, store)

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Sessions.RestoreSession(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("restore %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	state := client.Sessions.State()
	if state.Status != SessionAuthenticated || state.Identity == nil {
		t.Fatalf("expected authenticated session, got %+v", state)
	}
	if state.Identity.DisplayName != "Luis" {
		t.Fatalf("expected identity from refreshed token, got %+v", state.Identity)
	}
}

func TestRestoreSessionNoCredential(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, NewMemoryStore())
	if err := client.Sessions.RestoreSession(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no network calls, got %d", got)
	}
	if state := client.Sessions.State(); state.Status != SessionAnonymous {
		t.Fatalf("expected anonymous session, got %s", state.Status)
	}
}

func TestRestoreSessionRefreshRejected(t *testing.T) {
	stored := makeToken(t, jwt.MapClaims{"sub": "3", "role_id": 2})

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	_ = store.Set(stored)
	client := newTestClient(t, server.URL, store)

	var seen []SessionStatus
	var mu sync.Mutex
	cancel := client.Sessions.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})
	defer cancel()

	err := client.Sessions.RestoreSession(context.Background())
	if CodeOf(err) != ErrCodeRefreshExhausted {
		t.Fatalf("expected refresh exhausted, got %v", err)
	}
	state := client.Sessions.State()
	if state.Status != SessionAnonymous || state.LastError != sessionExpiredNotice {
		t.Fatalf("expected anonymous with session expired notice, got %+v", state)
	}
	if _, ok := store.Get(); ok {
		t.Fatalf("expected store cleared")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []SessionStatus{SessionRestoring, SessionError, SessionAnonymous}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, seen)
		}
	}
}

func TestRestoreSessionDecodeFailure(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemoryStore()
	_ = store.Set("corrupted-not-a-token")
	client := newTestClient(t, server.URL, store)

	err := client.Sessions.RestoreSession(context.Background())
	if CodeOf(err) != ErrCodeDecodeFailed {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 0 {
		t.Fatalf("expected no refresh for undecodable token, got %d calls", got)
	}
	if _, ok := store.Get(); ok {
		t.Fatalf("expected corrupted credential cleared")
	}
	if state := client.Sessions.State(); state.Status != SessionAnonymous {
		t.Fatalf("expected anonymous session, got %s", state.Status)
	}
}

func TestSubscribeCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, NewMemoryStore())

	var notified int32
	cancel := client.Sessions.Subscribe(func(Session) { atomic.AddInt32(&notified, 1) })
	client.Sessions.Logout()
	first := atomic.LoadInt32(&notified)
	if first == 0 {
		t.Fatalf("expected subscriber to run")
	}
	cancel()
	client.Sessions.Logout()
	if got := atomic.LoadInt32(&notified); got != first {
		t.Fatalf("expected no notifications after cancel, got %d more", got-first)
	}
}
