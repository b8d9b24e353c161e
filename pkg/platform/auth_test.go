package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []AuthEvent
	last   *Session
	ch     chan AuthEvent
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan AuthEvent, 16)}
}

func (r *recorder) handle(event AuthEvent, s *Session) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.last = s
	r.mu.Unlock()
	r.ch <- event
}

func (r *recorder) next(t *testing.T) AuthEvent {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no auth event delivered")
		return ""
	}
}

func sessionJSON(access, refresh string, expiresAt int64) map[string]interface{} {
	return map[string]interface{}{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    expiresAt,
		"refresh_token": refresh,
		"user":          map[string]interface{}{"id": "0b6f6c9e-2a52-4f4e-9a43-0d7a5f0f6a11", "email": "jane@x.edu"},
	}
}

func newAuthServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "Secret123" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"Invalid login credentials"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(sessionJSON("access-1", "refresh-1", time.Now().Add(time.Hour).Unix()))
		case "refresh_token":
			if body["refresh_token"] != "refresh-1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"Invalid Refresh Token"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(sessionJSON("access-2", "refresh-2", time.Now().Add(time.Hour).Unix()))
		}
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"User already registered"}`))
	})
	return httptest.NewServer(mux)
}

func TestAuthStateChangeSequence(t *testing.T) {
	srv := newAuthServer(t)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	rec := newRecorder()
	sub := client.Auth.OnAuthStateChange(rec.handle)
	defer sub.Unsubscribe()

	assert.Equal(t, EventInitialSession, rec.next(t))

	_, err = client.Auth.SignInWithPassword(context.Background(), "jane@x.edu", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, EventSignedIn, rec.next(t))

	require.NoError(t, client.Auth.SignOut(context.Background()))
	assert.Equal(t, EventSignedOut, rec.next(t))
	assert.Nil(t, client.Auth.Session())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []AuthEvent{EventInitialSession, EventSignedIn, EventSignedOut}, rec.events)
	assert.Nil(t, rec.last)
}

func TestSignInErrorKeepsServerMessage(t *testing.T) {
	srv := newAuthServer(t)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	_, err = client.Auth.SignInWithPassword(context.Background(), "jane@x.edu", "wrong")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid login credentials", apiErr.Error())
	assert.Nil(t, client.Auth.Session())
}

func TestSignUpDuplicate(t *testing.T) {
	srv := newAuthServer(t)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	_, err = client.Auth.SignUp(context.Background(), "jane@x.edu", "Secret123", map[string]string{"name": "Jane Doe"})
	require.Error(t, err)
	assert.Equal(t, "User already registered", err.Error())
}

func TestRefreshSession(t *testing.T) {
	srv := newAuthServer(t)
	defer srv.Close()

	t.Run("rotates tokens", func(t *testing.T) {
		client, err := New(srv.URL)
		require.NoError(t, err)
		_, err = client.Auth.SignInWithPassword(context.Background(), "jane@x.edu", "Secret123")
		require.NoError(t, err)

		rec := newRecorder()
		sub := client.Auth.OnAuthStateChange(rec.handle)
		defer sub.Unsubscribe()
		assert.Equal(t, EventInitialSession, rec.next(t))

		s, err := client.Auth.RefreshSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-2", s.AccessToken)
		assert.Equal(t, EventTokenRefreshed, rec.next(t))
	})

	t.Run("rejected token signs out", func(t *testing.T) {
		storage := NewMemorySessionStorage()
		require.NoError(t, storage.Save(&Session{AccessToken: "old", RefreshToken: "stale", ExpiresAt: time.Now().Add(time.Hour).Unix()}))

		client, err := New(srv.URL, WithSessionStorage(storage))
		require.NoError(t, err)

		rec := newRecorder()
		sub := client.Auth.OnAuthStateChange(rec.handle)
		defer sub.Unsubscribe()
		assert.Equal(t, EventInitialSession, rec.next(t))

		_, err = client.Auth.RefreshSession(context.Background())
		require.Error(t, err)
		assert.Equal(t, EventSignedOut, rec.next(t))

		stored, err := storage.Load()
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

func TestInitializeRefreshesExpiredSession(t *testing.T) {
	srv := newAuthServer(t)
	defer srv.Close()

	storage := NewFileSessionStorage(filepath.Join(t.TempDir(), "session.yaml"))
	require.NoError(t, storage.Save(&Session{AccessToken: "expired", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute).Unix()}))

	client, err := New(srv.URL, WithSessionStorage(storage))
	require.NoError(t, err)
	require.NoError(t, client.Auth.Initialize(context.Background()))

	s := client.Auth.Session()
	require.NotNil(t, s)
	assert.Equal(t, "access-2", s.AccessToken)

	stored, err := storage.Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv := newAuthServer(t)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	rec := newRecorder()
	sub := client.Auth.OnAuthStateChange(rec.handle)
	assert.Equal(t, EventInitialSession, rec.next(t))

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err = client.Auth.SignInWithPassword(context.Background(), "jane@x.edu", "Secret123")
	require.NoError(t, err)

	select {
	case e := <-rec.ch:
		t.Fatalf("unexpected event %s after unsubscribe", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileSessionStorageMissingFile(t *testing.T) {
	storage := NewFileSessionStorage(filepath.Join(t.TempDir(), "nope", "session.yaml"))

	s, err := storage.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, storage.Clear())
}
