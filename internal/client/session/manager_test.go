package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atinyakov/GophNotes/internal/apitest"
	"github.com/atinyakov/GophNotes/internal/client/api"
	"github.com/atinyakov/GophNotes/internal/client/status"
	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	manager *Manager
	client  *api.Client
	status  *status.Status
	tokens  *CookieFile
	path    string
}

func newFixture(t *testing.T, baseURL string, opts ...Option) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "token.json")
	client := api.NewClient(baseURL, nil, log)
	st := status.New(log)
	tokens := NewCookieFile(path)
	return &fixture{
		manager: NewManager(client, tokens, st, log, opts...),
		client:  client,
		status:  st,
		tokens:  tokens,
		path:    path,
	}
}

func readCookie(t *testing.T, path string) (cookie, bool) {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cookie{}, false
	}
	require.NoError(t, err)
	var c cookie
	require.NoError(t, json.Unmarshal(data, &c))
	return c, true
}

func TestValidate_NoToken(t *testing.T) {
	srv := apitest.New(t)
	f := newFixture(t, srv.URL)
	f.client.SetBearer("stale")

	require.NoError(t, f.manager.Validate(context.Background()))

	assert.Equal(t, Unauthenticated, f.manager.State())
	assert.False(t, f.manager.Authorized())
	assert.Empty(t, f.client.Authorization())
	assert.Zero(t, srv.Calls(http.MethodGet, "/users/me"), "no network call without a token")
	assert.False(t, f.status.Loading())
}

func TestValidate_ValidToken(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "alice@example.com", "pw")
	srv.SetToken("T1", acc.ID)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, srv.URL, WithClock(func() time.Time { return now }))
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))

	require.NoError(t, f.manager.Validate(context.Background()))

	assert.Equal(t, Authenticated, f.manager.State())
	assert.Equal(t, "Bearer T1", f.client.Authorization())
	got, ok := f.manager.Account()
	require.True(t, ok)
	assert.Equal(t, acc, got)

	c, ok := readCookie(t, f.path)
	require.True(t, ok)
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "T1", c.Value)
	assert.True(t, c.Expires.Equal(now.Add(DefaultTokenTTL)), "expiry refreshed to one day from now, got %v", c.Expires)
	assert.Empty(t, f.status.Error())
}

func TestValidate_RejectedToken(t *testing.T) {
	srv := apitest.New(t)
	f := newFixture(t, srv.URL)
	require.NoError(t, f.tokens.Save("revoked", time.Now().Add(time.Hour)))

	err := f.manager.Validate(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "validate", authErr.Op)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, Unauthenticated, f.manager.State())
	assert.Empty(t, f.client.Authorization())
	_, exists := readCookie(t, f.path)
	assert.False(t, exists, "rejected token is removed")
	assert.Equal(t, "Could not validate credentials", f.status.Error())
	assert.False(t, f.status.Loading())
}

func TestValidate_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	f.client.SetBearer("T1")
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))

	err := f.manager.Validate(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "validate", authErr.Op)
	assert.Equal(t, Unauthenticated, f.manager.State())
	assert.Empty(t, f.client.Authorization())
	_, exists := readCookie(t, f.path)
	assert.False(t, exists, "token with an unreadable response is removed")
	assert.Equal(t, "invalid response", f.status.Error())
}

func TestValidate_NetworkFailure(t *testing.T) {
	srv := apitest.New(t)
	url := srv.URL
	srv.Close()

	f := newFixture(t, url)
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))

	err := f.manager.Validate(context.Background())
	require.Error(t, err)
	assert.Equal(t, Unauthenticated, f.manager.State())
	_, exists := readCookie(t, f.path)
	assert.False(t, exists)
	assert.NotEmpty(t, f.status.Error())
}

func TestValidate_CancelledKeepsSession(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "alice@example.com", "pw")
	srv.SetToken("T1", acc.ID)
	f := newFixture(t, srv.URL)
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))
	require.NoError(t, f.manager.Validate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.manager.Validate(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Authenticated, f.manager.State())
	_, exists := readCookie(t, f.path)
	assert.True(t, exists)
}

func TestValidate_DeadlineKeepsSession(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "alice@example.com", "pw")
	srv.SetToken("T1", acc.ID)
	f := newFixture(t, srv.URL)
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))
	require.NoError(t, f.manager.Validate(context.Background()))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := f.manager.Validate(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Authenticated, f.manager.State())
	assert.Equal(t, "Bearer T1", f.client.Authorization())
	assert.Empty(t, f.status.Error(), "a deadline is not reported as a failure")
}

func TestLogout(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "alice@example.com", "pw")
	srv.SetToken("T1", acc.ID)

	t.Run("authenticated", func(t *testing.T) {
		f := newFixture(t, srv.URL)
		require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))
		require.NoError(t, f.manager.Validate(context.Background()))
		require.True(t, f.manager.Authorized())

		f.manager.Logout()

		assert.Equal(t, Unauthenticated, f.manager.State())
		assert.Empty(t, f.client.Authorization())
		_, exists := readCookie(t, f.path)
		assert.False(t, exists)
		_, ok := f.manager.Account()
		assert.False(t, ok)
	})

	t.Run("already unauthenticated", func(t *testing.T) {
		f := newFixture(t, srv.URL)
		f.manager.Logout()
		f.manager.Logout()
		assert.Equal(t, Unauthenticated, f.manager.State())
	})
}

func TestLogin(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "a@b.com", "x")

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, srv.URL)
		require.NoError(t, f.manager.Login(context.Background(), "a@b.com", "x"))

		assert.True(t, f.manager.Authorized())
		c, ok := readCookie(t, f.path)
		require.True(t, ok)
		assert.NotEmpty(t, c.Value)
		assert.Equal(t, "Bearer "+c.Value, f.client.Authorization())

		id, err := f.manager.AccountID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, acc.ID, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t, srv.URL)
		require.NoError(t, f.tokens.Save("old", time.Now().Add(time.Hour)))
		f.client.SetBearer("old")

		err := f.manager.Login(context.Background(), "a@b.com", "nope")

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "login", authErr.Op)
		assert.False(t, f.manager.Authorized())
		assert.Empty(t, f.client.Authorization())
		_, exists := readCookie(t, f.path)
		assert.False(t, exists)
		assert.Equal(t, "Incorrect username or password", f.status.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t, srv.URL)
		before := srv.Calls(http.MethodPost, "/auth/token")

		err := f.manager.Login(context.Background(), "a@b.com", "")

		require.ErrorIs(t, err, ErrMissingFields)
		assert.Equal(t, `field "email" and "password" is required`, f.status.Error())
		assert.Equal(t, before, srv.Calls(http.MethodPost, "/auth/token"))
	})
}

func TestAccountID_NotAuthenticated(t *testing.T) {
	srv := apitest.New(t)
	f := newFixture(t, srv.URL)

	_, err := f.manager.AccountID(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRegister(t *testing.T) {
	srv := apitest.New(t)
	f := newFixture(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, f.manager.Register(ctx, "bob", "bob@example.com", "pw"))
	assert.Equal(t, "Successfully registered!", f.status.Message())
	assert.False(t, f.manager.Authorized(), "registration does not log in")
	_, exists := readCookie(t, f.path)
	assert.False(t, exists)

	err := f.manager.Register(ctx, "bob", "bob@example.com", "pw")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "register", authErr.Op)
	assert.Equal(t, "Email already registered", f.status.Error())

	err = f.manager.Register(ctx, "", "bob@example.com", "pw")
	require.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, `fields "username", "email" and "password" is required`, f.status.Error())
}

// TestLoginThenRevalidationRejected follows a login that returns T1 with a
// periodic check that the backend answers with 401.
func TestLoginThenRevalidationRejected(t *testing.T) {
	var meCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/token":
			_ = r.ParseForm()
			if r.PostForm.Get("username") != "a@b.com" || r.PostForm.Get("password") != "x" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(models.TokenResponse{AccessToken: "T1"})
		case "/users/me":
			if meCalls.Add(1) == 1 && r.Header.Get("Authorization") == "Bearer T1" {
				_ = json.NewEncoder(w).Encode(models.Account{ID: 1, Email: "a@b.com"})
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token expired"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, "a@b.com", "x"))
	assert.True(t, f.manager.Authorized())
	c, ok := readCookie(t, f.path)
	require.True(t, ok)
	assert.Equal(t, "T1", c.Value)

	r := f.manager.StartRevalidation(ctx, 10*time.Millisecond)
	defer r.Stop()
	assert.True(t, f.manager.Authorized(), "first check accepted")

	require.Eventually(t, func() bool { return !f.manager.Authorized() }, 2*time.Second, 5*time.Millisecond)
	r.Stop()

	_, exists := readCookie(t, f.path)
	assert.False(t, exists)
	assert.Empty(t, f.client.Authorization())
	assert.Equal(t, "Token expired", f.status.Error())
}

func TestRevalidator_Stop(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "alice@example.com", "pw")
	srv.SetToken("T1", acc.ID)
	f := newFixture(t, srv.URL)
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))

	r := f.manager.StartRevalidation(context.Background(), 5*time.Millisecond)
	assert.True(t, f.manager.Authorized())
	require.Eventually(t, func() bool { return srv.Calls(http.MethodGet, "/users/me") >= 3 }, 2*time.Second, time.Millisecond)

	r.Stop()
	r.Stop()
	select {
	case <-r.Done():
	default:
		t.Fatal("revalidator still running after Stop")
	}

	calls := srv.Calls(http.MethodGet, "/users/me")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, srv.Calls(http.MethodGet, "/users/me"), "no checks after Stop")
	assert.True(t, f.manager.Authorized(), "stopping does not log out")
}

func TestRevalidator_ParentContext(t *testing.T) {
	srv := apitest.New(t)
	f := newFixture(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	r := f.manager.StartRevalidation(ctx, time.Hour)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("revalidator did not exit on context cancellation")
	}
	r.Stop()
}

func TestValidate_Concurrent(t *testing.T) {
	srv := apitest.New(t)
	acc := srv.AddUser("alice", "alice@example.com", "pw")
	srv.SetToken("T1", acc.ID)
	f := newFixture(t, srv.URL)
	require.NoError(t, f.tokens.Save("T1", time.Now().Add(time.Hour)))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.manager.Validate(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, Authenticated, f.manager.State())
	assert.False(t, f.status.Loading())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "validating", Validating.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestAuthError(t *testing.T) {
	cause := errors.New("boom")
	err := &AuthError{Op: "login", Err: cause}
	assert.Equal(t, "login: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
