package server_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-finance-web/apifake"
	"github.com/jrsteele09/go-finance-web/internal/config"
	"github.com/jrsteele09/go-finance-web/server"
	"github.com/jrsteele09/go-finance-web/server/clientsession"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/jrsteele09/go-finance-web/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

// testClock is a settable clock for client session expiry
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testFixture holds all test dependencies
type testFixture struct {
	backend  *apifake.Server
	tokens   *storage.InMemoryStore
	sessions *clientsession.InMemoryRepo
	clock    *testClock
	server   *server.Server
	web      *httptest.Server
	client   *http.Client
}

func setupTestFixture(t *testing.T, backendOpts ...apifake.Option) *testFixture {
	t.Helper()

	backend := apifake.New(backendOpts...)
	_, err := backend.AddAccount(testUserEmail, testUserPassword, users.Profile{FirstName: "John", LastName: "Doe", Currency: "USD"})
	require.NoError(t, err)

	apiServer := httptest.NewServer(backend)
	t.Cleanup(apiServer.Close)

	t.Setenv("API_BASE_URL", apiServer.URL)
	t.Setenv("ENV", "TEST")

	f := &testFixture{
		backend: backend,
		tokens:  storage.NewInMemoryStore(),
		clock:   &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.start(t, clientsession.NewInMemoryRepo())
	return f
}

// start (re)starts the web front over the fixture's token store.
func (f *testFixture) start(t *testing.T, sessions *clientsession.InMemoryRepo) {
	t.Helper()

	srv, err := server.New(config.New(), f.tokens, sessions, server.WithClock(f.clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	web := httptest.NewServer(srv)
	t.Cleanup(web.Close)

	if f.client == nil {
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		f.client = &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	f.sessions = sessions
	f.server = srv
	f.web = web
}

// get requests path and returns the response with its body read.
func (f *testFixture) get(t *testing.T, path string, headers ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.web.URL+path, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return f.do(t, req)
}

func (f *testFixture) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.web.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

func (f *testFixture) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	resp, _ := f.post(t, "/login", url.Values{"email": {testUserEmail}, "password": {testUserPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func (f *testFixture) clientSessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.web.URL)
	require.NoError(t, err)
	for _, cookie := range f.client.Jar.Cookies(u) {
		if cookie.Name == "client_session_id" {
			return cookie.Value
		}
	}
	t.Fatal("no client session cookie")
	return ""
}

func (f *testFixture) storedAccessToken(t *testing.T) string {
	t.Helper()
	access, err := token.AccessToken(context.Background(), storage.Scoped(f.tokens, f.clientSessionID(t)))
	require.NoError(t, err)
	return access
}

// clientWithSession returns a client that carries only the given session cookie.
func (f *testFixture) clientWithSession(t *testing.T, id string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(f.web.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "client_session_id", Value: id, Path: "/"}})
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *testFixture) plantClientSession(t *testing.T, id string) {
	t.Helper()
	u, err := url.Parse(f.web.URL)
	require.NoError(t, err)
	f.client.Jar.SetCookies(u, []*http.Cookie{{Name: "client_session_id", Value: id, Path: "/"}})
}

func requireRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, location, resp.Header.Get("Location"))
}

func TestGuardedNavigation(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("auth pages redirect guests to login", func(t *testing.T) {
		for _, path := range []string{"/dashboard", "/transactions", "/budgets", "/budgets/"} {
			resp, _ := f.get(t, path)
			requireRedirect(t, resp, "/login")
		}
	})

	t.Run("root follows its redirect and then the guard", func(t *testing.T) {
		resp, _ := f.get(t, "/")
		requireRedirect(t, resp, "/login")
	})

	t.Run("guest pages render", func(t *testing.T) {
		resp, body := f.get(t, "/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		require.Contains(t, body, `action="/login"`)
		require.NotEmpty(t, f.clientSessionID(t))

		resp, body = f.get(t, "/register")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, `action="/register"`)
	})

	t.Run("unknown paths are not found", func(t *testing.T) {
		resp, _ := f.get(t, "/nowhere")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("htmx requests get an HX-Redirect", func(t *testing.T) {
		resp, _ := f.get(t, "/dashboard", "HX-Request", "true")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("HX-Redirect"))
	})

	t.Run("logged in clients are kept away from guest pages", func(t *testing.T) {
		f.login(t)

		resp, body := f.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Welcome, John Doe")

		resp, _ = f.get(t, "/login")
		requireRedirect(t, resp, "/dashboard")
		resp, _ = f.get(t, "/register")
		requireRedirect(t, resp, "/dashboard")
		resp, _ = f.get(t, "/")
		requireRedirect(t, resp, "/dashboard")

		resp, body = f.get(t, "/transactions")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "USD")
	})
}

func TestLogin(t *testing.T) {
	t.Run("success stores tokens for the client session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		require.NotEmpty(t, f.storedAccessToken(t))

		cs, err := f.sessions.Get(f.clientSessionID(t))
		require.NoError(t, err)
		require.True(t, cs.Auth.IsAuthenticated())
		require.Equal(t, testUserEmail, cs.Auth.User().Email)
	})

	t.Run("rejected credentials return to the login page", func(t *testing.T) {
		f := setupTestFixture(t)
		resp, _ := f.post(t, "/login", url.Values{"email": {testUserEmail}, "password": {"wrong-password"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", location.Path)
		require.Equal(t, "No active account found with the given credentials", location.Query().Get("error"))
		require.Equal(t, testUserEmail, location.Query().Get("email"))

		_, body := f.get(t, location.RequestURI())
		require.Contains(t, body, "No active account found with the given credentials")
		require.Contains(t, body, `value="john.doe@example.com"`)

		resp, _ = f.get(t, "/dashboard")
		requireRedirect(t, resp, "/login")
	})

	t.Run("a failed profile fetch still logs in", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.FailProfile(http.StatusInternalServerError)
		f.login(t)

		resp, body := f.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Internal Server Error")
		require.Contains(t, body, "Your profile is not available right now.")

		f.backend.FailProfile(0)
		_, body = f.get(t, "/dashboard")
		require.Contains(t, body, "Welcome, John Doe")
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	resp, _ := f.post(t, "/logout", nil)
	requireRedirect(t, resp, "/login")

	_, ok, err := storage.Scoped(f.tokens, f.clientSessionID(t)).Get(context.Background(), token.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)

	resp, _ = f.get(t, "/dashboard")
	requireRedirect(t, resp, "/login")

	// Logging out twice is harmless
	resp, _ = f.post(t, "/logout", nil)
	requireRedirect(t, resp, "/login")
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("success sends the client to login", func(t *testing.T) {
		resp, _ := f.post(t, "/register", url.Values{
			"email":     {"jane@example.com"},
			"username":  {"jane"},
			"password":  {"s3cure-pass"},
			"password2": {"s3cure-pass"},
			"currency":  {"gbp"},
		})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", location.Path)
		require.Equal(t, server.RegistrationSuccessNotice, location.Query().Get("notice"))

		resp, _ = f.post(t, "/login", url.Values{"email": {"jane@example.com"}, "password": {"s3cure-pass"}})
		requireRedirect(t, resp, "/dashboard")
		_, body := f.get(t, "/dashboard")
		require.Contains(t, body, "GBP")

		resp, _ = f.post(t, "/logout", nil)
		requireRedirect(t, resp, "/login")
	})

	t.Run("field errors re-render the form", func(t *testing.T) {
		resp, body := f.post(t, "/register", url.Values{
			"email":     {testUserEmail},
			"username":  {"johnny"},
			"password":  {"123"},
			"password2": {"123"},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, "Registration failed")
		require.Contains(t, body, "user with this email already exists.")
		require.Contains(t, body, "This password is entirely numeric.")
		require.Contains(t, body, `value="johnny"`)
		require.NotContains(t, body, `value="123"`)
	})

	t.Run("logged in clients cannot register", func(t *testing.T) {
		f.login(t)
		resp, _ := f.post(t, "/register", url.Values{"email": {"x@example.com"}})
		requireRedirect(t, resp, "/dashboard")
	})
}

func TestProfileActions(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("guests are sent to login", func(t *testing.T) {
		resp, _ := f.post(t, "/profile", url.Values{"currency": {"eur"}})
		requireRedirect(t, resp, "/login")
		resp, _ = f.post(t, "/profile/password", url.Values{"old_password": {"a"}})
		requireRedirect(t, resp, "/login")
	})

	f.login(t)

	t.Run("update profile", func(t *testing.T) {
		resp, _ := f.post(t, "/profile", url.Values{"currency": {"eur"}, "first_name": {"Johnny"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Location"), "notice=Profile+updated")

		_, body := f.get(t, "/dashboard")
		require.Contains(t, body, "EUR")
		require.Contains(t, body, "Johnny")
	})

	t.Run("empty update is refused", func(t *testing.T) {
		resp, _ := f.post(t, "/profile", url.Values{"currency": {"  "}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Location"), "error=Nothing+to+update")
	})

	t.Run("change password", func(t *testing.T) {
		resp, _ := f.post(t, "/profile/password", url.Values{
			"old_password":  {testUserPassword},
			"new_password":  {"another-pass-1"},
			"new_password2": {"different"},
		})
		require.Contains(t, resp.Header.Get("Location"), "error=New+passwords+do+not+match")

		resp, _ = f.post(t, "/profile/password", url.Values{
			"old_password":  {"not-my-password"},
			"new_password":  {"another-pass-1"},
			"new_password2": {"another-pass-1"},
		})
		require.Contains(t, resp.Header.Get("Location"), "error=")

		resp, _ = f.post(t, "/profile/password", url.Values{
			"old_password":  {testUserPassword},
			"new_password":  {"another-pass-1"},
			"new_password2": {"another-pass-1"},
		})
		require.Contains(t, resp.Header.Get("Location"), "notice=Password+changed")
	})
}

func TestClientSessions(t *testing.T) {
	t.Run("idle sessions are swept with their tokens", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		id := f.clientSessionID(t)

		f.clock.Advance(time.Hour)
		require.Equal(t, 0, f.server.SweepClientSessions(context.Background()))

		f.clock.Advance(24 * time.Hour)
		require.Equal(t, 1, f.server.SweepClientSessions(context.Background()))
		require.Equal(t, 0, f.sessions.Count())

		_, ok, err := storage.Scoped(f.tokens, id).Get(context.Background(), token.AccessTokenKey)
		require.NoError(t, err)
		require.False(t, ok)

		resp, _ := f.get(t, "/dashboard")
		requireRedirect(t, resp, "/login")
	})

	t.Run("a restarted server reattaches stored tokens", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		id := f.clientSessionID(t)

		f.start(t, clientsession.NewInMemoryRepo())
		// The jar is keyed by host, so the cookie follows the new server
		u, err := url.Parse(f.web.URL)
		require.NoError(t, err)
		f.client.Jar.SetCookies(u, []*http.Cookie{{Name: "client_session_id", Value: id, Path: "/"}})

		resp, body := f.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Welcome, John Doe")
		require.Equal(t, id, f.clientSessionID(t))
	})

	t.Run("malformed cookies get a fresh session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.plantClientSession(t, "not-a-uuid")

		resp, _ := f.get(t, "/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEqual(t, "not-a-uuid", f.clientSessionID(t))
	})
}

func TestClientSessionRotation(t *testing.T) {
	const planted = "11111111-1111-1111-1111-111111111111"

	t.Run("login issues a new id and forgets the old one", func(t *testing.T) {
		f := setupTestFixture(t)
		resp, _ := f.get(t, "/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		before := f.clientSessionID(t)

		f.login(t)
		after := f.clientSessionID(t)
		require.NotEqual(t, before, after)

		_, err := f.sessions.Get(before)
		require.Error(t, err)

		resp, _ = f.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		stale := f.clientWithSession(t, before)
		resp, err = stale.Get(f.web.URL + "/dashboard")
		require.NoError(t, err)
		_ = resp.Body.Close()
		requireRedirect(t, resp, "/login")
	})

	t.Run("a planted id is never adopted", func(t *testing.T) {
		f := setupTestFixture(t)
		f.plantClientSession(t, planted)

		resp, _ := f.get(t, "/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEqual(t, planted, f.clientSessionID(t))
	})

	t.Run("a planted id gains nothing from the victim's login", func(t *testing.T) {
		f := setupTestFixture(t)
		// The planted id is registered, as if the attacker had been issued it
		cs, err := f.sessions.Get(f.clientSessionIDAfterVisit(t))
		require.NoError(t, err)
		f.plantClientSession(t, cs.ID)

		f.login(t)
		require.NotEqual(t, cs.ID, f.clientSessionID(t))

		attacker := f.clientWithSession(t, cs.ID)
		resp, err := attacker.Get(f.web.URL + "/dashboard")
		require.NoError(t, err)
		_ = resp.Body.Close()
		requireRedirect(t, resp, "/login")

		attacker = f.clientWithSession(t, planted)
		resp, err = attacker.Get(f.web.URL + "/dashboard")
		require.NoError(t, err)
		_ = resp.Body.Close()
		requireRedirect(t, resp, "/login")
	})

	t.Run("a failed login keeps the current id", func(t *testing.T) {
		f := setupTestFixture(t)
		f.get(t, "/login")
		before := f.clientSessionID(t)

		resp, _ := f.post(t, "/login", url.Values{"email": {testUserEmail}, "password": {"wrong-password"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, before, f.clientSessionID(t))
		require.Equal(t, 1, f.sessions.Count())
	})

	t.Run("a restart does not adopt tokens written under an unissued id", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, token.Save(context.Background(), storage.Scoped(f.tokens, planted), token.Pair{Access: "A", Refresh: "R"}))
		f.plantClientSession(t, planted)

		resp, _ := f.get(t, "/dashboard")
		requireRedirect(t, resp, "/login")
		require.NotEqual(t, planted, f.clientSessionID(t))
	})
}

// clientSessionIDAfterVisit opens the login page and returns the id it was given.
func (f *testFixture) clientSessionIDAfterVisit(t *testing.T) string {
	t.Helper()
	resp, _ := f.get(t, "/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return f.clientSessionID(t)
}

func TestAuthStateIsLogged(t *testing.T) {
	logs := captureLogs(t)
	f := setupTestFixture(t)
	f.login(t)

	require.Contains(t, logs.String(), `"message":"auth state changed"`)
	require.Contains(t, logs.String(), `"client_session":"`+f.clientSessionID(t)+`","authenticated":true`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs sends the global logger to a buffer at debug level for the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logger, level := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
	return buf
}

func TestGuardRejectExpired(t *testing.T) {
	t.Setenv("GUARD_REJECT_EXPIRED", "true")
	f := setupTestFixture(t, apifake.WithAccessTTL(-time.Minute))
	f.login(t)
	require.NotEmpty(t, f.storedAccessToken(t))

	resp, _ := f.get(t, "/dashboard")
	requireRedirect(t, resp, "/login")

	resp, _ = f.get(t, "/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaticAndHealth(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)

	resp, body = f.get(t, "/css/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/css; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Contains(t, body, ".card")

	resp, _ = f.get(t, "/css/missing.css")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
