package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/apifake"
	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/internal/cli"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/jrsteele09/go-finance-web/users"
	"github.com/stretchr/testify/require"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

type testFixture struct {
	backend *apifake.Server
	store   *storage.FileStore
	apiURL  string
	out     *bytes.Buffer
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := apifake.New()
	_, err := backend.AddAccount(testUserEmail, testUserPassword, users.Profile{FirstName: "John", LastName: "Doe"})
	require.NoError(t, err)

	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	return &testFixture{
		backend: backend,
		store:   storage.NewFileStore(filepath.Join(t.TempDir(), "tokens.yaml")),
		apiURL:  ts.URL,
		out:     &bytes.Buffer{},
	}
}

// run executes one command with a fresh session, as each CLI invocation does.
func (f *testFixture) run(t *testing.T, stdin string, args ...string) error {
	t.Helper()
	f.out.Reset()

	client := api.New(f.apiURL, token.NewStoreTokenSource(f.store), api.WithTimeout(5*time.Second))
	app, err := cli.New(auth.NewSession(client, f.store), client, f.store, false, strings.NewReader(stdin), f.out)
	require.NoError(t, err)
	return app.Run(context.Background(), args)
}

func TestLoginProfileLogout(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.run(t, "", "status"))
	require.Equal(t, "Not logged in\n", f.out.String())

	require.NoError(t, f.run(t, "", "navigate", "/dashboard"))
	require.Equal(t, "/dashboard -> /login (/login)\n", f.out.String())

	require.NoError(t, f.run(t, testUserPassword+"\n", "login", "-email", testUserEmail))
	require.Contains(t, f.out.String(), "Logged in as John Doe")

	// Tokens survive into the next invocation
	require.NoError(t, f.run(t, "", "status"))
	require.Contains(t, f.out.String(), "access token valid until")

	require.NoError(t, f.run(t, "", "profile"))
	require.Contains(t, f.out.String(), "Email:    "+testUserEmail)

	require.NoError(t, f.run(t, "", "navigate", "/"))
	require.Equal(t, "/ -> /dashboard (/dashboard)\n", f.out.String())
	require.NoError(t, f.run(t, "", "navigate", "/login"))
	require.Equal(t, "/login -> /dashboard (/dashboard)\n", f.out.String())
	require.NoError(t, f.run(t, "", "navigate", "/budgets"))
	require.Equal(t, "/budgets (Budgets)\n", f.out.String())

	require.NoError(t, f.run(t, "", "update-profile", "-currency", "eur"))
	require.Contains(t, f.out.String(), "Currency: EUR")

	require.NoError(t, f.run(t, "", "logout"))
	require.NoError(t, f.run(t, "", "status"))
	require.Equal(t, "Not logged in\n", f.out.String())

	err := f.run(t, "", "profile")
	require.EqualError(t, err, auth.NotLoggedInMessage)
}

func TestLoginFailures(t *testing.T) {
	f := setupTestFixture(t)

	err := f.run(t, "", "login", "-email", testUserEmail, "-password", "wrong")
	require.EqualError(t, err, "No active account found with the given credentials")

	f.backend.FailProfile(http.StatusInternalServerError)
	require.NoError(t, f.run(t, "", "login", "-email", testUserEmail, "-password", testUserPassword))
	require.Contains(t, f.out.String(), "profile could not be loaded: Internal Server Error")
}

func TestRegisterAndChangePassword(t *testing.T) {
	f := setupTestFixture(t)

	err := f.run(t, "", "register", "-email", testUserEmail, "-username", "john", "-password", "12345678")
	require.Error(t, err)
	require.Contains(t, err.Error(), auth.RegistrationFailedMessage)
	require.Contains(t, err.Error(), "email: user with this email already exists.")
	require.Contains(t, err.Error(), "password: This password is entirely numeric.")

	require.NoError(t, f.run(t, "", "register", "-email", "jane@example.com", "-username", "jane", "-password", "s3cure-pass", "-currency", "gbp"))
	require.Contains(t, f.out.String(), "Registered")

	require.NoError(t, f.run(t, "", "login", "-email", "jane@example.com", "-password", "s3cure-pass"))
	require.NoError(t, f.run(t, "s3cure-pass\nnew-s3cure-pass\n", "passwd"))
	require.Contains(t, f.out.String(), "Password changed")

	require.NoError(t, f.run(t, "", "logout"))
	require.NoError(t, f.run(t, "", "login", "-email", "jane@example.com", "-password", "new-s3cure-pass"))
}

func TestUsage(t *testing.T) {
	f := setupTestFixture(t)

	require.ErrorIs(t, f.run(t, ""), cli.ErrUsage)
	require.ErrorIs(t, f.run(t, "", "fly"), cli.ErrUsage)
	require.ErrorIs(t, f.run(t, "", "navigate"), cli.ErrUsage)
	require.ErrorIs(t, f.run(t, "", "update-profile"), cli.ErrUsage)
	require.NoError(t, f.run(t, "", "help"))
	require.Contains(t, f.out.String(), "usage: financecli")
}
