// Package cli is the terminal front end: the same auth session and route
// table as the web front, driven by subcommands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/finance"
	"github.com/jrsteele09/go-finance-web/internal/utils"
	"github.com/jrsteele09/go-finance-web/router"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/jrsteele09/go-finance-web/users"
)

var ErrUsage = errors.New("usage")

const usage = `usage: financecli <command> [flags]

commands:
  login            -email -password
  register         -email -username -password -password2 [-first-name -last-name -currency]
  profile          show the logged in user
  update-profile   [-username -first-name -last-name -currency]
  passwd           -old -new
  logout
  status           show whether a token is stored and when it expires
  navigate <path>  show where the route guard sends a path
  summary          this month's income, expenses and balance
  transactions     [-type -from -to -category -search]
  add-transaction  -type -amount -date [-category -description]
  budgets          this month's budget progress and every budget`

// FinanceClient is the part of the REST API the finance commands use.
type FinanceClient interface {
	Transactions(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, error)
	CreateTransaction(ctx context.Context, input finance.TransactionInput) (*finance.Transaction, error)
	Budgets(ctx context.Context) ([]finance.Budget, error)
	BudgetProgress(ctx context.Context) ([]finance.BudgetProgress, error)
	DashboardStats(ctx context.Context) (*finance.DashboardStats, error)
}

var _ FinanceClient = (*api.Client)(nil)

type App struct {
	session       *auth.Session
	finance       FinanceClient
	store         storage.Store
	router        *router.Router
	rejectExpired bool
	in            *bufio.Reader
	out           io.Writer
}

// New builds the CLI over session, the finance API and the store their
// tokens live in. rejectExpired selects the guard policy used by navigate.
func New(session *auth.Session, financeClient FinanceClient, store storage.Store, rejectExpired bool, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		session:       session,
		finance:       financeClient,
		store:         store,
		rejectExpired: rejectExpired,
		in:            bufio.NewReader(in),
		out:           out,
	}

	r, err := router.New(router.DefaultRoutes(router.Views{
		Login:        terminalView,
		Register:     terminalView,
		Dashboard:    terminalView,
		Transactions: terminalView,
		Budgets:      terminalView,
	}), a.isAuthenticated)
	if err != nil {
		return nil, err
	}
	a.router = r
	return a, nil
}

// terminalView stands in for pages, which the CLI never renders.
func terminalView() (http.Handler, error) {
	return http.NotFoundHandler(), nil
}

func (a *App) isAuthenticated(ctx context.Context) bool {
	if a.rejectExpired {
		return token.IsPresentAndUnexpired(ctx, a.store)
	}
	return token.IsPresent(ctx, a.store)
}

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w\n%s", ErrUsage, usage)
	}

	command, args := args[0], args[1:]
	switch command {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "profile":
		return a.profile(ctx)
	case "update-profile":
		return a.updateProfile(ctx, args)
	case "passwd":
		return a.changePassword(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "status":
		return a.status(ctx)
	case "navigate":
		return a.navigate(ctx, args)
	case "summary":
		return a.summary(ctx)
	case "transactions":
		return a.transactions(ctx, args)
	case "add-transaction":
		return a.addTransaction(ctx, args)
	case "budgets":
		return a.budgets(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, command, usage)
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.prompt("Password: ", password); err != nil {
		return err
	}

	result := a.session.Login(ctx, *email, *password)
	if !result.OK {
		return sessionError(result.Err)
	}
	if result.Value == nil {
		reason := auth.ProfileFailedMessage
		if profileErr := a.session.State().ProfileError; profileErr != nil {
			reason = profileErr.Message
		}
		fmt.Fprintln(a.out, "Logged in, but the profile could not be loaded:", reason)
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", result.Value.DisplayName())
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	var registration users.Registration
	fs := a.flags("register")
	fs.StringVar(&registration.Email, "email", "", "account email")
	fs.StringVar(&registration.Username, "username", "", "username")
	fs.StringVar(&registration.Password, "password", "", "password (prompted when empty)")
	fs.StringVar(&registration.Password2, "password2", "", "password confirmation (defaults to -password)")
	fs.StringVar(&registration.FirstName, "first-name", "", "first name")
	fs.StringVar(&registration.LastName, "last-name", "", "last name")
	fs.StringVar(&registration.Currency, "currency", "", "ISO 4217 currency code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.prompt("Password: ", &registration.Password); err != nil {
		return err
	}
	if registration.Password2 == "" {
		registration.Password2 = registration.Password
	}
	registration.Currency = strings.ToUpper(registration.Currency)

	result := a.session.Register(ctx, registration)
	if !result.OK {
		return sessionError(result.Err)
	}
	fmt.Fprintln(a.out, "Registered. Log in with: financecli login -email", registration.Email)
	return nil
}

func (a *App) profile(ctx context.Context) error {
	result := a.session.FetchProfile(ctx)
	if !result.OK {
		return sessionError(result.Err)
	}
	a.printProfile(result.Value)
	return nil
}

func (a *App) updateProfile(ctx context.Context, args []string) error {
	fs := a.flags("update-profile")
	username := fs.String("username", "", "new username")
	firstName := fs.String("first-name", "", "new first name")
	lastName := fs.String("last-name", "", "new last name")
	currency := fs.String("currency", "", "new ISO 4217 currency code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update users.ProfileUpdate
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["username"] {
		update.Username = username
	}
	if set["first-name"] {
		update.FirstName = firstName
	}
	if set["last-name"] {
		update.LastName = lastName
	}
	if set["currency"] {
		update.Currency = utils.Ptr(strings.ToUpper(*currency))
	}
	if len(set) == 0 {
		return fmt.Errorf("%w: nothing to update", ErrUsage)
	}

	result := a.session.UpdateProfile(ctx, update)
	if !result.OK {
		return sessionError(result.Err)
	}
	a.printProfile(result.Value)
	return nil
}

func (a *App) changePassword(ctx context.Context, args []string) error {
	var change users.PasswordChange
	fs := a.flags("passwd")
	fs.StringVar(&change.OldPassword, "old", "", "current password (prompted when empty)")
	fs.StringVar(&change.NewPassword, "new", "", "new password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.prompt("Current password: ", &change.OldPassword); err != nil {
		return err
	}
	if err := a.prompt("New password: ", &change.NewPassword); err != nil {
		return err
	}

	result := a.session.ChangePassword(ctx, change)
	if !result.OK {
		return sessionError(result.Err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) status(ctx context.Context) error {
	access, err := token.AccessToken(ctx, a.store)
	if err != nil {
		return err
	}
	if access == "" {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	expiry, ok := token.Expiry(access)
	switch {
	case !ok:
		fmt.Fprintln(a.out, "Logged in (token expiry unknown)")
	case token.IsExpired(access):
		fmt.Fprintf(a.out, "Logged in, but the access token expired at %s\n", expiry.Format(time.RFC3339))
	default:
		fmt.Fprintf(a.out, "Logged in (access token valid until %s)\n", expiry.Format(time.RFC3339))
	}
	return nil
}

func (a *App) navigate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: navigate <path>", ErrUsage)
	}

	nav, err := a.router.Navigate(ctx, args[0])
	if err != nil {
		return err
	}
	if nav.Redirected() {
		fmt.Fprintf(a.out, "%s -> %s (%s)\n", nav.Requested, nav.Route.Path, strings.Join(nav.Redirects, " -> "))
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n", nav.Route.Path, nav.Route.Name)
	return nil
}

// prompt reads a line into value when it is empty.
func (a *App) prompt(label string, value *string) error {
	if *value != "" {
		return nil
	}
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	*value = strings.TrimRight(line, "\r\n")
	return nil
}

func (a *App) printProfile(p *users.Profile) {
	fmt.Fprintf(a.out, "Name:     %s\n", p.DisplayName())
	fmt.Fprintf(a.out, "Email:    %s\n", p.Email)
	fmt.Fprintf(a.out, "Username: %s\n", p.Username)
	fmt.Fprintf(a.out, "Currency: %s\n", p.Currency)
	if p.CreatedAt != "" {
		fmt.Fprintf(a.out, "Joined:   %s\n", p.CreatedAt)
	}
}

// sessionError flattens a session error, field messages included, into one
// error for the terminal.
func sessionError(err *auth.Error) error {
	if len(err.FieldErrors) == 0 {
		return errors.New(err.Message)
	}
	fields := make([]string, 0, len(err.FieldErrors))
	for field := range err.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(err.Message)
	for _, field := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", field, strings.Join(err.FieldErrors[field], " "))
	}
	return errors.New(b.String())
}
