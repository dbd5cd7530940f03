// Package apifake is an in-memory stand-in for the finance REST API. It serves
// the token, registration, profile, transaction, budget and analytics
// endpoints with the same payload shapes so the client can be exercised end
// to end in tests and local development.
package apifake

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-finance-web/api"
	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/jrsteele09/go-finance-web/users"
	fakeuserrepo "github.com/jrsteele09/go-finance-web/users/repofake"
	"github.com/rs/zerolog/log"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	defaultCurrency  = "VND"
)

type contextKey string

const accountKey contextKey = "account"

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type Server struct {
	router     *mux.Router
	accounts   users.AccountRepo
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu            sync.Mutex
	failures      map[string]int // path -> status forced on GET
	calls         map[string]int
	ledgers       map[int64]*ledger // account ID -> ledger
	nextID        int64
}

type Option func(*Server)

func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func WithAccountRepo(repo users.AccountRepo) Option {
	return func(s *Server) {
		s.accounts = repo
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		accounts:   fakeuserrepo.NewFakeAccountRepo(),
		secret:     []byte(uuid.NewString()),
		accessTTL:  5 * time.Minute,
		refreshTTL: 24 * time.Hour,
		calls:      make(map[string]int),
		failures:   make(map[string]int),
		ledgers:    make(map[int64]*ledger),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc(api.PathToken, s.tokenHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathRegister, s.registerHandler).Methods(http.MethodPost)
	r.HandleFunc(api.PathProfile, s.requireBearer(s.profileHandler)).Methods(http.MethodGet)
	r.HandleFunc(api.PathProfile, s.requireBearer(s.updateProfileHandler)).Methods(http.MethodPatch)
	r.HandleFunc(api.PathChangePassword, s.requireBearer(s.changePasswordHandler)).Methods(http.MethodPost)
	r.HandleFunc(api.PathCategories, s.requireBearer(s.categoriesHandler)).Methods(http.MethodGet)
	r.HandleFunc(api.PathTransactions, s.requireBearer(s.transactionsHandler)).Methods(http.MethodGet)
	r.HandleFunc(api.PathTransactions, s.requireBearer(s.createTransactionHandler)).Methods(http.MethodPost)
	r.HandleFunc(api.PathBudgets, s.requireBearer(s.budgetsHandler)).Methods(http.MethodGet)
	r.HandleFunc(api.PathDashboard, s.requireBearer(s.dashboardHandler)).Methods(http.MethodGet)
	r.HandleFunc(api.PathBudgetProgress, s.requireBearer(s.budgetProgressHandler)).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, detail("Method \""+r.Method+"\" not allowed."))
	})
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddAccount seeds an account with the given password.
func (s *Server) AddAccount(email, password string, profile users.Profile) (*users.Account, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[apifake AddAccount] hash password")
	}
	profile.Email = email
	if profile.Username == "" {
		profile.Username = strings.SplitN(email, "@", 2)[0]
	}
	if profile.Currency == "" {
		profile.Currency = defaultCurrency
	}
	if profile.CreatedAt == "" {
		profile.CreatedAt = NowTimeFunc().UTC().Format(time.RFC3339)
	}

	account := &users.Account{Profile: profile, PasswordHash: hash}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, err
	}
	return account, nil
}

// FailProfile makes GET /users/profile/ answer with status until called with 0.
func (s *Server) FailProfile(status int) {
	s.Fail(api.PathProfile, status)
}

// Fail makes GET requests to path answer with status until called with 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// IssueTokens signs an access/refresh pair for account.
func (s *Server) IssueTokens(account *users.Account) (token.Pair, error) {
	access, err := s.sign(account.ID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return token.Pair{}, err
	}
	refresh, err := s.sign(account.ID, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return token.Pair{}, err
	}
	return token.Pair{Access: access, Refresh: refresh}, nil
}

func (s *Server) sign(accountID int64, tokenType string, ttl time.Duration) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"token_type": tokenType,
		"user_id":    strconv.FormatInt(accountID, 10),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"jti":        uuid.NewString(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperrors.Wrapf(err, "[apifake sign] %s token", tokenType)
	}
	return signed, nil
}

// instrument counts requests per path and answers with any failure forced by Fail.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		status := s.failures[r.URL.Path]
		s.mu.Unlock()

		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("apifake request")
		if status != 0 && r.Method == http.MethodGet {
			writeJSON(w, status, detail(http.StatusText(status)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireBearer authenticates "Authorization: Bearer <access>" and puts the account in the context.
func (s *Server) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if authHeader == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeJSON(w, http.StatusUnauthorized, detail("Authentication credentials were not provided."))
			return
		}

		account, err := s.verify(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, account)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) verify(raw string) (*users.Account, error) {
	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	if tokenType, _ := claims["token_type"].(string); tokenType != tokenTypeAccess {
		return nil, apperrors.ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return s.accounts.GetByID(id)
}

func accountFromContext(ctx context.Context) *users.Account {
	account, _ := ctx.Value(accountKey).(*users.Account)
	return account
}

func detail(message string) map[string]any {
	return map[string]any{"detail": message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
