package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/finance"
	"github.com/jrsteele09/go-finance-web/router"
	"github.com/jrsteele09/go-finance-web/server/clientsession"
	"github.com/rs/zerolog/log"
)

// Messages shown when finance data cannot be loaded or saved
const (
	DashboardFailedMessage         = "Monthly summary is not available right now."
	TransactionsFailedMessage      = "Transactions are not available right now."
	BudgetsFailedMessage           = "Budgets are not available right now."
	TransactionCreateFailedMessage = "Transaction could not be added"
	TransactionAddedNotice         = "Transaction added"
)

// pageLoader fills the page's finance data for a logged-in client session.
type pageLoader func(r *http.Request, cs *clientsession.Session, data *PageData)

func (s *Server) loadDashboard(r *http.Request, cs *clientsession.Session, data *PageData) {
	stats, err := cs.API.DashboardStats(r.Context())
	if err != nil {
		data.DataErrors = append(data.DataErrors, loadError(cs, err, DashboardFailedMessage))
		return
	}
	data.Stats = stats
}

func (s *Server) loadTransactions(r *http.Request, cs *clientsession.Session, data *PageData) {
	data.Filter = finance.ParseTransactionFilter(r.URL.Query())

	transactions, err := cs.API.Transactions(r.Context(), data.Filter)
	if err != nil {
		data.DataErrors = append(data.DataErrors, loadError(cs, err, TransactionsFailedMessage))
	} else {
		data.Transactions = transactions
	}

	categories, err := cs.API.Categories(r.Context())
	if err != nil {
		log.Err(err).Str("client_session", cs.ID).Msg("[Server loadTransactions] failed to load categories")
		return
	}
	data.Categories = categories
}

func (s *Server) loadBudgets(r *http.Request, cs *clientsession.Session, data *PageData) {
	progress, err := cs.API.BudgetProgress(r.Context())
	if err != nil {
		data.DataErrors = append(data.DataErrors, loadError(cs, err, BudgetsFailedMessage))
		return
	}
	data.Progress = progress

	budgets, err := cs.API.Budgets(r.Context())
	if err != nil {
		data.DataErrors = append(data.DataErrors, loadError(cs, err, BudgetsFailedMessage))
		return
	}
	data.Budgets = budgets
}

func loadError(cs *clientsession.Session, err error, message string) string {
	e := auth.NormaliseError(err, message)
	log.Err(err).Str("client_session", cs.ID).Str("kind", string(e.Kind)).Msg("failed to load finance data")
	if e.Kind == auth.KindUnauthenticated {
		return e.Message
	}
	return message
}

// CreateTransactionHandler adds a transaction from the form on the
// transactions page and returns there.
func (s *Server) CreateTransactionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, router.PathTransactions, "Invalid form submission")
			return
		}
		cs := ClientSessionFromContext(r.Context())

		input, problems := transactionFromForm(r)
		if problems != nil {
			redirectWithError(w, r, router.PathTransactions, errorSummary(&auth.Error{
				Kind:        auth.KindValidation,
				Message:     TransactionCreateFailedMessage,
				FieldErrors: problems,
			}))
			return
		}

		if _, err := cs.API.CreateTransaction(r.Context(), input); err != nil {
			e := auth.NormaliseError(err, TransactionCreateFailedMessage)
			log.Debug().Str("client_session", cs.ID).Str("kind", string(e.Kind)).Msg("transaction rejected")
			redirectWithError(w, r, router.PathTransactions, errorSummary(e))
			return
		}
		redirectWithNotice(w, r, router.PathTransactions, TransactionAddedNotice)
	}
}

// transactionFromForm reads the add-transaction form. The API validates
// the rest; only values that cannot be sent at all are reported here.
func transactionFromForm(r *http.Request) (finance.TransactionInput, map[string][]string) {
	problems := make(map[string][]string)
	input := finance.TransactionInput{
		Type:        finance.TransactionType(strings.TrimSpace(r.FormValue("type"))),
		Description: strings.TrimSpace(r.FormValue("description")),
		Date:        strings.TrimSpace(r.FormValue("date")),
	}

	amount, err := finance.ParseAmount(r.FormValue("amount"))
	if err != nil {
		problems["amount"] = []string{"A valid number is required."}
	}
	input.Amount = amount

	if category := strings.TrimSpace(r.FormValue("category")); category != "" {
		id, err := strconv.ParseInt(category, 10, 64)
		if err != nil {
			problems["category"] = []string{"Incorrect type. Expected pk value."}
		} else {
			input.Category = &id
		}
	}

	if len(problems) > 0 {
		return input, problems
	}
	return input, nil
}
