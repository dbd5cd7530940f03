package apifake

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-finance-web/finance"
)

func (s *Server) transactionsHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	filter := finance.ParseTransactionFilter(r.URL.Query())

	s.mu.Lock()
	transactions := s.ledgerFor(account.ID).filtered(filter)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var input finance.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.ledgerFor(account.ID)
	if errs := s.transactionProblems(l, input); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	writeJSON(w, http.StatusCreated, s.addTransaction(l, input))
}

func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	s.mu.Lock()
	categories := append([]finance.Category{}, s.ledgerFor(account.ID).categories...)
	s.mu.Unlock()

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) budgetsHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	s.mu.Lock()
	budgets := append([]finance.Budget{}, s.ledgerFor(account.ID).budgets...)
	s.mu.Unlock()

	sort.SliceStable(budgets, func(i, j int) bool {
		return budgets[i].Month > budgets[j].Month
	})
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	s.mu.Lock()
	stats := s.ledgerFor(account.ID).dashboard(NowTimeFunc())
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) budgetProgressHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	s.mu.Lock()
	progress := s.ledgerFor(account.ID).budgetProgress(NowTimeFunc())
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, progress)
}
