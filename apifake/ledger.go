package apifake

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jrsteele09/go-finance-web/finance"
	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
)

// ledger is one account's categories, transactions and budgets.
type ledger struct {
	categories   []finance.Category
	transactions []finance.Transaction
	budgets      []finance.Budget
}

func (l *ledger) category(id int64) (finance.Category, bool) {
	for _, c := range l.categories {
		if c.ID == id {
			return c, true
		}
	}
	return finance.Category{}, false
}

// ledgerFor returns the account's ledger, creating it. Callers hold s.mu.
func (s *Server) ledgerFor(accountID int64) *ledger {
	l, ok := s.ledgers[accountID]
	if !ok {
		l = &ledger{}
		s.ledgers[accountID] = l
	}
	return l
}

func (s *Server) ledgerForEmail(email string) (*ledger, error) {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[apifake] account %s", email)
	}
	return s.ledgerFor(account.ID), nil
}

// AddCategory seeds a category for the account with email.
func (s *Server) AddCategory(email string, category finance.Category) (finance.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.ledgerForEmail(email)
	if err != nil {
		return finance.Category{}, err
	}
	s.nextID++
	category.ID = s.nextID
	if category.Icon == "" {
		category.Icon = finance.DefaultCategoryIcon
	}
	if category.Color == "" {
		category.Color = finance.DefaultCategoryColor
	}
	if category.CreatedAt == "" {
		category.CreatedAt = NowTimeFunc().UTC().Format(time.RFC3339)
	}
	l.categories = append(l.categories, category)
	return category, nil
}

// AddTransaction seeds a transaction for the account with email.
func (s *Server) AddTransaction(email string, input finance.TransactionInput) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.ledgerForEmail(email)
	if err != nil {
		return finance.Transaction{}, err
	}
	if problems := s.transactionProblems(l, input); problems != nil {
		return finance.Transaction{}, fmt.Errorf("[apifake AddTransaction] invalid transaction: %v", problems)
	}
	return s.addTransaction(l, input), nil
}

// AddBudget seeds a budget. An empty Month means the current month.
func (s *Server) AddBudget(email string, budget finance.Budget) (finance.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.ledgerForEmail(email)
	if err != nil {
		return finance.Budget{}, err
	}
	category, ok := l.category(budget.Category)
	if !ok {
		return finance.Budget{}, fmt.Errorf("[apifake AddBudget] unknown category %d", budget.Category)
	}
	if budget.Month == "" {
		budget.Month = finance.MonthStart(NowTimeFunc())
	}

	now := NowTimeFunc().UTC().Format(time.RFC3339)
	s.nextID++
	budget.ID = s.nextID
	budget.CategoryName = category.Name
	budget.CategoryIcon = category.Icon
	budget.CategoryColor = category.Color
	budget.CreatedAt = now
	budget.UpdatedAt = now
	l.budgets = append(l.budgets, budget)
	return budget, nil
}

func (s *Server) transactionProblems(l *ledger, input finance.TransactionInput) fieldErrors {
	errs := fieldErrors{}
	for field, messages := range input.Problems() {
		errs.add(field, messages...)
	}
	if input.Category != nil {
		if _, ok := l.category(*input.Category); !ok {
			errs.add("category", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *input.Category))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Server) addTransaction(l *ledger, input finance.TransactionInput) finance.Transaction {
	now := NowTimeFunc().UTC().Format(time.RFC3339)
	s.nextID++
	t := finance.Transaction{
		ID:          s.nextID,
		Category:    input.Category,
		Amount:      input.Amount,
		Type:        input.Type,
		Description: input.Description,
		Date:        input.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Category != nil {
		category, _ := l.category(*input.Category)
		t.CategoryName = category.Name
		t.CategoryIcon = category.Icon
		t.CategoryColor = category.Color
	}
	l.transactions = append(l.transactions, t)
	return t
}

// filtered returns the matching transactions, newest date first and newest
// entry first within a date.
func (l *ledger) filtered(filter finance.TransactionFilter) []finance.Transaction {
	matched := make([]finance.Transaction, 0, len(l.transactions))
	for _, t := range l.transactions {
		if filter.Matches(t) {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

// monthTotals sums the month's income and expenses up to now, optionally for
// one category.
func (l *ledger) monthTotals(now time.Time, category *int64) (income, expenses finance.Amount, count int) {
	from, to := finance.MonthStart(now), now.Format(finance.DateLayout)
	for _, t := range l.transactions {
		if t.Date < from || t.Date > to {
			continue
		}
		if category != nil && (t.Category == nil || *t.Category != *category) {
			continue
		}
		count++
		switch t.Type {
		case finance.Income:
			income += t.Amount
		case finance.Expense:
			expenses += t.Amount
		}
	}
	return income, expenses, count
}

func (l *ledger) dashboard(now time.Time) finance.DashboardStats {
	income, expenses, count := l.monthTotals(now, nil)
	return finance.DashboardStats{
		Income:           income,
		Expenses:         expenses,
		Balance:          income - expenses,
		TransactionCount: count,
		Month:            finance.MonthName(now),
	}
}

func (l *ledger) budgetProgress(now time.Time) []finance.BudgetProgress {
	month := finance.MonthStart(now)
	progress := make([]finance.BudgetProgress, 0)
	for _, b := range l.budgets {
		if b.Month != month {
			continue
		}
		category := b.Category
		_, spent, _ := l.monthTotals(now, &category)

		percentage := 0.0
		if b.Amount > 0 {
			percentage = math.Round(float64(spent)/float64(b.Amount)*100*100) / 100
		}
		progress = append(progress, finance.BudgetProgress{
			Category:      b.CategoryName,
			CategoryIcon:  b.CategoryIcon,
			CategoryColor: b.CategoryColor,
			Budget:        b.Amount,
			Spent:         spent,
			Remaining:     b.Amount - spent,
			Percentage:    percentage,
		})
	}
	return progress
}
