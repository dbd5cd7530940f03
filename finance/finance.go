// Package finance holds the transactions, categories, budgets and monthly
// analytics the finance API serves to a logged-in user.
package finance

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the API's date format
const DateLayout = "2006-01-02"

// Category defaults applied by the API
const (
	DefaultCategoryIcon  = "📁"
	DefaultCategoryColor = "#3B82F6"
)

// AmountNotPositiveMessage is the API's message for a zero or negative amount
const AmountNotPositiveMessage = "Amount must be greater than 0!"

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

type Category struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Icon      string          `json:"icon"`
	Color     string          `json:"color"`
	IsDefault bool            `json:"is_default"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// Transaction is one income or expense. Category is nil when the category
// was deleted.
type Transaction struct {
	ID            int64           `json:"id"`
	Category      *int64          `json:"category"`
	CategoryName  string          `json:"category_name,omitempty"`
	CategoryIcon  string          `json:"category_icon,omitempty"`
	CategoryColor string          `json:"category_color,omitempty"`
	Amount        Amount          `json:"amount"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	Date          string          `json:"date"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

// TransactionInput is the create payload.
type TransactionInput struct {
	Category    *int64          `json:"category"`
	Amount      Amount          `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// Problems returns the field errors the API would report for the input.
func (in TransactionInput) Problems() map[string][]string {
	problems := make(map[string][]string)
	if in.Amount <= 0 {
		problems["amount"] = []string{AmountNotPositiveMessage}
	}
	if !in.Type.Valid() {
		problems["type"] = []string{"\"" + string(in.Type) + "\" is not a valid choice."}
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		problems["date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// TransactionFilter narrows a transaction listing. Zero fields are not sent.
type TransactionFilter struct {
	DateFrom  string
	DateTo    string
	AmountMin *Amount
	AmountMax *Amount
	Type      TransactionType
	Category  int64
	Search    string
}

// Query encodes the filter as the API's query parameters.
func (f TransactionFilter) Query() url.Values {
	q := url.Values{}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}
	if f.AmountMin != nil {
		q.Set("amount_min", f.AmountMin.String())
	}
	if f.AmountMax != nil {
		q.Set("amount_max", f.AmountMax.String())
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Category != 0 {
		q.Set("category", strconv.FormatInt(f.Category, 10))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// Matches reports whether t passes every set field of the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.DateFrom != "" && t.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && t.Date > f.DateTo {
		return false
	}
	if f.AmountMin != nil && t.Amount < *f.AmountMin {
		return false
	}
	if f.AmountMax != nil && t.Amount > *f.AmountMax {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != 0 && (t.Category == nil || *t.Category != f.Category) {
		return false
	}
	if f.Search != "" && !containsFold(t.Description, f.Search) {
		return false
	}
	return true
}

// ParseTransactionFilter reads a filter from query parameters, ignoring
// values that do not parse.
func ParseTransactionFilter(q url.Values) TransactionFilter {
	f := TransactionFilter{
		Type:   TransactionType(q.Get("type")),
		Search: q.Get("search"),
	}
	if !f.Type.Valid() {
		f.Type = ""
	}
	if d := q.Get("date_from"); isDate(d) {
		f.DateFrom = d
	}
	if d := q.Get("date_to"); isDate(d) {
		f.DateTo = d
	}
	if a, err := ParseAmount(q.Get("amount_min")); err == nil {
		f.AmountMin = &a
	}
	if a, err := ParseAmount(q.Get("amount_max")); err == nil {
		f.AmountMax = &a
	}
	if id, err := strconv.ParseInt(q.Get("category"), 10, 64); err == nil && id > 0 {
		f.Category = id
	}
	return f
}

type Budget struct {
	ID            int64  `json:"id"`
	Category      int64  `json:"category"`
	CategoryName  string `json:"category_name,omitempty"`
	CategoryIcon  string `json:"category_icon,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
	Amount        Amount `json:"amount"`
	Month         string `json:"month"` // First day of the month
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// DashboardStats are the current month's totals.
type DashboardStats struct {
	Income           Amount `json:"income"`
	Expenses         Amount `json:"expenses"`
	Balance          Amount `json:"balance"`
	TransactionCount int    `json:"transaction_count"`
	Month            string `json:"month"` // e.g. "January 2026"
}

// BudgetProgress compares a budget with this month's spending in its category.
type BudgetProgress struct {
	Category      string  `json:"category"`
	CategoryIcon  string  `json:"category_icon"`
	CategoryColor string  `json:"category_color"`
	Budget        Amount  `json:"budget"`
	Spent         Amount  `json:"spent"`
	Remaining     Amount  `json:"remaining"`
	Percentage    float64 `json:"percentage"`
}

// Over reports whether spending has passed the budget.
func (p BudgetProgress) Over() bool {
	return p.Spent > p.Budget
}

// MonthStart returns the first day of t's month as a date string.
func MonthStart(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format(DateLayout)
}

// MonthName formats t's month the way the dashboard reports it.
func MonthName(t time.Time) string {
	return t.Format("January 2006")
}

func isDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
