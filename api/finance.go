package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-finance-web/finance"
)

// Finance paths, relative to the base URL
const (
	PathTransactions   = "/transactions/"
	PathCategories     = "/transactions/categories/"
	PathBudgets        = "/budgets/"
	PathDashboard      = "/analytics/dashboard/"
	PathBudgetProgress = "/analytics/budget-progress/"
)

// Transactions lists the user's transactions, newest first.
func (c *Client) Transactions(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, error) {
	path := PathTransactions
	if q := filter.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var transactions []finance.Transaction
	if err := c.list(ctx, path, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (c *Client) CreateTransaction(ctx context.Context, input finance.TransactionInput) (*finance.Transaction, error) {
	var created finance.Transaction
	if err := c.do(ctx, c.authed, http.MethodPost, PathTransactions, input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Categories(ctx context.Context) ([]finance.Category, error) {
	var categories []finance.Category
	if err := c.list(ctx, PathCategories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) Budgets(ctx context.Context) ([]finance.Budget, error) {
	var budgets []finance.Budget
	if err := c.list(ctx, PathBudgets, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

// DashboardStats returns the current month's income, expenses and balance.
func (c *Client) DashboardStats(ctx context.Context) (*finance.DashboardStats, error) {
	var stats finance.DashboardStats
	if err := c.do(ctx, c.authed, http.MethodGet, PathDashboard, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) BudgetProgress(ctx context.Context) ([]finance.BudgetProgress, error) {
	var progress []finance.BudgetProgress
	if err := c.list(ctx, PathBudgetProgress, &progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// list decodes a JSON array, or the "results" of a paginated page, into out.
func (c *Client) list(ctx context.Context, path string, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, c.authed, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil || page.Results == nil {
			return fmt.Errorf("[api] GET %s: %w: expected a list", path, ErrDecode)
		}
		raw = page.Results
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("[api] GET %s: %w: %v", path, ErrDecode, err)
	}
	return nil
}
